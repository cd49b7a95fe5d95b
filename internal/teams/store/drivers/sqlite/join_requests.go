package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
	"github.com/OpenConext/OpenConext-teams/internal/teams/store"
)

type joinRequestsRepo struct {
	q queryer
}

const joinRequestColumns = `id, team_id, person_id, display_name, email, message, created_at, updated_at`

func (r *joinRequestsRepo) CreateJoinRequest(ctx context.Context, jr domain.JoinRequest) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO join_requests (`+joinRequestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		jr.ID, jr.TeamID, jr.PersonID, jr.DisplayName, jr.Email, jr.Message,
		jr.CreatedAt, jr.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *joinRequestsRepo) GetJoinRequestByID(ctx context.Context, id string) (domain.JoinRequest, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+joinRequestColumns+` FROM join_requests WHERE id = ?`, id)
	return scanJoinRequest(row)
}

func (r *joinRequestsRepo) GetJoinRequest(ctx context.Context, teamID, personID string) (domain.JoinRequest, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+joinRequestColumns+` FROM join_requests
		WHERE team_id = ? AND person_id = ?`, teamID, personID)
	return scanJoinRequest(row)
}

func (r *joinRequestsRepo) ListJoinRequestsByTeam(ctx context.Context, teamID string) ([]domain.JoinRequest, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+joinRequestColumns+` FROM join_requests
		WHERE team_id = ? ORDER BY created_at ASC, id ASC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJoinRequests(rows)
}

func (r *joinRequestsRepo) ListJoinRequestsByPerson(ctx context.Context, personID string) ([]domain.JoinRequest, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+joinRequestColumns+` FROM join_requests
		WHERE person_id = ? ORDER BY created_at ASC, id ASC`, personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJoinRequests(rows)
}

func (r *joinRequestsRepo) UpdateJoinRequest(ctx context.Context, id string, message string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE join_requests SET message = ?, updated_at = ? WHERE id = ?`,
		message, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *joinRequestsRepo) DeleteJoinRequest(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM join_requests WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *joinRequestsRepo) DeleteJoinRequestsByTeam(ctx context.Context, teamID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM join_requests WHERE team_id = ?`, teamID)
	return err
}

func scanJoinRequest(row rowScanner) (domain.JoinRequest, error) {
	var jr domain.JoinRequest
	err := row.Scan(&jr.ID, &jr.TeamID, &jr.PersonID, &jr.DisplayName, &jr.Email,
		&jr.Message, &jr.CreatedAt, &jr.UpdatedAt)
	if err != nil {
		return domain.JoinRequest{}, mapNotFound(err)
	}
	return jr, nil
}

func scanJoinRequests(rows *sql.Rows) ([]domain.JoinRequest, error) {
	var out []domain.JoinRequest
	for rows.Next() {
		jr, err := scanJoinRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, jr)
	}
	return out, rows.Err()
}
