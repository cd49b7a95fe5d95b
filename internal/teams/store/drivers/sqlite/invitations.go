package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
	"github.com/OpenConext/OpenConext-teams/internal/teams/store"
)

type invitationsRepo struct {
	q queryer
}

const invitationColumns = `id, team_id, email, intended_role, inviter_id, message, token_hash, status, created_at, updated_at`

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO invitations (`+invitationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.TeamID, inv.Email, inv.IntendedRole.String(), inv.InviterID,
		inv.Message, inv.TokenHash, string(inv.Status), inv.CreatedAt, inv.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *invitationsRepo) GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id)
	return scanInvitation(row)
}

func (r *invitationsRepo) GetPendingInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE token_hash = ? AND status = 'pending'`, hash)
	return scanInvitation(row)
}

func (r *invitationsRepo) ListInvitationsByTeam(ctx context.Context, teamID string) ([]domain.Invitation, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE team_id = ? ORDER BY created_at DESC, id DESC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvitations(rows)
}

func (r *invitationsRepo) ListPendingInvitationsByEmail(ctx context.Context, email string) ([]domain.Invitation, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE email = ? AND status = 'pending'
		ORDER BY created_at DESC, id DESC`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvitations(rows)
}

func (r *invitationsRepo) UpdateInvitationStatus(ctx context.Context, id string, status domain.InvitationStatus) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE invitations SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *invitationsRepo) DeleteInvitation(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *invitationsRepo) DeleteInvitationsByTeam(ctx context.Context, teamID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM invitations WHERE team_id = ?`, teamID)
	return err
}

func (r *invitationsRepo) DeleteInvitationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM invitations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (domain.Invitation, error) {
	var (
		inv    domain.Invitation
		role   string
		status string
	)
	err := row.Scan(&inv.ID, &inv.TeamID, &inv.Email, &role, &inv.InviterID,
		&inv.Message, &inv.TokenHash, &status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	inv.IntendedRole, err = domain.ParseRole(role)
	if err != nil {
		return domain.Invitation{}, err
	}
	inv.Status = domain.InvitationStatus(status)
	return inv, nil
}

func scanInvitations(rows *sql.Rows) ([]domain.Invitation, error) {
	var out []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
