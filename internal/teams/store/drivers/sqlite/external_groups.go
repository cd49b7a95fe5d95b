package sqlite

import (
	"context"
	"database/sql"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
	"github.com/OpenConext/OpenConext-teams/internal/teams/store"
)

type externalGroupsRepo struct {
	q queryer
}

const externalGroupColumns = `id, team_id, group_id, group_name, provider_id, provider_name, created_at`

func (r *externalGroupsRepo) CreateExternalGroupLink(ctx context.Context, link domain.ExternalGroupLink) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO external_groups (`+externalGroupColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		link.ID, link.TeamID, link.GroupID, link.GroupName, link.ProviderID,
		link.ProviderName, link.CreatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *externalGroupsRepo) GetExternalGroupLinkByID(ctx context.Context, id string) (domain.ExternalGroupLink, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+externalGroupColumns+` FROM external_groups WHERE id = ?`, id)
	return scanExternalGroupLink(row)
}

func (r *externalGroupsRepo) ListExternalGroupLinksByTeam(ctx context.Context, teamID string) ([]domain.ExternalGroupLink, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+externalGroupColumns+` FROM external_groups
		WHERE team_id = ? ORDER BY created_at ASC, id ASC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExternalGroupLinks(rows)
}

func (r *externalGroupsRepo) DeleteExternalGroupLink(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM external_groups WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *externalGroupsRepo) DeleteExternalGroupLinksByTeam(ctx context.Context, teamID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM external_groups WHERE team_id = ?`, teamID)
	return err
}

func scanExternalGroupLink(row rowScanner) (domain.ExternalGroupLink, error) {
	var link domain.ExternalGroupLink
	err := row.Scan(&link.ID, &link.TeamID, &link.GroupID, &link.GroupName,
		&link.ProviderID, &link.ProviderName, &link.CreatedAt)
	if err != nil {
		return domain.ExternalGroupLink{}, mapNotFound(err)
	}
	return link, nil
}

func scanExternalGroupLinks(rows *sql.Rows) ([]domain.ExternalGroupLink, error) {
	var out []domain.ExternalGroupLink
	for rows.Next() {
		link, err := scanExternalGroupLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}
