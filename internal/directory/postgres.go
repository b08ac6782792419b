package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/impulso-digital/plataforma/internal/shared/errors"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

const memberColumns = `id, full_name, email, phone, role,
		region, department, municipality, locality,
		term_start, term_end, verified_office_holder,
		active, pending_sync, created_by, created_at`

// Repository provides database operations for directory members
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new directory repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert creates a new member
func (r *Repository) Insert(ctx context.Context, member *Member) error {
	query := `
		INSERT INTO org.members (
			id, full_name, email, phone, role,
			region, department, municipality, locality,
			term_start, term_end, verified_office_holder,
			active, pending_sync, created_by
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12,
			$13, $14, $15
		)`

	_, err := r.pool.Exec(ctx, query,
		member.ID, member.FullName, member.Email, member.Phone, member.Role,
		member.Territory.Region, member.Territory.Department,
		member.Territory.Municipality, member.Territory.Locality,
		member.TermStart, member.TermEnd, member.VerifiedOfficeHolder,
		member.Active, member.PendingSync, member.CreatedBy,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("member with this email already exists")
		}
		return errors.Wrap(err, "failed to create member")
	}

	return nil
}

// Get retrieves a member by ID
func (r *Repository) Get(ctx context.Context, id types.ID) (*Member, error) {
	query := fmt.Sprintf(`SELECT %s FROM org.members WHERE id = $1`, memberColumns)

	member, err := r.scanRow(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("member", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get member")
	}

	return member, nil
}

// GetByEmail retrieves a member by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Member, error) {
	query := fmt.Sprintf(`SELECT %s FROM org.members WHERE email = $1`, memberColumns)

	member, err := r.scanRow(r.pool.QueryRow(ctx, query, email))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("member", email)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get member by email")
	}

	return member, nil
}

// List lists members with optional filters
func (r *Repository) List(ctx context.Context, filter Filter) ([]Member, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argNum))
		args = append(args, *filter.Role)
		argNum++
	}

	if filter.Municipality != "" {
		conditions = append(conditions, fmt.Sprintf("municipality = $%d", argNum))
		args = append(args, filter.Municipality)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	if filter.ActiveOnly {
		conditions = append(conditions, "active = TRUE")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := 200
	if filter.Limit > 0 && filter.Limit <= 500 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM org.members
		%s
		ORDER BY full_name
		LIMIT $%d OFFSET $%d`, memberColumns, whereClause, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list members")
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		member, err := r.scanRow(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan member")
		}
		members = append(members, *member)
	}

	return members, nil
}

// Update updates mutable member fields
func (r *Repository) Update(ctx context.Context, member *Member) error {
	query := `
		UPDATE org.members SET
			full_name = $2, email = $3, phone = $4,
			locality = $5, term_end = $6
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		member.ID, member.FullName, member.Email, member.Phone,
		member.Territory.Locality, member.TermEnd,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("member with this email already exists")
		}
		return errors.Wrap(err, "failed to update member")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("member", member.ID.String())
	}

	return nil
}

// Deactivate marks a member inactive, keeping the directory record
func (r *Repository) Deactivate(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `UPDATE org.members SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to deactivate member")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("member", id.String())
	}

	return nil
}

// Delete removes a member. Office-holder protection is enforced by the
// service layer before this is reached.
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM org.members WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete member")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("member", id.String())
	}

	return nil
}

// MarkPendingSync flags a member for credential reconciliation
func (r *Repository) MarkPendingSync(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `UPDATE org.members SET pending_sync = TRUE WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to mark member pending sync")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("member", id.String())
	}

	return nil
}

// MarkSynced clears the pending-sync flag after credential reconciliation
func (r *Repository) MarkSynced(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `UPDATE org.members SET pending_sync = FALSE WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to mark member synced")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("member", id.String())
	}

	return nil
}

// ListPendingSync lists members awaiting credential reconciliation
func (r *Repository) ListPendingSync(ctx context.Context) ([]Member, error) {
	query := fmt.Sprintf(`SELECT %s FROM org.members WHERE pending_sync = TRUE ORDER BY created_at`, memberColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending-sync members")
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		member, err := r.scanRow(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan member")
		}
		members = append(members, *member)
	}

	return members, nil
}

func (r *Repository) scanRow(row pgx.Row) (*Member, error) {
	member := &Member{}
	err := row.Scan(
		&member.ID, &member.FullName, &member.Email, &member.Phone, &member.Role,
		&member.Territory.Region, &member.Territory.Department,
		&member.Territory.Municipality, &member.Territory.Locality,
		&member.TermStart, &member.TermEnd, &member.VerifiedOfficeHolder,
		&member.Active, &member.PendingSync, &member.CreatedBy, &member.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return member, nil
}
