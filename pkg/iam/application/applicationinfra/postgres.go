package applicationinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/iam/application"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresApplicationRepository es la implementación en PostgreSQL del
// ApplicationRepository. Memberships live in application_end_users with a
// composite primary key.
type PostgresApplicationRepository struct {
	db *sqlx.DB
}

func NewPostgresApplicationRepository(db *sqlx.DB) application.ApplicationRepository {
	return &PostgresApplicationRepository{db: db}
}

type applicationPersistence struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	ManagerID       sql.NullString `db:"manager_id"`
	Status          string         `db:"status"`
	APIKey          string         `db:"api_key"`
	DisabledNewUser bool           `db:"disabled_new_user"`
	OwnerID         sql.NullString `db:"owner_id"`
	GrantTypes      pq.StringArray `db:"grant_types"`
	Authorities     pq.StringArray `db:"authorities"`
	Scopes          pq.StringArray `db:"scopes"`
	RedirectURIs    pq.StringArray `db:"redirect_uris"`
	CreatedBy       string         `db:"created_by"`
	CreatedAt       time.Time      `db:"created_at"`
	ModifiedBy      string         `db:"modified_by"`
	ModifiedAt      time.Time      `db:"modified_at"`
}

func toPersistence(app application.Application) applicationPersistence {
	p := applicationPersistence{
		ID:              app.ID.String(),
		Name:            app.Name,
		Status:          string(app.Status),
		APIKey:          app.APIKey,
		DisabledNewUser: app.DisabledNewUser,
		GrantTypes:      pq.StringArray(app.GrantTypes),
		Authorities:     pq.StringArray(app.Authorities),
		Scopes:          pq.StringArray(app.Scopes),
		RedirectURIs:    pq.StringArray(app.RedirectURIs),
		CreatedBy:       app.Audit.CreatedBy,
		CreatedAt:       app.Audit.CreatedAt,
		ModifiedBy:      app.Audit.ModifiedBy,
		ModifiedAt:      app.Audit.ModifiedAt,
	}
	if app.ManagerID != "" {
		p.ManagerID = sql.NullString{String: app.ManagerID, Valid: true}
	}
	if !app.OwnerID.IsEmpty() {
		p.OwnerID = sql.NullString{String: app.OwnerID.String(), Valid: true}
	}
	return p
}

func toDomain(p applicationPersistence) application.Application {
	app := application.Application{
		ID:              kernel.NewApplicationID(p.ID),
		Name:            p.Name,
		Status:          application.ParseStatus(p.Status),
		APIKey:          p.APIKey,
		DisabledNewUser: p.DisabledNewUser,
		GrantTypes:      []string(p.GrantTypes),
		Authorities:     []string(p.Authorities),
		Scopes:          []string(p.Scopes),
		RedirectURIs:    []string(p.RedirectURIs),
		Audit: kernel.AuditInfo{
			CreatedBy:  p.CreatedBy,
			CreatedAt:  p.CreatedAt,
			ModifiedBy: p.ModifiedBy,
			ModifiedAt: p.ModifiedAt,
		},
	}
	if p.ManagerID.Valid {
		app.ManagerID = p.ManagerID.String
	}
	if p.OwnerID.Valid {
		app.OwnerID = kernel.NewTenantID(p.OwnerID.String)
	}
	return app
}

func (r *PostgresApplicationRepository) Save(ctx context.Context, app application.Application) error {
	query := `
		INSERT INTO applications (
			id, name, manager_id, status, api_key, disabled_new_user, owner_id,
			grant_types, authorities, scopes, redirect_uris,
			created_by, created_at, modified_by, modified_at
		) VALUES (
			:id, :name, :manager_id, :status, :api_key, :disabled_new_user, :owner_id,
			:grant_types, :authorities, :scopes, :redirect_uris,
			:created_by, :created_at, :modified_by, :modified_at
		)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			manager_id = EXCLUDED.manager_id,
			status = EXCLUDED.status,
			api_key = EXCLUDED.api_key,
			disabled_new_user = EXCLUDED.disabled_new_user,
			owner_id = EXCLUDED.owner_id,
			grant_types = EXCLUDED.grant_types,
			authorities = EXCLUDED.authorities,
			scopes = EXCLUDED.scopes,
			redirect_uris = EXCLUDED.redirect_uris,
			modified_by = EXCLUDED.modified_by,
			modified_at = EXCLUDED.modified_at`

	_, err := r.db.NamedExecContext(ctx, query, toPersistence(app))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation on (name, owner_id)
			return application.ErrDuplicateName().WithDetail("name", app.Name)
		}
		return errx.Wrap(err, "failed to save application", errx.TypeInternal).
			WithDetail("application_id", app.ID.String())
	}
	return nil
}

func (r *PostgresApplicationRepository) FindByID(ctx context.Context, id kernel.ApplicationID) (*application.Application, error) {
	return r.findOne(ctx, `SELECT * FROM applications WHERE id = $1`, id.String())
}

func (r *PostgresApplicationRepository) FindByIDAndOwner(ctx context.Context, id kernel.ApplicationID, ownerID kernel.TenantID) (*application.Application, error) {
	return r.findOne(ctx, `SELECT * FROM applications WHERE id = $1 AND owner_id = $2`, id.String(), ownerID.String())
}

func (r *PostgresApplicationRepository) FindByNameAndOwner(ctx context.Context, name string, ownerID kernel.TenantID) (*application.Application, error) {
	return r.findOne(ctx, `SELECT * FROM applications WHERE name = $1 AND owner_id = $2`, name, ownerID.String())
}

func (r *PostgresApplicationRepository) findOne(ctx context.Context, query string, args ...any) (*application.Application, error) {
	var p applicationPersistence
	err := r.db.GetContext(ctx, &p, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, application.ErrApplicationNotFound()
		}
		return nil, errx.Wrap(err, "failed to find application", errx.TypeInternal)
	}
	app := toDomain(p)
	return &app, nil
}

func (r *PostgresApplicationRepository) FindByOwner(ctx context.Context, ownerID kernel.TenantID, opts kernel.PaginationOptions) (kernel.Paginated[application.Application], error) {
	opts = opts.Normalize()

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM applications WHERE owner_id = $1`, ownerID.String()); err != nil {
		return kernel.Paginated[application.Application]{}, errx.Wrap(err, "failed to count applications", errx.TypeInternal)
	}

	var rows []applicationPersistence
	query := `
		SELECT * FROM applications
		WHERE owner_id = $1
		ORDER BY name
		LIMIT $2 OFFSET $3`
	err := r.db.SelectContext(ctx, &rows, query, ownerID.String(), opts.PageSize, (opts.Page-1)*opts.PageSize)
	if err != nil {
		return kernel.Paginated[application.Application]{}, errx.Wrap(err, "failed to list applications", errx.TypeInternal)
	}

	apps := make([]application.Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, toDomain(row))
	}

	return kernel.NewPaginated(apps, opts.Page, opts.PageSize, total), nil
}

func (r *PostgresApplicationRepository) Delete(ctx context.Context, id kernel.ApplicationID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete application", errx.TypeInternal).
			WithDetail("application_id", id.String())
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on delete", errx.TypeInternal)
	}
	if rows == 0 {
		return application.ErrApplicationNotFound().WithDetail("id", id.String())
	}
	return nil
}

func (r *PostgresApplicationRepository) AddMember(ctx context.Context, membership application.Membership) error {
	query := `
		INSERT INTO application_end_users (application_id, end_user_id)
		VALUES ($1, $2)
		ON CONFLICT (application_id, end_user_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, membership.ApplicationID.String(), membership.EndUserID.String())
	if err != nil {
		return errx.Wrap(err, "failed to add application member", errx.TypeInternal).
			WithDetail("application_id", membership.ApplicationID.String()).
			WithDetail("end_user_id", membership.EndUserID.String())
	}
	return nil
}

func (r *PostgresApplicationRepository) HasMember(ctx context.Context, applicationID kernel.ApplicationID, endUserID kernel.EndUserID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM application_end_users WHERE application_id = $1 AND end_user_id = $2)`
	err := r.db.GetContext(ctx, &exists, query, applicationID.String(), endUserID.String())
	if err != nil {
		return false, errx.Wrap(err, "failed to check application membership", errx.TypeInternal)
	}
	return exists, nil
}

func (r *PostgresApplicationRepository) RemoveMember(ctx context.Context, membership application.Membership) error {
	query := `DELETE FROM application_end_users WHERE application_id = $1 AND end_user_id = $2`
	_, err := r.db.ExecContext(ctx, query, membership.ApplicationID.String(), membership.EndUserID.String())
	if err != nil {
		return errx.Wrap(err, "failed to remove application member", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresApplicationRepository) RemoveAllMembers(ctx context.Context, endUserID kernel.EndUserID) error {
	query := `DELETE FROM application_end_users WHERE end_user_id = $1`
	_, err := r.db.ExecContext(ctx, query, endUserID.String())
	if err != nil {
		return errx.Wrap(err, "failed to remove application memberships", errx.TypeInternal).
			WithDetail("end_user_id", endUserID.String())
	}
	return nil
}
