package tenantinfra

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/iam"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresTenantRepository es la implementación en PostgreSQL del TenantRepository.
// The credential secret lives inline on the tenant row, so deleting the row
// removes it atomically.
type PostgresTenantRepository struct {
	db *sqlx.DB
}

func NewPostgresTenantRepository(db *sqlx.DB) tenant.TenantRepository {
	return &PostgresTenantRepository{db: db}
}

type tenantPersistence struct {
	ID              string         `db:"id"`
	Email           string         `db:"email"`
	Account         string         `db:"account"`
	Password        string         `db:"password"`
	CompanyName     string         `db:"company_name"`
	Status          string         `db:"status"`
	Profile         []byte         `db:"profile"`
	APIKey          sql.NullString `db:"api_key"`
	APIKeyIssuedAt  sql.NullTime   `db:"api_key_issued_at"`
	APIKeyExpiresAt sql.NullTime   `db:"api_key_expires_at"`
	CreatedBy       string         `db:"created_by"`
	CreatedAt       time.Time      `db:"created_at"`
	ModifiedBy      string         `db:"modified_by"`
	ModifiedAt      time.Time      `db:"modified_at"`
}

func toPersistence(t tenant.Tenant) (tenantPersistence, error) {
	profile, err := json.Marshal(t.Profile)
	if err != nil {
		return tenantPersistence{}, errx.Wrap(err, "failed to marshal tenant profile", errx.TypeInternal)
	}

	p := tenantPersistence{
		ID:          t.ID.String(),
		Email:       t.Email,
		Account:     t.Credential.Account,
		Password:    t.Credential.Password,
		CompanyName: t.CompanyName,
		Status:      string(t.Status),
		Profile:     profile,
		CreatedBy:   t.Audit.CreatedBy,
		CreatedAt:   t.Audit.CreatedAt,
		ModifiedBy:  t.Audit.ModifiedBy,
		ModifiedAt:  t.Audit.ModifiedAt,
	}
	if !t.APIKey.IsZero() {
		p.APIKey = sql.NullString{String: t.APIKey.Secret, Valid: true}
		p.APIKeyIssuedAt = sql.NullTime{Time: t.APIKey.IssuedAt, Valid: true}
		p.APIKeyExpiresAt = sql.NullTime{Time: t.APIKey.ExpiresAt, Valid: true}
	}
	return p, nil
}

func toDomain(p tenantPersistence) (tenant.Tenant, error) {
	var profile iam.UserProfile
	if len(p.Profile) > 0 {
		if err := json.Unmarshal(p.Profile, &profile); err != nil {
			return tenant.Tenant{}, errx.Wrap(err, "failed to unmarshal tenant profile", errx.TypeInternal)
		}
	}

	t := tenant.Tenant{
		ID:          kernel.NewTenantID(p.ID),
		Email:       p.Email,
		Credential:  iam.LoginCredential{Account: p.Account, Password: p.Password},
		CompanyName: p.CompanyName,
		Status:      tenant.ParseStatus(p.Status),
		Profile:     profile,
		Audit: kernel.AuditInfo{
			CreatedBy:  p.CreatedBy,
			CreatedAt:  p.CreatedAt,
			ModifiedBy: p.ModifiedBy,
			ModifiedAt: p.ModifiedAt,
		},
	}
	if p.APIKey.Valid {
		t.APIKey = iam.CredentialSecret{
			Secret:    p.APIKey.String,
			IssuedAt:  p.APIKeyIssuedAt.Time,
			ExpiresAt: p.APIKeyExpiresAt.Time,
		}
	}
	return t, nil
}

// Save inserta o actualiza el tenant.
func (r *PostgresTenantRepository) Save(ctx context.Context, t tenant.Tenant) error {
	p, err := toPersistence(t)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tenants (
			id, email, account, password, company_name, status, profile,
			api_key, api_key_issued_at, api_key_expires_at,
			created_by, created_at, modified_by, modified_at
		) VALUES (
			:id, :email, :account, :password, :company_name, :status, :profile,
			:api_key, :api_key_issued_at, :api_key_expires_at,
			:created_by, :created_at, :modified_by, :modified_at
		)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password = EXCLUDED.password,
			company_name = EXCLUDED.company_name,
			status = EXCLUDED.status,
			profile = EXCLUDED.profile,
			api_key = EXCLUDED.api_key,
			api_key_issued_at = EXCLUDED.api_key_issued_at,
			api_key_expires_at = EXCLUDED.api_key_expires_at,
			modified_by = EXCLUDED.modified_by,
			modified_at = EXCLUDED.modified_at`

	_, err = r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return duplicateError(pqErr)
		}
		return errx.Wrap(err, "failed to save tenant", errx.TypeInternal).
			WithDetail("tenant_id", t.ID.String())
	}
	return nil
}

// duplicateError maps the storage-level uniqueness backstop onto the same
// error kinds the advisory service checks raise.
func duplicateError(pqErr *pq.Error) error {
	switch pqErr.Constraint {
	case "tenants_email_key":
		return tenant.ErrDuplicateEmail()
	default:
		return tenant.ErrDuplicateAccount()
	}
}

func (r *PostgresTenantRepository) FindByID(ctx context.Context, id kernel.TenantID) (*tenant.Tenant, error) {
	return r.findOne(ctx, `SELECT * FROM tenants WHERE id = $1`, id.String())
}

func (r *PostgresTenantRepository) FindByAccount(ctx context.Context, account string) (*tenant.Tenant, error) {
	return r.findOne(ctx, `SELECT * FROM tenants WHERE account = $1`, account)
}

func (r *PostgresTenantRepository) FindByEmail(ctx context.Context, email string) (*tenant.Tenant, error) {
	return r.findOne(ctx, `SELECT * FROM tenants WHERE email = $1`, email)
}

func (r *PostgresTenantRepository) findOne(ctx context.Context, query string, arg any) (*tenant.Tenant, error) {
	var p tenantPersistence
	err := r.db.GetContext(ctx, &p, query, arg)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, tenant.ErrTenantNotFound()
		}
		return nil, errx.Wrap(err, "failed to find tenant", errx.TypeInternal)
	}

	t, err := toDomain(p)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PostgresTenantRepository) Delete(ctx context.Context, id kernel.TenantID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete tenant", errx.TypeInternal).
			WithDetail("tenant_id", id.String())
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on delete", errx.TypeInternal)
	}
	if rows == 0 {
		return tenant.ErrTenantNotFound().WithDetail("id", id.String())
	}
	return nil
}
