package enduserinfra

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/iam"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresEndUserRepository es la implementación en PostgreSQL del
// EndUserRepository. Application-scoped lookups join through the
// application_end_users membership table; tenant-scoped lookups rely on the
// tenant_id column denormalized at registration time.
type PostgresEndUserRepository struct {
	db *sqlx.DB
}

func NewPostgresEndUserRepository(db *sqlx.DB) enduser.EndUserRepository {
	return &PostgresEndUserRepository{db: db}
}

type endUserPersistence struct {
	ID         string    `db:"id"`
	Email      string    `db:"email"`
	Account    string    `db:"account"`
	Password   string    `db:"password"`
	Status     string    `db:"status"`
	Profile    []byte    `db:"profile"`
	TenantID   string    `db:"tenant_id"`
	CreatedBy  string    `db:"created_by"`
	CreatedAt  time.Time `db:"created_at"`
	ModifiedBy string    `db:"modified_by"`
	ModifiedAt time.Time `db:"modified_at"`
}

func toPersistence(u enduser.EndUser) (endUserPersistence, error) {
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return endUserPersistence{}, errx.Wrap(err, "failed to marshal end-user profile", errx.TypeInternal)
	}

	return endUserPersistence{
		ID:         u.ID.String(),
		Email:      u.Email,
		Account:    u.Credential.Account,
		Password:   u.Credential.Password,
		Status:     string(u.Status),
		Profile:    profile,
		TenantID:   u.TenantID.String(),
		CreatedBy:  u.Audit.CreatedBy,
		CreatedAt:  u.Audit.CreatedAt,
		ModifiedBy: u.Audit.ModifiedBy,
		ModifiedAt: u.Audit.ModifiedAt,
	}, nil
}

func toDomain(p endUserPersistence) (enduser.EndUser, error) {
	var profile iam.UserProfile
	if len(p.Profile) > 0 {
		if err := json.Unmarshal(p.Profile, &profile); err != nil {
			return enduser.EndUser{}, errx.Wrap(err, "failed to unmarshal end-user profile", errx.TypeInternal)
		}
	}

	return enduser.EndUser{
		ID:         kernel.NewEndUserID(p.ID),
		Email:      p.Email,
		Status:     enduser.ParseStatus(p.Status),
		Credential: iam.LoginCredential{Account: p.Account, Password: p.Password},
		Profile:    profile,
		TenantID:   kernel.NewTenantID(p.TenantID),
		Audit: kernel.AuditInfo{
			CreatedBy:  p.CreatedBy,
			CreatedAt:  p.CreatedAt,
			ModifiedBy: p.ModifiedBy,
			ModifiedAt: p.ModifiedAt,
		},
	}, nil
}

// Save inserta o actualiza el end-user.
func (r *PostgresEndUserRepository) Save(ctx context.Context, u enduser.EndUser) error {
	p, err := toPersistence(u)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO end_users (
			id, email, account, password, status, profile, tenant_id,
			created_by, created_at, modified_by, modified_at
		) VALUES (
			:id, :email, :account, :password, :status, :profile, :tenant_id,
			:created_by, :created_at, :modified_by, :modified_at
		)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password = EXCLUDED.password,
			status = EXCLUDED.status,
			profile = EXCLUDED.profile,
			modified_by = EXCLUDED.modified_by,
			modified_at = EXCLUDED.modified_at`

	_, err = r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return duplicateError(pqErr)
		}
		return errx.Wrap(err, "failed to save end-user", errx.TypeInternal).
			WithDetail("end_user_id", u.ID.String())
	}
	return nil
}

// duplicateError maps the storage-level uniqueness backstop onto the same
// error kinds the registration validator raises.
func duplicateError(pqErr *pq.Error) error {
	switch pqErr.Constraint {
	case "end_users_tenant_email_key":
		return enduser.ErrDuplicateEmail()
	case "end_users_tenant_mobile_key":
		return enduser.ErrDuplicateMobile()
	default:
		return enduser.ErrDuplicateAccount()
	}
}

func (r *PostgresEndUserRepository) FindByID(ctx context.Context, id kernel.EndUserID) (*enduser.EndUser, error) {
	return r.findOne(ctx, `SELECT * FROM end_users WHERE id = $1`, id.String())
}

func (r *PostgresEndUserRepository) FindByApplicationAndAccount(ctx context.Context, applicationID kernel.ApplicationID, account string) (*enduser.EndUser, error) {
	query := `
		SELECT u.* FROM end_users u
		JOIN application_end_users m ON m.end_user_id = u.id
		WHERE m.application_id = $1 AND u.account = $2`
	return r.findOne(ctx, query, applicationID.String(), account)
}

func (r *PostgresEndUserRepository) FindByApplicationAndEmail(ctx context.Context, applicationID kernel.ApplicationID, email string) (*enduser.EndUser, error) {
	query := `
		SELECT u.* FROM end_users u
		JOIN application_end_users m ON m.end_user_id = u.id
		WHERE m.application_id = $1 AND u.email = $2`
	return r.findOne(ctx, query, applicationID.String(), email)
}

func (r *PostgresEndUserRepository) FindByTenantAndEmail(ctx context.Context, tenantID kernel.TenantID, email string) (*enduser.EndUser, error) {
	return r.findOne(ctx, `SELECT * FROM end_users WHERE tenant_id = $1 AND email = $2`, tenantID.String(), email)
}

func (r *PostgresEndUserRepository) FindByTenantAndMobile(ctx context.Context, tenantID kernel.TenantID, mobileNo string) (*enduser.EndUser, error) {
	query := `SELECT * FROM end_users WHERE tenant_id = $1 AND profile->>'mobile_phone_no' = $2`
	return r.findOne(ctx, query, tenantID.String(), mobileNo)
}

func (r *PostgresEndUserRepository) findOne(ctx context.Context, query string, args ...any) (*enduser.EndUser, error) {
	var p endUserPersistence
	err := r.db.GetContext(ctx, &p, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, enduser.ErrEndUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to find end-user", errx.TypeInternal)
	}

	u, err := toDomain(p)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresEndUserRepository) Delete(ctx context.Context, id kernel.EndUserID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM end_users WHERE id = $1`, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete end-user", errx.TypeInternal).
			WithDetail("end_user_id", id.String())
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on delete", errx.TypeInternal)
	}
	if rows == 0 {
		return enduser.ErrEndUserNotFound().WithDetail("id", id.String())
	}
	return nil
}
