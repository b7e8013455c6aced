package clientinfra

import (
	"context"
	"database/sql"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/oauth"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresClientRegistry es la implementación en PostgreSQL del ClientRegistry.
type PostgresClientRegistry struct {
	db *sqlx.DB
}

func NewPostgresClientRegistry(db *sqlx.DB) oauth.ClientRegistry {
	return &PostgresClientRegistry{db: db}
}

type clientPersistence struct {
	ClientID        string         `db:"client_id"`
	Secret          string         `db:"secret"`
	GrantTypes      pq.StringArray `db:"grant_types"`
	Authorities     pq.StringArray `db:"authorities"`
	Scopes          pq.StringArray `db:"scopes"`
	RedirectURIs    pq.StringArray `db:"redirect_uris"`
	AccessTokenTTL  int            `db:"access_token_ttl"`
	RefreshTokenTTL int            `db:"refresh_token_ttl"`
}

func toPersistence(record oauth.ClientRecord) clientPersistence {
	return clientPersistence{
		ClientID:        record.ClientID.String(),
		Secret:          record.Secret,
		GrantTypes:      pq.StringArray(record.GrantTypes),
		Authorities:     pq.StringArray(record.Authorities),
		Scopes:          pq.StringArray(record.Scopes),
		RedirectURIs:    pq.StringArray(record.RedirectURIs),
		AccessTokenTTL:  record.AccessTokenTTL,
		RefreshTokenTTL: record.RefreshTokenTTL,
	}
}

func toDomain(p clientPersistence) oauth.ClientRecord {
	return oauth.ClientRecord{
		ClientID:        kernel.NewClientID(p.ClientID),
		Secret:          p.Secret,
		GrantTypes:      []string(p.GrantTypes),
		Authorities:     []string(p.Authorities),
		Scopes:          []string(p.Scopes),
		RedirectURIs:    []string(p.RedirectURIs),
		AccessTokenTTL:  p.AccessTokenTTL,
		RefreshTokenTTL: p.RefreshTokenTTL,
	}
}

// Register inserta o sobreescribe el registro del cliente.
func (r *PostgresClientRegistry) Register(ctx context.Context, record oauth.ClientRecord) error {
	query := `
		INSERT INTO oauth_clients (
			client_id, secret, grant_types, authorities, scopes,
			redirect_uris, access_token_ttl, refresh_token_ttl
		) VALUES (
			:client_id, :secret, :grant_types, :authorities, :scopes,
			:redirect_uris, :access_token_ttl, :refresh_token_ttl
		)
		ON CONFLICT (client_id) DO UPDATE SET
			secret = EXCLUDED.secret,
			grant_types = EXCLUDED.grant_types,
			authorities = EXCLUDED.authorities,
			scopes = EXCLUDED.scopes,
			redirect_uris = EXCLUDED.redirect_uris,
			access_token_ttl = EXCLUDED.access_token_ttl,
			refresh_token_ttl = EXCLUDED.refresh_token_ttl`

	_, err := r.db.NamedExecContext(ctx, query, toPersistence(record))
	if err != nil {
		return errx.Wrap(err, "failed to register OAuth2 client", errx.TypeInternal).
			WithDetail("client_id", record.ClientID.String())
	}
	return nil
}

func (r *PostgresClientRegistry) Lookup(ctx context.Context, clientID kernel.ClientID) (*oauth.ClientRecord, error) {
	var p clientPersistence
	query := `SELECT * FROM oauth_clients WHERE client_id = $1`
	err := r.db.GetContext(ctx, &p, query, clientID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, oauth.ErrClientNotFound().WithDetail("client_id", clientID.String())
		}
		return nil, errx.Wrap(err, "failed to look up OAuth2 client", errx.TypeInternal)
	}
	record := toDomain(p)
	return &record, nil
}

// Remove borra el registro del cliente; no falla si ya no existe.
func (r *PostgresClientRegistry) Remove(ctx context.Context, clientID kernel.ClientID) error {
	query := `DELETE FROM oauth_clients WHERE client_id = $1`
	_, err := r.db.ExecContext(ctx, query, clientID.String())
	if err != nil {
		return errx.Wrap(err, "failed to remove OAuth2 client", errx.TypeInternal).
			WithDetail("client_id", clientID.String())
	}
	return nil
}
