package tenant

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/iam"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
)

// Status is the tenant lifecycle state. TERMINATED is terminal.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusActive     Status = "ACTIVE"
	StatusInactive   Status = "INACTIVE"
	StatusLocked     Status = "LOCKED"
	StatusTerminated Status = "TERMINATED"
	StatusUnknown    Status = "UNKNOWN"
)

// ParseStatus maps a string onto a Status, case-insensitively. Empty or
// unrecognized values yield StatusUnknown; downstream code depends on this
// graceful degradation instead of a parse error.
func ParseStatus(value string) Status {
	switch strings.ToUpper(value) {
	case "CREATED":
		return StatusCreated
	case "ACTIVE":
		return StatusActive
	case "INACTIVE":
		return StatusInactive
	case "LOCKED":
		return StatusLocked
	case "TERMINATED":
		return StatusTerminated
	default:
		return StatusUnknown
	}
}

// UnmarshalJSON implements json.Unmarshaler with the UNKNOWN fallback.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

// Tenant is an administrative account holder. It owns applications and acts
// as its own OAuth2 client under its login account.
type Tenant struct {
	ID          kernel.TenantID      `db:"id" json:"id"`
	Email       string               `db:"email" json:"email"`
	Credential  iam.LoginCredential  `json:"login_credential"`
	CompanyName string               `db:"company_name" json:"company_name,omitempty"`
	Status      Status               `db:"status" json:"status"`
	Profile     iam.UserProfile      `json:"profile"`
	APIKey      iam.CredentialSecret `json:"api_key_information"`
	Audit       kernel.AuditInfo     `json:"audit"`
}

// IsTerminated reports whether the tenant reached the terminal state.
func (t *Tenant) IsTerminated() bool {
	return t.Status == StatusTerminated
}

// CanTransitionTo reports whether the status change is allowed. Transitions
// out of TERMINATED are forbidden; every other pair is legal.
func (t *Tenant) CanTransitionTo(next Status) bool {
	if t.Status == StatusTerminated {
		return false
	}
	switch next {
	case StatusActive, StatusInactive, StatusLocked, StatusTerminated:
		return true
	default:
		return false
	}
}

// ClientID returns the tenant's OAuth2 client id, which is its login account.
func (t *Tenant) ClientID() kernel.ClientID {
	return kernel.NewClientID(t.Credential.Account)
}

// DTO is the outward representation of a tenant. The hashed password never
// leaves the service layer.
type DTO struct {
	ID          kernel.TenantID      `json:"id"`
	Account     string               `json:"account"`
	Email       string               `json:"email"`
	CompanyName string               `json:"company_name,omitempty"`
	Status      Status               `json:"status"`
	Profile     iam.UserProfile      `json:"profile"`
	APIKey      iam.CredentialSecret `json:"api_key_information"`
}

// ToDTO converts the tenant to its outward representation.
func (t *Tenant) ToDTO() DTO {
	return DTO{
		ID:          t.ID,
		Account:     t.Credential.Account,
		Email:       t.Email,
		CompanyName: t.CompanyName,
		Status:      t.Status,
		Profile:     t.Profile,
		APIKey:      t.APIKey,
	}
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("TENANT")

var (
	CodeNotFound          = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Tenant not found")
	CodeMissingCredential = ErrRegistry.Register("MISSING_CREDENTIAL", errx.TypeValidation, http.StatusBadRequest, "Login credential with account and password is required")
	CodeDuplicateAccount  = ErrRegistry.Register("DUPLICATE_ACCOUNT", errx.TypeConflict, http.StatusConflict, "Tenant account already exists")
	CodeDuplicateEmail    = ErrRegistry.Register("DUPLICATE_EMAIL", errx.TypeConflict, http.StatusConflict, "Tenant email already exists")
	CodeInvalidTransition = ErrRegistry.Register("INVALID_TRANSITION", errx.TypeBusiness, http.StatusUnprocessableEntity, "Status transition not allowed")
)

func ErrTenantNotFound() *errx.Error {
	return ErrRegistry.New(CodeNotFound)
}

func ErrMissingCredential() *errx.Error {
	return ErrRegistry.New(CodeMissingCredential)
}

func ErrDuplicateAccount() *errx.Error {
	return ErrRegistry.New(CodeDuplicateAccount)
}

func ErrDuplicateEmail() *errx.Error {
	return ErrRegistry.New(CodeDuplicateEmail)
}

func ErrInvalidTransition() *errx.Error {
	return ErrRegistry.New(CodeInvalidTransition)
}
