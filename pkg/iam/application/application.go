package application

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
)

// Status is the application lifecycle state. TERMINATED is terminal.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusActive     Status = "ACTIVE"
	StatusSuspended  Status = "SUSPENDED"
	StatusTerminated Status = "TERMINATED"
	StatusUnknown    Status = "UNKNOWN"
)

// ParseStatus maps a string onto a Status with the UNKNOWN fallback.
func ParseStatus(value string) Status {
	switch strings.ToUpper(value) {
	case "CREATED":
		return StatusCreated
	case "ACTIVE":
		return StatusActive
	case "SUSPENDED":
		return StatusSuspended
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

// Application is a tenant-owned namespace under which end-users register.
// It acts as its own OAuth2 client with its id as client id and its API key
// as client secret.
type Application struct {
	ID              kernel.ApplicationID `db:"id" json:"id"`
	Name            string               `db:"name" json:"name"`
	ManagerID       string               `db:"manager_id" json:"manager_id,omitempty"` // legacy direct owner reference
	Status          Status               `db:"status" json:"status"`
	APIKey          string               `db:"api_key" json:"api_key,omitempty"`
	DisabledNewUser bool                 `db:"disabled_new_user" json:"disabled_new_user"`
	OwnerID         kernel.TenantID      `db:"owner_id" json:"owner_id,omitempty"`

	// OAuth2 client overrides. Empty slices fall back to the factory defaults.
	GrantTypes   []string `json:"grant_types,omitempty"`
	Authorities  []string `json:"authorities,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	RedirectURIs []string `json:"redirect_uris,omitempty"`

	Audit kernel.AuditInfo `json:"audit"`
}

// ClientID returns the application's OAuth2 client id.
func (a *Application) ClientID() kernel.ClientID {
	return kernel.NewClientID(a.ID.String())
}

// IsOwnedBy reports whether the application belongs to the given tenant.
func (a *Application) IsOwnedBy(tenantID kernel.TenantID) bool {
	return !a.OwnerID.IsEmpty() && a.OwnerID == tenantID
}

// Membership links an end-user to an application. The (application, end-user)
// pair is unique.
type Membership struct {
	ApplicationID kernel.ApplicationID `db:"application_id" json:"application_id"`
	EndUserID     kernel.EndUserID     `db:"end_user_id" json:"end_user_id"`
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("APP")

var (
	CodeNotFound             = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Application not found")
	CodeMissingName          = ErrRegistry.Register("MISSING_NAME", errx.TypeValidation, http.StatusBadRequest, "Application name is required")
	CodeDuplicateName        = ErrRegistry.Register("DUPLICATE_NAME", errx.TypeConflict, http.StatusConflict, "Application name is being used")
	CodeInvalidOwner         = ErrRegistry.Register("INVALID_OWNER", errx.TypeAuthorization, http.StatusForbidden, "Tenant does not own this application")
	CodeRegistrationDisabled = ErrRegistry.Register("REGISTRATION_DISABLED", errx.TypeBusiness, http.StatusUnprocessableEntity, "Application does not accept new users")
	CodeMembershipFailed     = ErrRegistry.Register("MEMBERSHIP_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Fail to add user to application")
)

func ErrApplicationNotFound() *errx.Error {
	return ErrRegistry.New(CodeNotFound)
}

func ErrMissingName() *errx.Error {
	return ErrRegistry.New(CodeMissingName)
}

func ErrDuplicateName() *errx.Error {
	return ErrRegistry.New(CodeDuplicateName)
}

func ErrInvalidOwner() *errx.Error {
	return ErrRegistry.New(CodeInvalidOwner)
}

func ErrRegistrationDisabled() *errx.Error {
	return ErrRegistry.New(CodeRegistrationDisabled)
}

func ErrMembershipFailed() *errx.Error {
	return ErrRegistry.New(CodeMembershipFailed)
}
