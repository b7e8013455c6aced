package enduser

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/iam"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
)

// Status is the end-user lifecycle state. TERMINATED is terminal.
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

// EndUser is a customer account scoped to the applications it joined.
// TenantID is denormalized from the owning application for query scoping.
type EndUser struct {
	ID         kernel.EndUserID    `db:"id" json:"id"`
	Email      string              `db:"email" json:"email,omitempty"`
	Status     Status              `db:"status" json:"status"`
	Credential iam.LoginCredential `json:"credential"`
	Profile    iam.UserProfile     `json:"profile"`
	TenantID   kernel.TenantID     `db:"tenant_id" json:"tenant_id,omitempty"`
	Audit      kernel.AuditInfo    `json:"audit"`
}

// IsTerminated reports whether the end-user reached the terminal state.
func (u *EndUser) IsTerminated() bool {
	return u.Status == StatusTerminated
}

// MobileNo returns the profile mobile number, empty when no profile data.
func (u *EndUser) MobileNo() string {
	return u.Profile.MobilePhoneNo
}

// DTO is the outward representation of an end-user without the password hash.
type DTO struct {
	ID       kernel.EndUserID `json:"id"`
	Account  string           `json:"account"`
	Email    string           `json:"email,omitempty"`
	Status   Status           `json:"status"`
	Profile  iam.UserProfile  `json:"profile"`
	TenantID kernel.TenantID  `json:"tenant_id,omitempty"`
}

// ToDTO converts the end-user to its outward representation.
func (u *EndUser) ToDTO() DTO {
	return DTO{
		ID:       u.ID,
		Account:  u.Credential.Account,
		Email:    u.Email,
		Status:   u.Status,
		Profile:  u.Profile,
		TenantID: u.TenantID,
	}
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("ENDUSER")

var (
	CodeNotFound          = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "End-user not found")
	CodeMissingCredential = ErrRegistry.Register("MISSING_CREDENTIAL", errx.TypeValidation, http.StatusBadRequest, "Login credential with account and password is required")
	CodeDuplicateAccount  = ErrRegistry.Register("DUPLICATE_ACCOUNT", errx.TypeConflict, http.StatusConflict, "Account already exists for this application")
	CodeDuplicateEmail    = ErrRegistry.Register("DUPLICATE_EMAIL", errx.TypeConflict, http.StatusConflict, "Same email is not allowed")
	CodeDuplicateMobile   = ErrRegistry.Register("DUPLICATE_MOBILE", errx.TypeConflict, http.StatusConflict, "Same mobile no is not allowed")
	CodeInvalidTransition = ErrRegistry.Register("INVALID_TRANSITION", errx.TypeBusiness, http.StatusUnprocessableEntity, "Status transition not allowed")
)

func ErrEndUserNotFound() *errx.Error {
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

func ErrDuplicateMobile() *errx.Error {
	return ErrRegistry.New(CodeDuplicateMobile)
}

func ErrInvalidTransition() *errx.Error {
	return ErrRegistry.New(CodeInvalidTransition)
}
