package kernel

import "time"

// AuditInfo records who created/modified an entity and when. It is set
// explicitly by the service layer from the acting principal; there is no
// ambient security context lookup.
type AuditInfo struct {
	CreatedBy  string    `db:"created_by" json:"created_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	ModifiedBy string    `db:"modified_by" json:"modified_by"`
	ModifiedAt time.Time `db:"modified_at" json:"modified_at"`
}

// NewAuditInfo returns audit info for a freshly created entity.
func NewAuditInfo(actor string) AuditInfo {
	now := time.Now().UTC()
	return AuditInfo{
		CreatedBy:  actor,
		CreatedAt:  now,
		ModifiedBy: actor,
		ModifiedAt: now,
	}
}

// Touch updates the modification fields.
func (a *AuditInfo) Touch(actor string) {
	a.ModifiedBy = actor
	a.ModifiedAt = time.Now().UTC()
}

// ============================================================================
// Context Keys
// ============================================================================

type ContextKey string

const (
	// ActorContextKey stores the acting principal name for audit purposes.
	ActorContextKey ContextKey = "actor"

	// RequestIDKey stores the request id.
	RequestIDKey ContextKey = "request_id"
)
