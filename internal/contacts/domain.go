package contacts

import "time"

// Relationship statuses. A pair has at most one row; symmetric lookups
// check both directions.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusBlocked  = "blocked"
)

// Relationship is a contact edge between two accounts. RequesterID sent the
// request; TargetID is the account that may accept or reject it.
type Relationship struct {
	ID          int64      `json:"id"`
	RequesterID int64      `json:"requester_id"`
	TargetID    int64      `json:"target_id"`
	Status      string     `json:"status"`
	CompanyCode string     `json:"company_code,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// Involves reports whether the account is one of the two parties.
func (r *Relationship) Involves(accountID int64) bool {
	return r.RequesterID == accountID || r.TargetID == accountID
}
