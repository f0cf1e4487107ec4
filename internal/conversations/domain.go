package conversations

import "time"

// Conversation is the metadata record for a chat thread. Message delivery
// is handled elsewhere; this module owns membership and lifecycle.
type Conversation struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	CreatorID       int64     `json:"creator_id"`
	CompanyCode     string    `json:"company_code"`
	ApplicationCode string    `json:"application_code,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Participant links an account to a conversation.
type Participant struct {
	ConversationID int64     `json:"conversation_id"`
	AccountID      int64     `json:"account_id"`
	JoinedAt       time.Time `json:"joined_at"`
}
