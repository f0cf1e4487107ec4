package webhooks

import "time"

// Webhook is a tenant-scoped subscription record. Delivery is out of scope;
// this module only manages the configuration.
type Webhook struct {
	ID          int64     `json:"id"`
	CompanyCode string    `json:"company_code"`
	URL         string    `json:"url"`
	Events      []string  `json:"events"`
	Secret      string    `json:"-"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
