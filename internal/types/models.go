package types

// Campaign is one client/campaign/model combination as the API exposes it.
// Campaigns carry a current status from their status history; archived
// campaigns are excluded from statistics listings.
type Campaign struct {
	ID            int64   `json:"id"`
	ClientID      int64   `json:"clientId"`
	ClientName    string  `json:"clientName"`
	CampaignName  string  `json:"campaignName"`
	ModelName     string  `json:"modelName"`
	IsActive      bool    `json:"isActive"`
	CurrentStatus *string `json:"currentStatus,omitempty"`
}

// Status gating sets used by the API layer.
const (
	StatusEnabled  = "Enabled"
	StatusTesting  = "Testing"
	StatusDisabled = "Disabled"
	StatusArchived = "Archived"
)

// ResponseCategory is a raw category label as stored, with its display color.
type ResponseCategory struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Voice is a synthesized voice identity assignable to call stages.
type Voice struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is an API account. Roles drive both route access and data scoping:
// a "client" user sees only its own campaigns, a "client_member" sees its
// employer's campaigns, privileged roles (admin, onboarding, qa) see all.
type User struct {
	ID           int64    `json:"id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Roles        []string `json:"roles"`
	IsActive     bool     `json:"isActive"`
}
