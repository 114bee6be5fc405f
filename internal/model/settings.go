package model

import "time"

// DefaultAppName is shown until an administrator saves settings.
const DefaultAppName = "Asset Nexus"

// Settings are the application-wide display settings.
type Settings struct {
	AppName     string     `json:"app_name"`
	CompanyName string     `json:"company_name"`
	LogoURL     string     `json:"logo_url"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	UpdatedBy   *int64     `json:"updated_by,omitempty"`
}
