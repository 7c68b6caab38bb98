package config

import (
	"net/http"
	"strings"
)

// DefaultOwnerHeader carries the caller's owner id.
const DefaultOwnerHeader = "X-Owner-ID"

// OwnerConfig controls how requests are attributed to an owner.
// Authentication happens upstream; the owner id is a trusted header.
type OwnerConfig struct {
	// Header is the request header holding the owner id.
	Header string `env:"OWNER_HEADER" envDefault:"X-Owner-ID"`

	// DevOwnerID is used when the header is absent and DEV is enabled.
	DevOwnerID string `env:"DEV_OWNER_ID" envDefault:"dev-owner"`
}

// Sanitize canonicalises the header name.
func (o *OwnerConfig) Sanitize() {
	o.Header = strings.TrimSpace(o.Header)
	if o.Header == "" {
		o.Header = DefaultOwnerHeader
	}
	o.Header = http.CanonicalHeaderKey(o.Header)
	o.DevOwnerID = strings.TrimSpace(o.DevOwnerID)
}
