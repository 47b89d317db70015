// Package remote is the federation client. Identifiers may be fully
// qualified as server@local-id; this package resolves the server part to
// a peer descriptor, verifies schema support and speaks the peer's HTTP
// API.
package remote

// Schemas a peer may advertise.
const (
	SchemaProfile = "Profile"
	SchemaMail    = "Mail"
)

// Descriptor is the peer's self-description fetched during discovery.
type Descriptor struct {
	ID      string   `json:"id"`
	Schemas []string `json:"schemas"`
}

// Supports reports whether the peer advertises the schema.
func (d Descriptor) Supports(schema string) bool {
	for _, s := range d.Schemas {
		if s == schema {
			return true
		}
	}
	return false
}

// Envelope is the peer's uniform response wrapper.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Payload *T     `json:"payload"`
}
