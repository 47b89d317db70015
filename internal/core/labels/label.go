// Package labels implements the shared pool of admin-defined user labels.
// Assignment to a profile is a string list stored on the profile itself.
package labels

// UserLabel is one entry in the label pool.
type UserLabel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TS        uint64 `json:"timestamp"`
	CreatorID string `json:"creator"`
}

// Create is the input for adding a label to the pool.
type Create struct {
	Name string `json:"name"`
}
