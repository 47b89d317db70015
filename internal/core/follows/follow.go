// Package follows implements the asymmetric follow graph and its
// cached counters.
package follows

// UserFollow is a directed edge: User follows Following. At most one row
// exists per ordered pair and self-edges are forbidden.
type UserFollow struct {
	User      string `json:"user"`
	Following string `json:"following"`
}
