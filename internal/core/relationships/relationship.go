// Package relationships implements the symmetric relationship state
// machine: Unknown, Pending, Friends, Blocked.
package relationships

// Status is the state of an unordered user pair. Unknown is represented
// by row absence.
type Status string

const (
	StatusUnknown Status = "Unknown"
	StatusPending Status = "Pending"
	StatusFriends Status = "Friends"
	StatusBlocked Status = "Blocked"
)

// Relationship stores one ordered row per unordered pair. The order of
// One/Two carries meaning only for Pending (One requested Two) and
// Blocked (One blocked Two).
type Relationship struct {
	One    string `json:"one"`
	Two    string `json:"two"`
	Status Status `json:"status"`
	TS     uint64 `json:"timestamp"`
}
