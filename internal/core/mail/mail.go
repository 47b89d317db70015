// Package mail implements direct messages with per-recipient fan-out and
// remote delivery for federated recipients.
package mail

// State is the read state of a letter.
type State string

const (
	StateUnread State = "Unread"
	StateRead   State = "Read"
)

// Mail is one letter with N recipients. Recipients persist as a JSON
// list; legacy rows hold a bare string and are tolerated on read.
type Mail struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	TS         uint64   `json:"timestamp"`
	State      State    `json:"state"`
	AuthorID   string   `json:"author"`
	Recipients []string `json:"recipient"`
}

// Create is the input for sending mail.
type Create struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Recipients []string `json:"recipient"`
}

// SetState is the input for a state transition.
type SetState struct {
	State State `json:"state"`
}
