package protocol

import "github.com/pscheid92/corkboard/internal/domain"

// NewSessionEvent is sent to a session once, immediately after it joins.
// It carries the session's generated name and the full board snapshot.
type NewSessionEvent struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Board domain.Snapshot `json:"board"`
}

// SetEvent announces an inserted or replaced post.
type SetEvent struct {
	Type string      `json:"type"`
	Post domain.Post `json:"post"`
}

// DeleteEvent announces a removed post.
type DeleteEvent struct {
	Type   string `json:"type"`
	PostID string `json:"postId"`
}

// ConfigEvent answers a config query with the full board snapshot.
type ConfigEvent struct {
	Type  string          `json:"type"`
	Board domain.Snapshot `json:"board"`
}

// NameChangedEvent announces a session rename.
type NameChangedEvent struct {
	Type    string `json:"type"`
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

// UsersEvent answers a users query with all live session names.
type UsersEvent struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// OwnerChangedEvent announces that board ownership was claimed.
type OwnerChangedEvent struct {
	Type     string `json:"type"`
	OldOwner string `json:"oldOwner"`
	NewOwner string `json:"newOwner"`
}

// QuitEvent announces a departed session.
type QuitEvent struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// ErrorEvent reports a protocol or validation failure to the offending
// sender only. Detail carries diagnostic context when available.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// NewError builds an ErrorEvent with the given human-readable message.
func NewError(message, detail string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Message: message, Detail: detail}
}
