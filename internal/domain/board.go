// Package domain holds the core types of the board service and the
// interfaces its storage backends implement.
package domain

import "encoding/json"

// BoardConfig is the durable configuration of one board. ID and Title are
// fixed at creation; Owner is set at most once via the setOwner operation.
type BoardConfig struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Owner string `json:"owner,omitempty"`
}

// Post is one shared item on a board. Clients define its fields; the server
// only cares about the "id" field, which it assigns when absent.
type Post map[string]any

// ID returns the post's id field, or "" if unset or not a string.
func (p Post) ID() string {
	id, _ := p["id"].(string)
	return id
}

// SetID sets the post's id field.
func (p Post) SetID(id string) {
	p["id"] = id
}

// DecodePost unmarshals a post from its stored JSON representation.
func DecodePost(data []byte) (Post, error) {
	var p Post
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// Snapshot is the full current state of a board as exposed to clients:
// all posts, the config, and the display names of all live sessions.
type Snapshot struct {
	Posts  []Post      `json:"posts"`
	Config BoardConfig `json:"config"`
	Users  []string    `json:"users"`
}
