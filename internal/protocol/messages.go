// Package protocol defines the client wire protocol: the inbound message
// union and the outbound event types. All frames are JSON objects carrying
// a "type" field in both directions.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/pscheid92/corkboard/internal/domain"
)

// Inbound message type strings.
const (
	TypeSet      = "set"
	TypeDelete   = "delete"
	TypeConfig   = "config"
	TypeSetName  = "setName"
	TypeUsers    = "users"
	TypeSetOwner = "setOwner"
)

// Outbound event type strings.
const (
	TypeNewSession   = "newSession"
	TypeNameChanged  = "nameChanged"
	TypeOwnerChanged = "ownerChanged"
	TypeQuit         = "quit"
	TypeError        = "error"
)

// Message is the decoded form of one inbound frame: exactly one variant per
// recognized operation, plus Unknown for forward compatibility.
type Message interface{ isMessage() }

// SetPost inserts or replaces a post. A post without an id is an add;
// the actor assigns a fresh id. A post with an id is a full replace.
type SetPost struct {
	Post domain.Post
}

// DeletePost removes the post with the given id. Absent ids are a no-op.
type DeletePost struct {
	ID string
}

// QueryConfig requests a full board snapshot, replied to the sender only.
type QueryConfig struct{}

// SetName renames the sending session.
type SetName struct {
	Name string
}

// QueryUsers requests the list of live session names, replied to the sender only.
type QueryUsers struct{}

// SetOwner claims board ownership for the given name.
type SetOwner struct {
	Owner string
}

// Unknown is any message type the server does not recognize. It is ignored
// without error so newer clients can talk to older servers.
type Unknown struct {
	Type string
}

func (SetPost) isMessage()     {}
func (DeletePost) isMessage()  {}
func (QueryConfig) isMessage() {}
func (SetName) isMessage()     {}
func (QueryUsers) isMessage()  {}
func (SetOwner) isMessage()    {}
func (Unknown) isMessage()     {}

// envelope is the raw inbound frame. Payload fields live alongside the type
// tag; which ones are meaningful depends on the type.
type envelope struct {
	Type  string          `json:"type"`
	Post  json.RawMessage `json:"post"`
	Name  string          `json:"name"`
	Owner string          `json:"owner"`
}

// Parse decodes one inbound frame into its typed variant. A malformed frame
// or a recognized type with a missing payload returns an error; the caller
// reports it to the sending session only.
func Parse(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	switch env.Type {
	case TypeSet:
		if len(env.Post) == 0 {
			return nil, fmt.Errorf("set message is missing a post")
		}
		var post domain.Post
		if err := json.Unmarshal(env.Post, &post); err != nil {
			return nil, fmt.Errorf("malformed post payload: %w", err)
		}
		return SetPost{Post: post}, nil

	case TypeDelete:
		if len(env.Post) == 0 {
			return nil, fmt.Errorf("delete message is missing a post")
		}
		var ref struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(env.Post, &ref); err != nil {
			return nil, fmt.Errorf("malformed post payload: %w", err)
		}
		return DeletePost{ID: ref.ID}, nil

	case TypeConfig:
		return QueryConfig{}, nil

	case TypeSetName:
		if env.Name == "" {
			return nil, fmt.Errorf("setName message is missing a name")
		}
		return SetName{Name: env.Name}, nil

	case TypeUsers:
		return QueryUsers{}, nil

	case TypeSetOwner:
		if env.Owner == "" {
			return nil, fmt.Errorf("setOwner message is missing an owner")
		}
		return SetOwner{Owner: env.Owner}, nil

	default:
		return Unknown{Type: env.Type}, nil
	}
}
