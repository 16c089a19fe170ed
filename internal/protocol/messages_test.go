package protocol

import (
	"encoding/json"
	"testing"

	"github.com/pscheid92/corkboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Set(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"set","post":{"id":"123","text":"hello"}}`))
	require.NoError(t, err)

	set, ok := msg.(SetPost)
	require.True(t, ok)
	assert.Equal(t, "123", set.Post.ID())
	assert.Equal(t, "hello", set.Post["text"])
}

func TestParse_SetWithoutID(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"set","post":{"text":"no id yet"}}`))
	require.NoError(t, err)

	set, ok := msg.(SetPost)
	require.True(t, ok)
	assert.Empty(t, set.Post.ID())
}

func TestParse_Delete(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"delete","post":{"id":"42"}}`))
	require.NoError(t, err)

	del, ok := msg.(DeletePost)
	require.True(t, ok)
	assert.Equal(t, "42", del.ID)
}

func TestParse_Queries(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"config"}`))
	require.NoError(t, err)
	assert.IsType(t, QueryConfig{}, msg)

	msg, err = Parse([]byte(`{"type":"users"}`))
	require.NoError(t, err)
	assert.IsType(t, QueryUsers{}, msg)
}

func TestParse_SetName(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"setName","name":"alice"}`))
	require.NoError(t, err)

	setName, ok := msg.(SetName)
	require.True(t, ok)
	assert.Equal(t, "alice", setName.Name)
}

func TestParse_SetOwner(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"setOwner","owner":"bob"}`))
	require.NoError(t, err)

	setOwner, ok := msg.(SetOwner)
	require.True(t, ok)
	assert.Equal(t, "bob", setOwner.Owner)
}

func TestParse_UnknownType(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"somethingNew","payload":true}`))
	require.NoError(t, err)

	unknown, ok := msg.(Unknown)
	require.True(t, ok)
	assert.Equal(t, "somethingNew", unknown.Type)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `this is not json`},
		{"set without post", `{"type":"set"}`},
		{"set with bad post", `{"type":"set","post":"a string"}`},
		{"delete without post", `{"type":"delete"}`},
		{"setName without name", `{"type":"setName"}`},
		{"setOwner without owner", `{"type":"setOwner"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestDeleteEvent_WireFormat(t *testing.T) {
	data, err := json.Marshal(DeleteEvent{Type: TypeDelete, PostID: "99"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"delete","postId":"99"}`, string(data))
}

func TestErrorEvent_OmitsEmptyDetail(t *testing.T) {
	data, err := json.Marshal(NewError("an error occurred", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","message":"an error occurred"}`, string(data))

	data, err = json.Marshal(NewError("an error occurred", "context"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","message":"an error occurred","detail":"context"}`, string(data))
}

func TestNewSessionEvent_WireFormat(t *testing.T) {
	event := NewSessionEvent{
		Type: TypeNewSession,
		Name: "Anonymous.1700000000000",
		Board: domain.Snapshot{
			Posts:  []domain.Post{{"id": "1", "text": "hi"}},
			Config: domain.BoardConfig{ID: "demo", Title: "demo"},
			Users:  []string{"Anonymous.1700000000000"},
		},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "newSession", decoded["type"])
	assert.Equal(t, "Anonymous.1700000000000", decoded["name"])

	board, ok := decoded["board"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, board, "posts")
	assert.Contains(t, board, "config")
	assert.Contains(t, board, "users")
}
