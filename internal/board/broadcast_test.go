package board

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/corkboard/internal/protocol"
	"github.com/pscheid92/corkboard/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWriter records sends and can be told to fail. failOn maps a send index
// (0-based, counting attempts) to an error, so tests can make the writer die
// partway through a broadcast sequence.
type fakeWriter struct {
	sent     [][]byte
	attempts int
	failOn   map[int]error
	dead     bool
	stopped  bool
	broken   bool
}

func (f *fakeWriter) trySend(data []byte) error {
	idx := f.attempts
	f.attempts++
	if f.dead {
		return errWriterClosed
	}
	if err, ok := f.failOn[idx]; ok {
		f.dead = true
		return err
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeWriter) failed() bool { return f.dead }
func (f *fakeWriter) stop()        { f.stopped = true }
func (f *fakeWriter) closeBroken() { f.broken = true; f.stopped = true }

func (f *fakeWriter) eventTypes(t *testing.T) []string {
	t.Helper()
	types := make([]string, 0, len(f.sent))
	for _, data := range f.sent {
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(data, &env))
		types = append(types, env.Type)
	}
	return types
}

func newTestBoard(t *testing.T) *Board {
	t.Helper()
	return New("test-board", storage.NewMemory(), clockwork.NewFakeClock())
}

func addSession(b *Board, name string, writer messageWriter) *session {
	sess := &session{id: uuid.New(), name: name, named: true, writer: writer}
	b.sessions = append(b.sessions, sess)
	return sess
}

func TestBroadcast_ReachesAllSessions(t *testing.T) {
	b := newTestBoard(t)
	w1, w2 := &fakeWriter{}, &fakeWriter{}
	addSession(b, "alice", w1)
	addSession(b, "bob", w2)

	b.broadcast(protocol.TypeSet, protocol.SetEvent{Type: protocol.TypeSet})

	assert.Equal(t, []string{"set"}, w1.eventTypes(t))
	assert.Equal(t, []string{"set"}, w2.eventTypes(t))
}

func TestBroadcastExcept_SkipsSender(t *testing.T) {
	b := newTestBoard(t)
	w1, w2 := &fakeWriter{}, &fakeWriter{}
	sender := addSession(b, "alice", w1)
	addSession(b, "bob", w2)

	b.broadcastExcept(sender, protocol.TypeSet, protocol.SetEvent{Type: protocol.TypeSet})

	assert.Empty(t, w1.sent)
	assert.Equal(t, []string{"set"}, w2.eventTypes(t))
	assert.Len(t, b.sessions, 2)
}

func TestBroadcast_PrunesDeadSessionAndAnnouncesQuit(t *testing.T) {
	b := newTestBoard(t)
	alive := &fakeWriter{}
	dying := &fakeWriter{failOn: map[int]error{0: errSendBufferFull}}
	addSession(b, "alice", alive)
	dead := addSession(b, "bob", dying)

	b.broadcast(protocol.TypeSet, protocol.SetEvent{Type: protocol.TypeSet})

	// Alice got the event plus bob's departure notice.
	assert.Equal(t, []string{"set", "quit"}, alive.eventTypes(t))
	assert.True(t, dying.stopped)
	assert.True(t, dead.quit)
	require.Len(t, b.sessions, 1)
	assert.Equal(t, "alice", b.sessions[0].name)
}

func TestBroadcast_QuitNoticeNamesTheDeparted(t *testing.T) {
	b := newTestBoard(t)
	alive := &fakeWriter{}
	addSession(b, "alice", alive)
	addSession(b, "bob", &fakeWriter{failOn: map[int]error{0: errWriterClosed}})

	b.broadcast(protocol.TypeSet, protocol.SetEvent{Type: protocol.TypeSet})

	require.Len(t, alive.sent, 2)
	var quit protocol.QuitEvent
	require.NoError(t, json.Unmarshal(alive.sent[1], &quit))
	assert.Equal(t, "bob", quit.Name)
}

func TestBroadcast_PruneCascadeReachesFixedPoint(t *testing.T) {
	// Bob dies on the original event. Carol survives it but dies on bob's
	// departure notice. Alice must see the event and both departures, and the
	// cascade must terminate with only alice in the roster.
	b := newTestBoard(t)
	alice := &fakeWriter{}
	bob := &fakeWriter{failOn: map[int]error{0: errSendBufferFull}}
	carol := &fakeWriter{failOn: map[int]error{1: errSendBufferFull}}
	addSession(b, "alice", alice)
	addSession(b, "bob", bob)
	addSession(b, "carol", carol)

	b.broadcast(protocol.TypeSet, protocol.SetEvent{Type: protocol.TypeSet})

	assert.Equal(t, []string{"set", "quit", "quit"}, alice.eventTypes(t))
	require.Len(t, b.sessions, 1)
	assert.Equal(t, "alice", b.sessions[0].name)

	var last protocol.QuitEvent
	require.NoError(t, json.Unmarshal(alice.sent[2], &last))
	assert.Equal(t, "carol", last.Name)
}

func TestBroadcast_AllSessionsDead(t *testing.T) {
	b := newTestBoard(t)
	addSession(b, "alice", &fakeWriter{failOn: map[int]error{0: errWriterClosed}})
	addSession(b, "bob", &fakeWriter{failOn: map[int]error{0: errWriterClosed}})

	b.broadcast(protocol.TypeSet, protocol.SetEvent{Type: protocol.TypeSet})

	assert.Empty(t, b.sessions)
}

func TestBroadcastExcept_PrunesSkippedSenderWhoseWriterDied(t *testing.T) {
	b := newTestBoard(t)
	alive := &fakeWriter{}
	deadWriter := &fakeWriter{dead: true}
	sender := addSession(b, "alice", deadWriter)
	addSession(b, "bob", alive)

	b.broadcastExcept(sender, protocol.TypeSet, protocol.SetEvent{Type: protocol.TypeSet})

	// The sender never receives the event but is still pruned, and its
	// departure is announced to the survivors.
	assert.Empty(t, deadWriter.sent)
	assert.True(t, sender.quit)
	assert.Equal(t, []string{"set", "quit"}, alive.eventTypes(t))
	require.Len(t, b.sessions, 1)
	assert.Equal(t, "bob", b.sessions[0].name)
}

func TestSendTo_FailureDoesNotTouchRoster(t *testing.T) {
	b := newTestBoard(t)
	w := &fakeWriter{failOn: map[int]error{0: errors.New("boom")}}
	sess := addSession(b, "alice", w)

	b.sendTo(sess, protocol.NewError("an error occurred", ""))

	// sendTo is best effort; pruning happens on the next broadcast.
	assert.Len(t, b.sessions, 1)
	assert.False(t, sess.quit)
}
