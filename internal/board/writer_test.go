package board

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnPair(t *testing.T) (server *ws.Conn, client *ws.Conn) {
	t.Helper()
	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ready := make(chan *ws.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ready <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-ready
	t.Cleanup(func() { serverConn.Close() })

	return serverConn, clientConn
}

func TestClientWriter_DeliversMessages(t *testing.T) {
	server, client := newTestConnPair(t)
	cw := newClientWriter(server, clockwork.NewRealClock())
	t.Cleanup(cw.stop)

	require.NoError(t, cw.trySend([]byte(`first`)))
	require.NoError(t, cw.trySend([]byte(`second`)))

	for _, want := range []string{"first", "second"} {
		require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
		_, data, err := client.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestClientWriter_TrySendAfterStop(t *testing.T) {
	server, client := newTestConnPair(t)
	_ = client
	cw := newClientWriter(server, clockwork.NewRealClock())

	cw.stop()

	assert.ErrorIs(t, cw.trySend([]byte(`late`)), errWriterClosed)
}

func TestClientWriter_StopIdempotent(t *testing.T) {
	server, client := newTestConnPair(t)
	_ = client
	cw := newClientWriter(server, clockwork.NewRealClock())

	cw.stop()
	cw.stop()
	cw.stop()
}

func TestClientWriter_ConcurrentStop(t *testing.T) {
	server, client := newTestConnPair(t)
	_ = client
	cw := newClientWriter(server, clockwork.NewRealClock())

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cw.stop()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent stop calls deadlocked")
	}
}

func TestClientWriter_WriteFailureMarksFailed(t *testing.T) {
	server, client := newTestConnPair(t)
	_ = client
	cw := newClientWriter(server, clockwork.NewRealClock())
	t.Cleanup(cw.stop)

	// Sever the transport underneath the writer; the next write must fail
	// and the writer must report itself dead.
	require.NoError(t, server.UnderlyingConn().Close())
	_ = cw.trySend([]byte(`doomed`))

	require.Eventually(t, cw.failed, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, cw.trySend([]byte(`after death`)), errWriterClosed)
}

func TestClientWriter_CloseBrokenSendsCloseFrame(t *testing.T) {
	server, client := newTestConnPair(t)
	cw := newClientWriter(server, clockwork.NewRealClock())

	cw.closeBroken()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := client.ReadMessage()
	closeErr, ok := err.(*ws.CloseError)
	require.True(t, ok, "expected a close frame, got %v", err)
	assert.Equal(t, ws.CloseInternalServerErr, closeErr.Code)
	assert.Equal(t, "websocket broken", closeErr.Text)
}

func TestDefaultName(t *testing.T) {
	assert.Equal(t, "Anonymous.1700000000000", defaultName(1700000000000))
}
