package board

import (
	"fmt"

	"github.com/google/uuid"
)

// session is the live state of one connected participant. It is owned by the
// board actor for its registered lifetime: only the actor goroutine touches
// name, named and quit.
type session struct {
	id uuid.UUID

	// name is unique among the board's live sessions. named becomes true
	// once the client has successfully set a name; sessions that never did
	// leave silently.
	name  string
	named bool

	// quit is a terminal marker. Once set the session is out of the roster
	// and no further sends are attempted on it.
	quit bool

	writer messageWriter
}

// defaultName builds the initial display name for a new session.
func defaultName(unixMilli int64) string {
	return fmt.Sprintf("Anonymous.%d", unixMilli)
}
