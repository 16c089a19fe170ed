package board

import (
	"encoding/json"

	"github.com/pscheid92/corkboard/internal/metrics"
	"github.com/pscheid92/corkboard/internal/protocol"
)

// broadcast fans an event out to every live session.
func (b *Board) broadcast(eventType string, event any) {
	b.broadcastExcept(nil, eventType, event)
}

// broadcastExcept fans an event out to every live session but the sender.
// A session whose send fails is marked quit and dropped from the roster in
// the same pass, so one dead connection never blocks delivery to the rest.
// Departure notices for pruned sessions are then broadcast as an iterative
// fixed point: each notice pass can prune further dead sessions, and the
// loop terminates because the live roster strictly shrinks.
func (b *Board) broadcastExcept(sender *session, eventType string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		b.log.Error("Failed to marshal broadcast event", "type", eventType, "error", err)
		return
	}

	metrics.BroadcastEventsTotal.WithLabelValues(eventType).Inc()
	quitters := b.fanOut(sender, data)

	for len(quitters) > 0 {
		var next []*session
		for _, quitter := range quitters {
			notice, err := json.Marshal(protocol.QuitEvent{Type: protocol.TypeQuit, Name: quitter.name})
			if err != nil {
				continue
			}
			metrics.BroadcastEventsTotal.WithLabelValues(protocol.TypeQuit).Inc()
			next = append(next, b.fanOut(nil, notice)...)
		}
		quitters = next
	}
}

// fanOut delivers data to every live session except skip, pruning sessions
// whose send fails. The skipped sender receives nothing but is still pruned
// if its writer has already died. Returns the sessions pruned in this pass.
func (b *Board) fanOut(skip *session, data []byte) []*session {
	var quitters []*session
	live := b.sessions[:0]

	for _, sess := range b.sessions {
		if sess == skip {
			if sess.writer.failed() {
				quitters = append(quitters, b.prune(sess))
				continue
			}
			live = append(live, sess)
			continue
		}

		if err := sess.writer.trySend(data); err != nil {
			b.log.Debug("Pruning dead session", "session_id", sess.id.String(), "name", sess.name, "error", err)
			quitters = append(quitters, b.prune(sess))
			continue
		}
		live = append(live, sess)
	}

	b.sessions = live
	return quitters
}

// prune marks a session dead. The caller is rebuilding the roster and
// simply leaves the session out of it.
func (b *Board) prune(sess *session) *session {
	sess.quit = true
	sess.writer.stop()
	metrics.PrunedSessionsTotal.Inc()
	return sess
}

// sendTo delivers an event to a single session. A failure here is not fatal:
// the next broadcast pass or the connection's read pump will prune it.
func (b *Board) sendTo(sess *session, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		b.log.Error("Failed to marshal event", "error", err)
		return
	}
	if err := sess.writer.trySend(data); err != nil {
		b.log.Debug("Send to session failed", "session_id", sess.id.String(), "error", err)
	}
}
