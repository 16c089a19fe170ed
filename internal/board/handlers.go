package board

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/pscheid92/corkboard/internal/domain"
	"github.com/pscheid92/corkboard/internal/metrics"
	"github.com/pscheid92/corkboard/internal/protocol"
)

const internalErrorMessage = "an error occurred"

// handleInbound parses one frame from a session and dispatches it. Message
// handling is mutate, persist, broadcast, in that order: a receiver observing
// a broadcast is guaranteed the store already reflects the change.
func (b *Board) handleInbound(sess *session, data []byte) {
	if sess.quit {
		sess.writer.closeBroken()
		return
	}

	msg, err := protocol.Parse(data)
	if err != nil {
		metrics.ParseErrorsTotal.Inc()
		b.sendTo(sess, protocol.NewError(internalErrorMessage, err.Error()))
		return
	}

	switch m := msg.(type) {
	case protocol.SetPost:
		metrics.MessagesReceivedTotal.WithLabelValues(protocol.TypeSet).Inc()
		b.handleSet(sess, m.Post)
	case protocol.DeletePost:
		metrics.MessagesReceivedTotal.WithLabelValues(protocol.TypeDelete).Inc()
		b.handleDelete(sess, m.ID)
	case protocol.QueryConfig:
		metrics.MessagesReceivedTotal.WithLabelValues(protocol.TypeConfig).Inc()
		b.sendTo(sess, protocol.ConfigEvent{Type: protocol.TypeConfig, Board: b.snapshot()})
	case protocol.SetName:
		metrics.MessagesReceivedTotal.WithLabelValues(protocol.TypeSetName).Inc()
		b.handleSetName(sess, m.Name)
	case protocol.QueryUsers:
		metrics.MessagesReceivedTotal.WithLabelValues(protocol.TypeUsers).Inc()
		b.sendTo(sess, protocol.UsersEvent{Type: protocol.TypeUsers, Users: b.sessionNames()})
	case protocol.SetOwner:
		metrics.MessagesReceivedTotal.WithLabelValues(protocol.TypeSetOwner).Inc()
		b.handleSetOwner(sess, m.Owner)
	case protocol.Unknown:
		// Deliberately ignored so newer clients keep working.
		metrics.UnknownMessagesTotal.Inc()
		b.log.Debug("Ignoring unknown message type", "type", m.Type)
	}
}

// handleSet inserts a post (no id: the actor assigns one) or replaces an
// existing one. A set with an unknown id is a permissive upsert.
func (b *Board) handleSet(sess *session, post domain.Post) {
	isAdd := post.ID() == ""
	if isAdd {
		post.SetID(b.nextPostID())
	}

	key := domain.PostKey(post.ID())
	b.posts[key] = post

	if err := b.persist(key, post); err != nil {
		b.log.Error("Failed to persist post", "key", key, "error", err)
		b.sendTo(sess, protocol.NewError(internalErrorMessage, err.Error()))
		return
	}

	event := protocol.SetEvent{Type: protocol.TypeSet, Post: post}
	if isAdd {
		b.broadcast(protocol.TypeSet, event)
	} else {
		// Replaces skip the author: it already has the state it sent.
		b.broadcastExcept(sess, protocol.TypeSet, event)
	}
}

// handleDelete removes a post. Deleting an absent id is a complete no-op:
// no store call, no broadcast.
func (b *Board) handleDelete(sess *session, id string) {
	key := domain.PostKey(id)
	if _, ok := b.posts[key]; !ok {
		return
	}

	delete(b.posts, key)

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := b.store.Delete(ctx, b.id, key); err != nil {
		b.log.Error("Failed to delete post", "key", key, "error", err)
		b.sendTo(sess, protocol.NewError(internalErrorMessage, err.Error()))
		return
	}

	b.broadcast(protocol.TypeDelete, protocol.DeleteEvent{Type: protocol.TypeDelete, PostID: id})
}

// handleSetName renames the sending session. Names must be unique among live
// sessions; renaming to one's own current name is a success no-op.
func (b *Board) handleSetName(sess *session, name string) {
	if name == sess.name {
		return
	}
	if b.nameInUse(name, sess) {
		b.sendTo(sess, protocol.NewError(domain.ErrNameTaken.Error(), "name "+name+" already in use"))
		return
	}

	oldName := sess.name
	sess.name = name
	sess.named = true

	b.broadcast(protocol.TypeNameChanged, protocol.NameChangedEvent{
		Type:    protocol.TypeNameChanged,
		OldName: oldName,
		NewName: name,
	})
}

// handleSetOwner claims board ownership. The owner can be set exactly once;
// the in-memory claim is rolled back if persisting it fails, so the board
// never ends up owned in memory but unowned in the store.
func (b *Board) handleSetOwner(sess *session, owner string) {
	if b.config.Owner != "" {
		b.sendTo(sess, protocol.NewError(domain.ErrOwnerAlreadySet.Error(), ""))
		return
	}

	oldOwner := b.config.Owner
	b.config.Owner = owner

	if err := b.persist(domain.ConfigKey, b.config); err != nil {
		b.config.Owner = oldOwner
		b.log.Error("Failed to persist config", "error", err)
		b.sendTo(sess, protocol.NewError(internalErrorMessage, err.Error()))
		return
	}

	b.broadcast(protocol.TypeOwnerChanged, protocol.OwnerChangedEvent{
		Type:     protocol.TypeOwnerChanged,
		OldOwner: oldOwner,
		NewOwner: owner,
	})
}

// persist marshals value and writes it under key with the store timeout.
func (b *Board) persist(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	return b.store.Put(ctx, b.id, key, data)
}

// nextPostID assigns a fresh post id from the current millisecond timestamp,
// probing upward until unused so rapid adds never collide.
func (b *Board) nextPostID() string {
	ts := b.clock.Now().UnixMilli()
	for {
		id := strconv.FormatInt(ts, 10)
		if _, exists := b.posts[domain.PostKey(id)]; !exists {
			return id
		}
		ts++
	}
}

func sortPostsByID(posts []domain.Post) {
	slices.SortFunc(posts, func(a, b domain.Post) int {
		aID, bID := a.ID(), b.ID()
		// Shorter numeric ids sort first, so timestamp ids stay in
		// chronological order even across digit-count boundaries.
		if len(aID) != len(bID) {
			return len(aID) - len(bID)
		}
		return strings.Compare(aID, bID)
	})
}
