// Package service holds the domain operations: the reaction ledger, posts and
// comments, the whisper wall, feed composition, chat and notifications.
// Every multi-row mutation runs in a single gorm transaction; realtime pushes
// are sent after commit and never fail the operation.
package service

import (
	"time"

	"gorm.io/gorm"

	"github.com/sujalbistaa/whisperwall/internal/config"
	"github.com/sujalbistaa/whisperwall/internal/models"
)

// Socket event names.
const (
	EventNewMessage      = "chat:new-message"
	EventMessageUpdated  = "chat:message-updated"
	EventMessageDeleted  = "chat:message-deleted"
	EventMessageReacted  = "chat:message-reacted"
	EventNotificationNew = "notification:new"
	EventWhisperNew      = "whisper:new"
	EventWhisperRemoved  = "whisper:removed"
)

// Pusher delivers realtime events. Implementations must not block.
type Pusher interface {
	EmitTo(userID, event string, data interface{})
	Broadcast(event string, data interface{})
}

type Options struct {
	WhisperTTL    time.Duration
	ConfessionTTL time.Duration
	WhisperSample int
}

// OptionsFromConfig picks the service settings out of the process config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WhisperTTL:    cfg.WhisperTTL,
		ConfessionTTL: cfg.ConfessionTTL,
		WhisperSample: cfg.WhisperSample,
	}
}

type Service struct {
	db   *gorm.DB
	push Pusher
	opts Options

	// Now is the clock; tests replace it.
	Now func() time.Time
}

func New(db *gorm.DB, push Pusher, opts Options) *Service {
	if opts.WhisperTTL <= 0 {
		opts.WhisperTTL = 24 * time.Hour
	}
	if opts.ConfessionTTL <= 0 {
		opts.ConfessionTTL = 30 * time.Minute
	}
	if opts.WhisperSample < 0 {
		opts.WhisperSample = 0
	}
	return &Service{db: db, push: push, opts: opts, Now: time.Now}
}

// DB exposes the connection for health checks.
func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) now() time.Time { return s.Now().UTC() }

// Page normalizes 1-based page/limit query values into offset and limit.
func Page(page, limit, def int) (offset, size int) {
	if limit <= 0 {
		limit = def
	}
	if limit > config.MaxPageSize {
		limit = config.MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit, limit
}

func (s *Service) emit(userID, event string, data interface{}) {
	if s.push == nil || userID == "" {
		return
	}
	s.push.EmitTo(userID, event, data)
}

func (s *Service) broadcast(event string, data interface{}) {
	if s.push == nil {
		return
	}
	s.push.Broadcast(event, data)
}

// deliver pushes already persisted notifications to their recipients.
func (s *Service) deliver(notifs ...*models.Notification) {
	for _, n := range notifs {
		if n == nil {
			continue
		}
		s.emit(n.RecipientID, EventNotificationNew, n)
	}
}

// summaries loads public user projections keyed by id.
func summaries(tx *gorm.DB, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := tx.Where("id IN ?", uniq(ids)).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.Summary()
	}
	return out, nil
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
