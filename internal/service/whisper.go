package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/sujalbistaa/whisperwall/internal/config"
	"github.com/sujalbistaa/whisperwall/internal/models"
)

// Whisper rooms. Confession whispers use the short TTL.
const (
	RoomWall       = "wall"
	RoomConfession = "confession"
)

type NewWhisper struct {
	Text     string
	Category models.Category
	Room     string
}

func (s *Service) ttlFor(room string) time.Duration {
	if room == RoomConfession {
		return s.opts.ConfessionTTL
	}
	return s.opts.WhisperTTL
}

// CreateWhisper posts an anonymous whisper owned by sessionID.
func (s *Service) CreateWhisper(sessionID string, in NewWhisper) (*models.WhisperPost, error) {
	if sessionID == "" {
		return nil, validationf("missing whisper session")
	}
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return nil, validationf("whisper cannot be empty")
	}
	if utf8.RuneCountInString(in.Text) > config.MaxPostLength {
		return nil, validationf("whisper cannot exceed %d characters", config.MaxPostLength)
	}
	if in.Category == "" {
		in.Category = models.CategoryConfession
	}
	if !in.Category.Valid() {
		return nil, validationf("invalid category %q", in.Category)
	}
	switch in.Room {
	case "":
		in.Room = RoomWall
	case RoomWall, RoomConfession:
	default:
		return nil, validationf("invalid room %q", in.Room)
	}

	now := s.now()
	w := models.WhisperPost{
		SessionID: sessionID,
		Text:      in.Text,
		Category:  in.Category,
		Room:      in.Room,
		ExpiresAt: now.Add(s.ttlFor(in.Room)),
		CreatedAt: now,
	}
	if err := s.db.Create(&w).Error; err != nil {
		return nil, err
	}
	s.broadcast(EventWhisperNew, w)
	w.IsOwn = true
	return &w, nil
}

// ListWhispers returns live whispers newest first. Expired whispers are
// filtered here whether or not the reaper has removed them yet.
func (s *Service) ListWhispers(sessionID, room string, page, limit int) ([]models.WhisperPost, error) {
	q := liveWhispers(s.db, s.now())
	if room != "" {
		q = q.Where("room = ?", room)
	}
	offset, size := Page(page, limit, config.DefaultFeedPageSize)
	var whispers []models.WhisperPost
	if err := q.Order("created_at desc").Offset(offset).Limit(size).Find(&whispers).Error; err != nil {
		return nil, err
	}
	if err := s.annotateWhispers(sessionID, whispers); err != nil {
		return nil, err
	}
	return whispers, nil
}

// GetWhisper returns one live whisper.
func (s *Service) GetWhisper(sessionID, postID string) (*models.WhisperPost, error) {
	var w models.WhisperPost
	if err := liveWhispers(s.db, s.now()).Where("id = ?", postID).Take(&w).Error; err != nil {
		return nil, asNotFound(err, "post")
	}
	list := []models.WhisperPost{w}
	if err := s.annotateWhispers(sessionID, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ForwardWhisper reposts a live whisper under sessionID as the next hop of
// its chain. The new whisper gets a fresh lifetime.
func (s *Service) ForwardWhisper(sessionID, postID string) (*models.WhisperPost, error) {
	if sessionID == "" {
		return nil, validationf("missing whisper session")
	}
	now := s.now()
	var fwd models.WhisperPost
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var src models.WhisperPost
		if err := liveWhispers(tx, now).Where("id = ?", postID).Take(&src).Error; err != nil {
			return asNotFound(err, "post")
		}
		if src.HopCount >= config.MaxWhisperChainHops {
			return validationf("whisper chain reached the %d hop limit", config.MaxWhisperChainHops)
		}
		chainID := src.ChainID
		if chainID == "" {
			chainID = src.ID
			if err := tx.Model(&src).Update("chain_id", chainID).Error; err != nil {
				return err
			}
		}
		fwd = models.WhisperPost{
			SessionID: sessionID,
			Text:      src.Text,
			Category:  src.Category,
			Room:      src.Room,
			ChainID:   chainID,
			HopCount:  src.HopCount + 1,
			ExpiresAt: now.Add(s.ttlFor(src.Room)),
			CreatedAt: now,
		}
		return tx.Create(&fwd).Error
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(EventWhisperNew, fwd)
	fwd.IsOwn = true
	return &fwd, nil
}

// HideWhisper soft-deletes a whisper. Its own session or an admin may hide it.
func (s *Service) HideWhisper(sessionID, postID string, admin bool) error {
	var w models.WhisperPost
	if err := s.db.Where("id = ?", postID).Take(&w).Error; err != nil {
		return asNotFound(err, "post")
	}
	if !admin && (sessionID == "" || w.SessionID != sessionID) {
		return forbidden("only the author can remove this whisper")
	}
	if err := s.db.Model(&w).Update("is_hidden", true).Error; err != nil {
		return err
	}
	s.broadcast(EventWhisperRemoved, map[string]string{"id": w.ID})
	return nil
}

// ReapExpired hard-deletes whispers that expired before now together with
// their reactions and comments. It returns how many whispers were removed.
func (s *Service) ReapExpired(now time.Time) (int64, error) {
	var removed int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&models.WhisperPost{}).Where("expires_at <= ?", now.UTC()).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := purgeLedger(tx, models.TargetWhisper, ids); err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.WhisperPost{})
		removed = res.RowsAffected
		return res.Error
	})
	return removed, err
}
