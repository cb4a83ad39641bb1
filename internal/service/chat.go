package service

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sujalbistaa/whisperwall/internal/config"
	"github.com/sujalbistaa/whisperwall/internal/models"
)

const (
	EventMessagesRead = "chat:messages-read"

	defaultMessagesPerPage = 30
	maxEmojiLength         = 16
)

func orderedPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// findConversation returns nil without error when the pair has no thread yet.
func findConversation(tx *gorm.DB, a, b string) (*models.Conversation, error) {
	low, high := orderedPair(a, b)
	var c models.Conversation
	err := tx.Where("user_low = ? AND user_high = ?", low, high).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func requireUsers(tx *gorm.DB, ids ...string) error {
	var n int64
	if err := tx.Model(&models.User{}).Where("id IN ?", uniq(ids)).Count(&n).Error; err != nil {
		return err
	}
	if int(n) != len(uniq(ids)) {
		return notFound("user")
	}
	return nil
}

func getOrCreateConversation(tx *gorm.DB, a, b string) (*models.Conversation, error) {
	if a == b {
		return nil, validationf("cannot start a conversation with yourself")
	}
	if c, err := findConversation(tx, a, b); err != nil || c != nil {
		return c, err
	}
	if err := requireUsers(tx, a, b); err != nil {
		return nil, err
	}
	low, high := orderedPair(a, b)
	c := models.Conversation{UserLow: low, UserHigh: high}
	// A concurrent request may have created the pair; the unique index keeps
	// one row and we read back whichever won.
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&c).Error; err != nil {
		return nil, err
	}
	found, err := findConversation(tx, a, b)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errors.New("conversation vanished after insert")
	}
	return found, nil
}

// GetOrCreateBetween returns the single conversation for the unordered pair.
func (s *Service) GetOrCreateBetween(userA, userB string) (*models.Conversation, error) {
	return getOrCreateConversation(s.db, userA, userB)
}

// SendMessage appends a message from senderID to the thread with peerID. The
// sender is the first entry of readBy.
func (s *Service) SendMessage(senderID, peerID, text string, media []models.MediaItem) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(media) == 0 {
		return nil, validationf("message cannot be empty")
	}
	if utf8.RuneCountInString(text) > config.MaxMessageLength {
		return nil, validationf("message cannot exceed %d characters", config.MaxMessageLength)
	}

	now := s.now()
	msg := models.Message{
		SenderID:  senderID,
		Text:      text,
		Media:     media,
		ReadBy:    []string{senderID},
		CreatedAt: now,
		Reactions: []models.MessageReaction{},
	}
	var notif *models.Notification
	err := s.db.Transaction(func(tx *gorm.DB) error {
		c, err := getOrCreateConversation(tx, senderID, peerID)
		if err != nil {
			return err
		}
		msg.ConversationID = c.ID
		if err := tx.Omit(clause.Associations).Create(&msg).Error; err != nil {
			return err
		}
		if err := tx.Model(c).Update("last_message_at", now).Error; err != nil {
			return err
		}
		notif = &models.Notification{
			Type:        models.NotifyMessage,
			RecipientID: peerID,
			ActorID:     senderID,
			TargetID:    c.ID,
			TargetType:  "conversation",
			Message:     "sent you a message",
		}
		return tx.Create(notif).Error
	})
	if err != nil {
		return nil, err
	}

	s.emit(peerID, EventNewMessage, msg)
	s.deliver(notif)
	return &msg, nil
}

// Messages returns one page of the thread with peerID. Pages are counted from
// the newest message backwards; each page is returned oldest first.
func (s *Service) Messages(userID, peerID string, page, limit int) ([]models.Message, error) {
	if err := requireUsers(s.db, peerID); err != nil {
		return nil, err
	}
	c, err := findConversation(s.db, userID, peerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return []models.Message{}, nil
	}

	offset, size := Page(page, limit, defaultMessagesPerPage)
	var msgs []models.Message
	err = s.db.Preload("Reactions").
		Where("conversation_id = ?", c.ID).
		Order("created_at desc").Offset(offset).Limit(size).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ConversationSummary is one row of the inbox.
type ConversationSummary struct {
	ID            string             `json:"id"`
	Peer          models.UserSummary `json:"peer"`
	LastMessage   *models.Message    `json:"lastMessage"`
	LastMessageAt *time.Time         `json:"lastMessageAt"`
	UnreadCount   int                `json:"unreadCount"`
	PeerOnline    bool               `json:"peerOnline"`
}

// Conversations lists userID's threads, most recently active first. Threads
// without messages come last.
func (s *Service) Conversations(userID string) ([]ConversationSummary, error) {
	var convs []models.Conversation
	err := s.db.Where("user_low = ? OR user_high = ?", userID, userID).
		Order("last_message_at IS NULL, last_message_at desc").Find(&convs).Error
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return []ConversationSummary{}, nil
	}

	ids := make([]string, len(convs))
	peerIDs := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
		peerIDs[i] = c.PeerOf(userID)
	}
	peers, err := summaries(s.db, peerIDs)
	if err != nil {
		return nil, err
	}

	ranked := s.db.Model(&models.Message{}).
		Select("messages.*, ROW_NUMBER() OVER (PARTITION BY conversation_id ORDER BY created_at DESC) AS rn").
		Where("conversation_id IN ?", ids)
	var lasts []models.Message
	if err := s.db.Table("(?) AS ranked", ranked).Where("rn = 1").Find(&lasts).Error; err != nil {
		return nil, err
	}
	last := make(map[string]*models.Message, len(lasts))
	for i := range lasts {
		last[lasts[i].ConversationID] = &lasts[i]
	}

	var incoming []models.Message
	err = s.db.Select("id", "conversation_id", "sender_id", "read_by").
		Where("conversation_id IN ? AND sender_id <> ?", ids, userID).
		Find(&incoming).Error
	if err != nil {
		return nil, err
	}
	unread := make(map[string]int, len(convs))
	for i := range incoming {
		if !incoming[i].ReadByUser(userID) {
			unread[incoming[i].ConversationID]++
		}
	}

	out := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, ConversationSummary{
			ID:            c.ID,
			Peer:          peers[c.PeerOf(userID)],
			LastMessage:   last[c.ID],
			LastMessageAt: c.LastMessageAt,
			UnreadCount:   unread[c.ID],
		})
	}
	return out, nil
}

// MarkRead adds userID to readBy on every message peerID sent in their thread
// and returns how many messages changed. A second call returns 0.
func (s *Service) MarkRead(userID, peerID string) (int, error) {
	var updated []string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		c, err := findConversation(tx, userID, peerID)
		if err != nil || c == nil {
			return err
		}
		var msgs []models.Message
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("conversation_id = ? AND sender_id = ?", c.ID, peerID).
			Find(&msgs).Error
		if err != nil {
			return err
		}
		for i := range msgs {
			m := &msgs[i]
			if m.ReadByUser(userID) {
				continue
			}
			m.ReadBy = append(m.ReadBy, userID)
			if err := tx.Model(&models.Message{}).Where("id = ?", m.ID).Update("read_by", m.ReadBy).Error; err != nil {
				return err
			}
			updated = append(updated, m.ID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(updated) > 0 {
		s.emit(peerID, EventMessagesRead, map[string]interface{}{"readerId": userID, "messageIds": updated})
	}
	return len(updated), nil
}

// loadMessage fetches a message that belongs to the thread between userID and peerID.
func loadMessage(tx *gorm.DB, userID, peerID, messageID string) (*models.Message, error) {
	c, err := findConversation(tx, userID, peerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("message")
	}
	var m models.Message
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND conversation_id = ?", messageID, c.ID).Take(&m).Error
	if err != nil {
		return nil, asNotFound(err, "message")
	}
	return &m, nil
}

// EditMessage replaces the text of a message. Only the sender may edit, and
// only while nobody else has read it.
func (s *Service) EditMessage(userID, peerID, messageID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationf("message cannot be empty")
	}
	if utf8.RuneCountInString(text) > config.MaxMessageLength {
		return nil, validationf("message cannot exceed %d characters", config.MaxMessageLength)
	}

	var msg *models.Message
	err := s.db.Transaction(func(tx *gorm.DB) error {
		m, err := loadMessage(tx, userID, peerID, messageID)
		if err != nil {
			return err
		}
		if m.SenderID != userID {
			return forbidden("only the sender can edit this message")
		}
		if m.SeenByOthers() {
			return forbidden("message has already been read")
		}
		now := s.now()
		m.Text, m.EditedAt = text, &now
		if err := tx.Model(&models.Message{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
			"text":      m.Text,
			"edited_at": now,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", m.ID).Find(&m.Reactions).Error; err != nil {
			return err
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(peerID, EventMessageUpdated, msg)
	s.emit(userID, EventMessageUpdated, msg)
	return msg, nil
}

// DeleteMessage removes a message. Only the sender may delete it.
func (s *Service) DeleteMessage(userID, peerID, messageID string) error {
	var conversationID string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		m, err := loadMessage(tx, userID, peerID, messageID)
		if err != nil {
			return err
		}
		if m.SenderID != userID {
			return forbidden("only the sender can delete this message")
		}
		conversationID = m.ConversationID
		if err := tx.Where("message_id = ?", m.ID).Delete(&models.MessageReaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Message{}, "id = ?", m.ID).Error
	})
	if err != nil {
		return err
	}
	payload := map[string]string{"id": messageID, "conversationId": conversationID}
	s.emit(peerID, EventMessageDeleted, payload)
	s.emit(userID, EventMessageDeleted, payload)
	return nil
}

// MessageReactions is the payload of a message reaction change.
type MessageReactions struct {
	MessageID string                   `json:"messageId"`
	Reactions []models.MessageReaction `json:"reactions"`
}

// ReactToMessage sets userID's emoji on a message. Each participant has at
// most one emoji per message; sending the same emoji again removes it.
func (s *Service) ReactToMessage(userID, peerID, messageID, emoji string) (*MessageReactions, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || len(emoji) > maxEmojiLength {
		return nil, validationf("invalid emoji")
	}

	out := &MessageReactions{MessageID: messageID}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		m, err := loadMessage(tx, userID, peerID, messageID)
		if err != nil {
			return err
		}

		var existing models.MessageReaction
		err = tx.Where("message_id = ? AND user_id = ?", m.ID, userID).Take(&existing).Error
		switch {
		case err == nil && existing.Emoji == emoji:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		case err == nil:
			if err := tx.Model(&existing).Update("emoji", emoji).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.MessageReaction{MessageID: m.ID, UserID: userID, Emoji: emoji}).Error; err != nil {
				return err
			}
		default:
			return err
		}

		return tx.Where("message_id = ?", m.ID).Order("created_at asc").Find(&out.Reactions).Error
	})
	if err != nil {
		return nil, err
	}
	s.emit(peerID, EventMessageReacted, out)
	s.emit(userID, EventMessageReacted, out)
	return out, nil
}
