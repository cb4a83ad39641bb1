package service

import (
	"github.com/sujalbistaa/whisperwall/internal/config"
	"github.com/sujalbistaa/whisperwall/internal/models"
)

// Notify persists a notification and pushes it to the recipient.
func (s *Service) Notify(n *models.Notification) error {
	if n.RecipientID == "" {
		return validationf("notification needs a recipient")
	}
	if err := s.db.Create(n).Error; err != nil {
		return err
	}
	s.deliver(n)
	return nil
}

// Notifications lists userID's inbox newest first.
func (s *Service) Notifications(userID string, unreadOnly bool, page, limit int) ([]models.Notification, error) {
	q := s.db.Where("recipient_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	offset, size := Page(page, limit, config.DefaultFeedPageSize)
	var out []models.Notification
	err := q.Order("created_at desc").Offset(offset).Limit(size).Find(&out).Error
	return out, err
}

func (s *Service) UnreadNotifications(userID string) (int64, error) {
	var n int64
	err := s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkNotificationRead flags one notification as read. Other users'
// notifications are reported as not found.
func (s *Service) MarkNotificationRead(userID, notificationID string) error {
	var n models.Notification
	if err := s.db.Where("id = ?", notificationID).Take(&n).Error; err != nil {
		return asNotFound(err, "notification")
	}
	if n.RecipientID != userID {
		return notFound("notification")
	}
	return s.db.Model(&n).Update("is_read", true).Error
}

// MarkAllNotificationsRead returns how many notifications changed.
func (s *Service) MarkAllNotificationsRead(userID string) (int64, error) {
	res := s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
