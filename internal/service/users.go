package service

import (
	"errors"
	"regexp"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sujalbistaa/whisperwall/internal/config"
	"github.com/sujalbistaa/whisperwall/internal/models"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

// CreateUser registers a profile. Credentials are handled by the auth gateway.
func (s *Service) CreateUser(username, displayName string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, validationf("username must be 3-32 letters, digits or underscores")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}

	var taken int64
	if err := s.db.Model(&models.User{}).Where("username = ?", username).Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, validationf("username %q is taken", username)
	}

	u := models.User{Username: username, DisplayName: displayName, Preferences: []string{}}
	if err := s.db.Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser returns a profile with echo counts.
func (s *Service) GetUser(userID string) (*models.User, error) {
	var u models.User
	if err := s.db.Where("id = ?", userID).Take(&u).Error; err != nil {
		return nil, asNotFound(err, "user")
	}
	var echoers, echoing int64
	if err := s.db.Model(&models.Echo{}).Where("followee_id = ?", userID).Count(&echoers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Echo{}).Where("follower_id = ?", userID).Count(&echoing).Error; err != nil {
		return nil, err
	}
	u.EchoersCount, u.EchoingCount = int(echoers), int(echoing)
	return &u, nil
}

// UserExists reports whether userID names a registered user.
func (s *Service) UserExists(userID string) (bool, error) {
	var n int64
	err := s.db.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error
	return n > 0, err
}

// SetPreferences replaces the user's preferred feed categories.
func (s *Service) SetPreferences(userID string, categories []models.Category) (*models.User, error) {
	prefs := make([]string, 0, len(categories))
	seen := map[models.Category]bool{}
	for _, c := range categories {
		if !c.Valid() {
			return nil, validationf("invalid category %q", c)
		}
		if !seen[c] {
			seen[c] = true
			prefs = append(prefs, string(c))
		}
	}
	res := s.db.Model(&models.User{}).Where("id = ?", userID).Update("preferences", datatypes.JSONSlice[string](prefs))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, notFound("user")
	}
	return s.GetUser(userID)
}

// Echo makes followerID follow followeeID. Echoing twice is a no-op.
func (s *Service) Echo(followerID, followeeID string) error {
	if followerID == followeeID {
		return validationf("cannot echo yourself")
	}
	var notif *models.Notification
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := requireUsers(tx, followerID, followeeID); err != nil {
			return err
		}
		var existing models.Echo
		err := tx.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Take(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		edge := models.Echo{FollowerID: followerID, FolloweeID: followeeID}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		notif = &models.Notification{
			Type:        models.NotifyEcho,
			RecipientID: followeeID,
			ActorID:     followerID,
			TargetID:    followerID,
			TargetType:  "user",
			Message:     "started echoing you",
		}
		return tx.Create(notif).Error
	})
	if err != nil {
		return err
	}
	s.deliver(notif)
	return nil
}

// Unecho removes the follow edge if present.
func (s *Service) Unecho(followerID, followeeID string) error {
	return s.db.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Echo{}).Error
}

// Echoers lists who echoes userID.
func (s *Service) Echoers(userID string, page, limit int) ([]models.UserSummary, error) {
	return s.echoList(userID, "followee_id", "follower_id", page, limit)
}

// Echoing lists who userID echoes.
func (s *Service) Echoing(userID string, page, limit int) ([]models.UserSummary, error) {
	return s.echoList(userID, "follower_id", "followee_id", page, limit)
}

func (s *Service) echoList(userID, matchCol, pickCol string, page, limit int) ([]models.UserSummary, error) {
	if err := requireUsers(s.db, userID); err != nil {
		return nil, err
	}
	offset, size := Page(page, limit, config.DefaultFeedPageSize)
	var ids []string
	err := s.db.Model(&models.Echo{}).Where(matchCol+" = ?", userID).
		Order("created_at desc").Offset(offset).Limit(size).Pluck(pickCol, &ids).Error
	if err != nil {
		return nil, err
	}
	users, err := summaries(s.db, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}
