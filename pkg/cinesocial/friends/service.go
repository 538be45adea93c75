// Package friends implements friend requests and friendships between users.
//
// A pending request is one row from the requester to the addressee. Accepting
// it turns that row into an accepted one and writes the reverse row, so an
// accepted friendship is always stored in both directions. Rejecting or
// cancelling deletes the pending row, which leaves the pair free to try again.
package friends

import (
	"context"
	"fmt"
	"time"

	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/database"
	"github.com/mikepea/cinesocial/pkg/cinesocial/metrics"
	"github.com/mikepea/cinesocial/pkg/cinesocial/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// State is the relationship between two users regardless of direction
type State string

const (
	StateNotFriends State = "not_friends"
	StatePending    State = "pending"
	StateFriends    State = "friends"
)

// Status describes the relationship between a pair. It is the same whichever
// user is asked about first.
type Status struct {
	State       State      `json:"state"`
	RequesterID uint       `json:"requester_id,omitempty"`
	Since       *time.Time `json:"since,omitempty"`
}

// Friend is a row of a user's friend list
type Friend struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	UserDesc     string    `json:"user_desc"`
	FriendsSince time.Time `json:"friends_since"`
}

// Request is a pending friend request seen from one side
type Request struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	RequestedAt time.Time `json:"requested_at"`
}

var (
	errRequestNotFound    = apperr.NotFound("Friend request not found")
	errFriendshipNotFound = apperr.NotFound("Friendship not found")
)

// Service implements the friendship state machine
type Service struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

// NewService creates a friends service
func NewService(db *gorm.DB, m *metrics.Metrics) *Service {
	return &Service{db: db, metrics: m}
}

// pairRows loads every row between a and b, in either direction
func pairRows(tx *gorm.DB, a, b uint) ([]models.Friendship, error) {
	var rows []models.Friendship
	err := tx.Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", a, b, b, a).
		Order("id").Find(&rows).Error
	return rows, err
}

// lockPair locks both users in id order so mirrored requests between the
// same pair cannot both pass the duplicate check. It fails with NotFound when
// b does not exist.
func lockPair(tx *gorm.DB, a, b uint) error {
	var ids []uint
	err := database.ForUpdate(tx).Model(&models.User{}).
		Where("id IN ?", []uint{a, b}).Order("id").Pluck("id", &ids).Error
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == b {
			return nil
		}
	}
	return apperr.NotFound("User not found")
}

// Request sends a friend request from a to b
func (s *Service) Request(ctx context.Context, a, b uint) (*models.Friendship, error) {
	if a == 0 || b == 0 {
		return nil, apperr.InvalidArgument("User ID and Friend ID are required")
	}
	if a == b {
		return nil, apperr.InvalidArgument("You cannot send a friend request to yourself")
	}

	request := models.Friendship{UserID: a, FriendID: b, Status: models.FriendshipPending}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPair(tx, a, b); err != nil {
			return err
		}

		rows, err := pairRows(tx, a, b)
		if err != nil {
			return err
		}
		switch statusOf(rows).State {
		case StateFriends:
			return apperr.Conflict("You are already friends")
		case StatePending:
			return apperr.Conflict("Friend request already exists")
		}

		return tx.Create(&request).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "User not found", "Friend request already exists")
	}
	s.metrics.RecordFriendship("request")
	return &request, nil
}

// Accept lets b accept the pending request a sent
func (s *Service) Accept(ctx context.Context, b, a uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Friendship{}).
			Where("user_id = ? AND friend_id = ? AND status = ?", a, b, models.FriendshipPending).
			Update("status", models.FriendshipAccepted)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errRequestNotFound
		}

		reverse := models.Friendship{UserID: b, FriendID: a, Status: models.FriendshipAccepted}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "friend_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).Create(&reverse).Error
	})
	if err != nil {
		return apperr.FromDB(err, "Friend request not found", "")
	}
	s.metrics.RecordFriendship("accept")
	return nil
}

// deletePending removes the pending row from requester to addressee
func (s *Service) deletePending(ctx context.Context, requester, addressee uint) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ? AND status = ?", requester, addressee, models.FriendshipPending).
		Delete(&models.Friendship{})
	if result.Error != nil {
		return apperr.FromDB(result.Error, "Friend request not found", "")
	}
	if result.RowsAffected == 0 {
		return errRequestNotFound
	}
	return nil
}

// Reject lets b turn down the pending request a sent
func (s *Service) Reject(ctx context.Context, b, a uint) error {
	if err := s.deletePending(ctx, a, b); err != nil {
		return err
	}
	s.metrics.RecordFriendship("reject")
	return nil
}

// Cancel lets a withdraw the pending request they sent to b
func (s *Service) Cancel(ctx context.Context, a, b uint) error {
	if err := s.deletePending(ctx, a, b); err != nil {
		return err
	}
	s.metrics.RecordFriendship("cancel")
	return nil
}

// Remove ends the friendship between a and b; either side may call it
func (s *Service) Remove(ctx context.Context, a, b uint) error {
	result := s.db.WithContext(ctx).
		Where("((user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)) AND status = ?",
			a, b, b, a, models.FriendshipAccepted).
		Delete(&models.Friendship{})
	if result.Error != nil {
		return apperr.FromDB(result.Error, "Friendship not found", "")
	}
	if result.RowsAffected == 0 {
		return errFriendshipNotFound
	}
	s.metrics.RecordFriendship("remove")
	return nil
}

// Status reports the relationship between a and b
func (s *Service) Status(ctx context.Context, a, b uint) (Status, error) {
	rows, err := pairRows(s.db.WithContext(ctx), a, b)
	if err != nil {
		return Status{}, apperr.FromDB(err, "Friendship not found", "")
	}
	return statusOf(rows), nil
}

// statusOf folds the rows of one pair into a Status. Accepted wins over
// pending; the earliest accepted row dates the friendship.
func statusOf(rows []models.Friendship) Status {
	var pending *models.Friendship
	var since *time.Time
	for i := range rows {
		row := &rows[i]
		switch row.Status {
		case models.FriendshipAccepted:
			if since == nil || row.UpdatedAt.Before(*since) {
				t := row.UpdatedAt
				since = &t
			}
		case models.FriendshipPending:
			if pending == nil {
				pending = row
			}
		}
	}

	switch {
	case since != nil:
		return Status{State: StateFriends, Since: since}
	case pending != nil:
		t := pending.CreatedAt
		return Status{State: StatePending, RequesterID: pending.UserID, Since: &t}
	default:
		return Status{State: StateNotFriends}
	}
}

// Friends lists the accepted friends of userID, newest first
func (s *Service) Friends(ctx context.Context, userID uint) ([]Friend, error) {
	friends := []Friend{}
	err := s.db.WithContext(ctx).Table("friendships AS f").
		Select("u.id, u.username, u.email, u.user_desc, f.updated_at AS friends_since").
		Joins("JOIN users u ON u.id = f.friend_id").
		Where("f.user_id = ? AND f.status = ?", userID, models.FriendshipAccepted).
		Order("f.updated_at DESC").
		Scan(&friends).Error
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return friends, nil
}

// Incoming lists requests waiting for userID's answer
func (s *Service) Incoming(ctx context.Context, userID uint) ([]Request, error) {
	return s.requests(ctx, "f.friend_id", "f.user_id", userID)
}

// Outgoing lists requests userID has sent that are still pending
func (s *Service) Outgoing(ctx context.Context, userID uint) ([]Request, error) {
	return s.requests(ctx, "f.user_id", "f.friend_id", userID)
}

func (s *Service) requests(ctx context.Context, self, other string, userID uint) ([]Request, error) {
	requests := []Request{}
	err := s.db.WithContext(ctx).Table("friendships AS f").
		Select("u.id, u.username, u.email, f.created_at AS requested_at").
		Joins("JOIN users u ON u.id = "+other).
		Where(self+" = ? AND f.status = ?", userID, models.FriendshipPending).
		Order("f.created_at DESC").
		Scan(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	return requests, nil
}
