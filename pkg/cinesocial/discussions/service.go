// Package discussions implements group discussions, their comments and the
// like/dislike reactions on both.
package discussions

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/groups"
	"github.com/mikepea/cinesocial/pkg/cinesocial/metrics"
	"github.com/mikepea/cinesocial/pkg/cinesocial/models"
	"github.com/mikepea/cinesocial/pkg/cinesocial/sanitize"
	"gorm.io/gorm"
)

var (
	errGroupNotFound      = apperr.NotFound("Group not found")
	errDiscussionNotFound = apperr.NotFound("Discussion not found")
	errCommentNotFound    = apperr.NotFound("Comment not found")
	errMemberRequired     = apperr.Forbidden("You must be a member of this group to create discussions")
)

// DiscussionView is a discussion with its author's username
type DiscussionView struct {
	models.Discussion
	Username string `json:"username"`
}

// CommentView is a comment with its author's username
type CommentView struct {
	models.Comment
	Username string `json:"username"`
}

// DiscussionInput carries the fields of a new or edited discussion
type DiscussionInput struct {
	GroupID uint
	Title   *string
	Text    *string
}

// Service implements discussions and comments
type Service struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

// NewService creates a discussions service
func NewService(db *gorm.DB, m *metrics.Metrics) *Service {
	return &Service{db: db, metrics: m}
}

func (s *Service) tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func findDiscussion(tx *gorm.DB, id uint) (*models.Discussion, error) {
	var d models.Discussion
	if err := tx.First(&d, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errDiscussionNotFound
		}
		return nil, fmt.Errorf("load discussion %d: %w", id, err)
	}
	return &d, nil
}

func findComment(tx *gorm.DB, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := tx.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errCommentNotFound
		}
		return nil, fmt.Errorf("load comment %d: %w", id, err)
	}
	return &c, nil
}

// canModerate reports whether actorID may delete content authored by
// authorID in groupID: the author or an admin of the group.
func canModerate(tx *gorm.DB, groupID, authorID, actorID uint) (bool, error) {
	if authorID == actorID {
		return true, nil
	}
	return groups.IsAdmin(tx, groupID, actorID)
}

func required(field *string) (string, bool) {
	if field == nil {
		return "", false
	}
	v := sanitize.Text(*field)
	return v, v != ""
}

// ListByGroup returns a group's discussions, newest first
func (s *Service) ListByGroup(ctx context.Context, groupID uint) ([]DiscussionView, error) {
	views := []DiscussionView{}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Group{}).Where("id = ?", groupID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errGroupNotFound
		}

		var discussions []models.Discussion
		if err := tx.Preload("User").Where("group_id = ?", groupID).
			Order("created_at DESC, id DESC").Find(&discussions).Error; err != nil {
			return err
		}
		for _, d := range discussions {
			views = append(views, DiscussionView{Discussion: d, Username: d.User.Username})
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "")
	}
	return views, nil
}

// Get returns one discussion
func (s *Service) Get(ctx context.Context, id uint) (*models.Discussion, error) {
	d, err := findDiscussion(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, apperr.FromDB(err, "Discussion not found", "")
	}
	return d, nil
}

// Comments returns a discussion's comments, oldest first
func (s *Service) Comments(ctx context.Context, discussionID uint) ([]CommentView, error) {
	views := []CommentView{}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := findDiscussion(tx, discussionID); err != nil {
			return err
		}
		var comments []models.Comment
		if err := tx.Preload("User").Where("discussion_id = ?", discussionID).
			Order("created_at ASC, id ASC").Find(&comments).Error; err != nil {
			return err
		}
		for _, c := range comments {
			views = append(views, CommentView{Comment: c, Username: c.User.Username})
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Discussion not found", "")
	}
	return views, nil
}

// GetComment returns one comment
func (s *Service) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	c, err := findComment(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, apperr.FromDB(err, "Comment not found", "")
	}
	return c, nil
}

// Create starts a discussion. The author must be a member of the group.
func (s *Service) Create(ctx context.Context, userID uint, in DiscussionInput) (*models.Discussion, error) {
	title, okTitle := required(in.Title)
	text, okText := required(in.Text)
	if in.GroupID == 0 || !okTitle || !okText {
		return nil, apperr.InvalidArgument("User ID, group ID, discussion title, and discussion text are required")
	}

	d := models.Discussion{GroupID: in.GroupID, UserID: userID, Title: title, Text: text}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Group{}).Where("id = ?", in.GroupID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errGroupNotFound
		}
		member, err := groups.IsMember(tx, in.GroupID, userID)
		if err != nil {
			return err
		}
		if !member {
			return errMemberRequired
		}
		return tx.Create(&d).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "")
	}
	return &d, nil
}

// Update edits a discussion's title or text (author only)
func (s *Service) Update(ctx context.Context, id, actorID uint, in DiscussionInput) (*models.Discussion, error) {
	var d *models.Discussion
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		if d, err = findDiscussion(tx, id); err != nil {
			return err
		}
		if d.UserID != actorID {
			return apperr.Forbidden("You can only edit your own discussions")
		}
		changes := map[string]interface{}{}
		if title, ok := required(in.Title); ok {
			changes["title"] = title
		}
		if text, ok := required(in.Text); ok {
			changes["text"] = text
		}
		if len(changes) > 0 {
			// reaction counters are owned by toggleReaction and never written here
			if err := tx.Model(d).Updates(changes).Error; err != nil {
				return err
			}
		}
		d, err = findDiscussion(tx, id)
		return err
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Discussion not found", "")
	}
	return d, nil
}

// Delete removes a discussion with its comments and reactions. The author or
// a group admin may delete.
func (s *Service) Delete(ctx context.Context, id, actorID uint) (*models.Discussion, int64, error) {
	var d *models.Discussion
	var commentsDeleted int64
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		if d, err = findDiscussion(tx, id); err != nil {
			return err
		}
		ok, err := canModerate(tx, d.GroupID, d.UserID, actorID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Forbidden("You can only delete your own discussions")
		}
		commentsDeleted, err = models.DeleteDiscussion(tx, id)
		return err
	})
	if err != nil {
		return nil, 0, apperr.FromDB(err, "Discussion not found", "")
	}
	return d, commentsDeleted, nil
}

// CreateComment adds a comment to a discussion
func (s *Service) CreateComment(ctx context.Context, userID, discussionID uint, text *string) (*models.Comment, error) {
	body, ok := required(text)
	if discussionID == 0 || !ok {
		return nil, apperr.InvalidArgument("User ID, discussion ID, and comment text are required")
	}

	c := models.Comment{DiscussionID: discussionID, UserID: userID, Text: body}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := findDiscussion(tx, discussionID); err != nil {
			return err
		}
		return tx.Create(&c).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Discussion not found", "")
	}
	return &c, nil
}

// UpdateComment edits a comment's text (author only)
func (s *Service) UpdateComment(ctx context.Context, id, actorID uint, text *string) (*models.Comment, error) {
	body, ok := required(text)
	if !ok {
		return nil, apperr.InvalidArgument("Comment text is required")
	}

	var c *models.Comment
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		if c, err = findComment(tx, id); err != nil {
			return err
		}
		if c.UserID != actorID {
			return apperr.Forbidden("You can only edit your own comments")
		}
		if err := tx.Model(c).Update("text", body).Error; err != nil {
			return err
		}
		c, err = findComment(tx, id)
		return err
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Comment not found", "")
	}
	return c, nil
}

// DeleteComment removes a comment and its reactions. The author or an admin
// of the discussion's group may delete.
func (s *Service) DeleteComment(ctx context.Context, id, actorID uint) (*models.Comment, error) {
	var c *models.Comment
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		if c, err = findComment(tx, id); err != nil {
			return err
		}
		d, err := findDiscussion(tx, c.DiscussionID)
		if err != nil {
			return err
		}
		ok, err := canModerate(tx, d.GroupID, c.UserID, actorID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Forbidden("You can only delete your own comments")
		}
		_, err = models.DeleteComment(tx, id)
		return err
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Comment not found", "")
	}
	return c, nil
}
