package discussions

import (
	"context"
	"fmt"

	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/database"
	"github.com/mikepea/cinesocial/pkg/cinesocial/models"
	"gorm.io/gorm"
)

// target describes a reactable table and its reaction table
type target struct {
	name      string
	label     string
	table     string
	reactions string
	column    string
	newRow    func(id, userID uint, r models.ReactionType) interface{}
}

var (
	discussionTarget = target{
		name:      "discussion",
		label:     "Discussion",
		table:     "discussions",
		reactions: "discussion_reactions",
		column:    "discussion_id",
		newRow: func(id, userID uint, r models.ReactionType) interface{} {
			return &models.DiscussionReaction{DiscussionID: id, UserID: userID, Reaction: r}
		},
	}
	commentTarget = target{
		name:      "comment",
		label:     "Comment",
		table:     "comments",
		reactions: "comment_reactions",
		column:    "comment_id",
		newRow: func(id, userID uint, r models.ReactionType) interface{} {
			return &models.CommentReaction{CommentID: id, UserID: userID, Reaction: r}
		},
	}
)

// ReactionResult is the outcome of a like or dislike toggle
type ReactionResult struct {
	Message  string `json:"message"`
	Action   string `json:"action"`
	Likes    int    `json:"likes"`
	Dislikes int    `json:"dislikes"`
}

var errReactionChanged = apperr.Conflict("Reaction changed concurrently, try again")

type reactionRow struct {
	ID       uint
	Reaction models.ReactionType
}

func counterOf(r models.ReactionType) string {
	if r == models.ReactionDislike {
		return "dislikes"
	}
	return "likes"
}

func increment(column string) interface{} {
	return gorm.Expr(column + " + 1")
}

// decrement never takes a counter below zero
func decrement(column string) interface{} {
	return gorm.Expr(fmt.Sprintf("CASE WHEN %s > 0 THEN %s - 1 ELSE 0 END", column, column))
}

// outcome names the action and message for applying r when it was already
// present (removed) or not.
func outcome(t target, r models.ReactionType, removed bool) (action, message string) {
	switch {
	case r == models.ReactionLike && removed:
		return "unliked", t.label + " unliked"
	case r == models.ReactionLike:
		return "liked", t.label + " liked"
	case removed:
		return "undisliked", t.label + " dislike removed"
	default:
		return "disliked", t.label + " disliked"
	}
}

// toggleReaction applies userID's like or dislike to one row of t:
//
//	no reaction   -> insert r, counter(r)++
//	same as r     -> delete, counter(r)--
//	the other one -> switch to r, counter(r)++ and counter(other)--
func (s *Service) toggleReaction(ctx context.Context, t target, id, userID uint, r models.ReactionType) (*ReactionResult, error) {
	if r != models.ReactionLike && r != models.ReactionDislike {
		return nil, apperr.InvalidArgument("Invalid reaction %q", r)
	}

	result := &ReactionResult{}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		// toggles on one target run one at a time
		var ids []uint
		if err := database.ForUpdate(tx).Table(t.table).Where("id = ?", id).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return apperr.NotFound("%s not found", t.label)
		}

		var existing []reactionRow
		if err := tx.Table(t.reactions).Select("id, reaction").
			Where(t.column+" = ? AND user_id = ?", id, userID).
			Limit(1).Find(&existing).Error; err != nil {
			return err
		}

		counters := map[string]interface{}{}
		removed := false
		switch {
		case len(existing) == 0:
			if err := tx.Create(t.newRow(id, userID, r)).Error; err != nil {
				return err
			}
			counters[counterOf(r)] = increment(counterOf(r))
		case existing[0].Reaction == r:
			res := tx.Exec("DELETE FROM "+t.reactions+" WHERE id = ?", existing[0].ID)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return errReactionChanged
			}
			counters[counterOf(r)] = decrement(counterOf(r))
			removed = true
		default:
			res := tx.Table(t.reactions).Where("id = ? AND reaction = ?", existing[0].ID, existing[0].Reaction).
				Update("reaction", r)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return errReactionChanged
			}
			counters[counterOf(r)] = increment(counterOf(r))
			counters[counterOf(existing[0].Reaction)] = decrement(counterOf(existing[0].Reaction))
		}

		if err := tx.Table(t.table).Where("id = ?", id).Updates(counters).Error; err != nil {
			return err
		}

		var totals struct {
			Likes    int
			Dislikes int
		}
		if err := tx.Table(t.table).Select("likes, dislikes").Where("id = ?", id).Scan(&totals).Error; err != nil {
			return err
		}
		result.Action, result.Message = outcome(t, r, removed)
		result.Likes, result.Dislikes = totals.Likes, totals.Dislikes
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, t.label+" not found", "Reaction already recorded")
	}

	s.metrics.RecordReaction(t.name, result.Action)
	return result, nil
}

// ReactToDiscussion toggles a like or dislike on a discussion
func (s *Service) ReactToDiscussion(ctx context.Context, id, userID uint, r models.ReactionType) (*ReactionResult, error) {
	return s.toggleReaction(ctx, discussionTarget, id, userID, r)
}

// ReactToComment toggles a like or dislike on a comment
func (s *Service) ReactToComment(ctx context.Context, id, userID uint, r models.ReactionType) (*ReactionResult, error) {
	return s.toggleReaction(ctx, commentTarget, id, userID, r)
}
