package models

import "gorm.io/gorm"

// The helpers below remove a row together with everything that hangs off it.
// They must be called with a transaction handle.

// DeleteComment removes a comment and its reactions
func DeleteComment(tx *gorm.DB, commentID uint) (int64, error) {
	if err := tx.Where("comment_id = ?", commentID).Delete(&CommentReaction{}).Error; err != nil {
		return 0, err
	}
	result := tx.Delete(&Comment{}, commentID)
	return result.RowsAffected, result.Error
}

// DeleteDiscussion removes a discussion, its comments and all their reactions.
// It returns the number of comments removed.
func DeleteDiscussion(tx *gorm.DB, discussionID uint) (int64, error) {
	commentIDs := tx.Model(&Comment{}).Select("id").Where("discussion_id = ?", discussionID)
	if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&CommentReaction{}).Error; err != nil {
		return 0, err
	}
	comments := tx.Where("discussion_id = ?", discussionID).Delete(&Comment{})
	if comments.Error != nil {
		return 0, comments.Error
	}
	if err := tx.Where("discussion_id = ?", discussionID).Delete(&DiscussionReaction{}).Error; err != nil {
		return 0, err
	}
	if err := tx.Delete(&Discussion{}, discussionID).Error; err != nil {
		return 0, err
	}
	return comments.RowsAffected, nil
}

// DeleteGroup removes a group with its memberships, invites and discussions
func DeleteGroup(tx *gorm.DB, groupID uint) (int64, error) {
	var discussionIDs []uint
	if err := tx.Model(&Discussion{}).Where("group_id = ?", groupID).Pluck("id", &discussionIDs).Error; err != nil {
		return 0, err
	}
	for _, id := range discussionIDs {
		if _, err := DeleteDiscussion(tx, id); err != nil {
			return 0, err
		}
	}
	if err := tx.Where("group_id = ?", groupID).Delete(&GroupInvite{}).Error; err != nil {
		return 0, err
	}
	if err := tx.Where("group_id = ?", groupID).Delete(&GroupMembership{}).Error; err != nil {
		return 0, err
	}
	result := tx.Delete(&Group{}, groupID)
	return result.RowsAffected, result.Error
}

// RecountDiscussions recomputes like and dislike counters from reaction rows
func RecountDiscussions(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Model(&Discussion{}).Where("id IN ?", ids).Updates(map[string]interface{}{
		"likes":    gorm.Expr("(SELECT COUNT(*) FROM discussion_reactions r WHERE r.discussion_id = discussions.id AND r.reaction = ?)", ReactionLike),
		"dislikes": gorm.Expr("(SELECT COUNT(*) FROM discussion_reactions r WHERE r.discussion_id = discussions.id AND r.reaction = ?)", ReactionDislike),
	}).Error
}

// RecountComments recomputes like and dislike counters from reaction rows
func RecountComments(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Model(&Comment{}).Where("id IN ?", ids).Updates(map[string]interface{}{
		"likes":    gorm.Expr("(SELECT COUNT(*) FROM comment_reactions r WHERE r.comment_id = comments.id AND r.reaction = ?)", ReactionLike),
		"dislikes": gorm.Expr("(SELECT COUNT(*) FROM comment_reactions r WHERE r.comment_id = comments.id AND r.reaction = ?)", ReactionDislike),
	}).Error
}

// DeleteUser removes a user and everything they own: groups they own,
// content they wrote, their reactions, relationships, reviews and favourites.
func DeleteUser(tx *gorm.DB, userID uint) (int64, error) {
	var ids []uint

	if err := tx.Model(&Group{}).Where("owner_id = ?", userID).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := DeleteGroup(tx, id); err != nil {
			return 0, err
		}
	}

	ids = nil
	if err := tx.Model(&Discussion{}).Where("user_id = ?", userID).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := DeleteDiscussion(tx, id); err != nil {
			return 0, err
		}
	}

	ids = nil
	if err := tx.Model(&Comment{}).Where("user_id = ?", userID).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := DeleteComment(tx, id); err != nil {
			return 0, err
		}
	}

	ids = nil
	if err := tx.Model(&DiscussionReaction{}).Where("user_id = ?", userID).Pluck("discussion_id", &ids).Error; err != nil {
		return 0, err
	}
	if err := tx.Where("user_id = ?", userID).Delete(&DiscussionReaction{}).Error; err != nil {
		return 0, err
	}
	if err := RecountDiscussions(tx, ids); err != nil {
		return 0, err
	}

	ids = nil
	if err := tx.Model(&CommentReaction{}).Where("user_id = ?", userID).Pluck("comment_id", &ids).Error; err != nil {
		return 0, err
	}
	if err := tx.Where("user_id = ?", userID).Delete(&CommentReaction{}).Error; err != nil {
		return 0, err
	}
	if err := RecountComments(tx, ids); err != nil {
		return 0, err
	}

	steps := []struct {
		query string
		model interface{}
	}{
		{"user_id = ? OR invited_by_id = ?", &GroupInvite{}},
		{"user_id = ? OR friend_id = ?", &Friendship{}},
	}
	for _, step := range steps {
		if err := tx.Where(step.query, userID, userID).Delete(step.model).Error; err != nil {
			return 0, err
		}
	}
	for _, model := range []interface{}{&GroupMembership{}, &Review{}, &Favourite{}} {
		if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
			return 0, err
		}
	}

	result := tx.Delete(&User{}, userID)
	return result.RowsAffected, result.Error
}
