package models

import "gorm.io/gorm"

// AllModels returns all models for migration
// Note: User and Group must be migrated first as other models reference them
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Group{},
		&GroupMembership{},
		&GroupInvite{},
		&Friendship{},
		&Discussion{},
		&Comment{},
		&DiscussionReaction{},
		&CommentReaction{},
		&Review{},
		&Favourite{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
