package models

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestAutoMigrate(t *testing.T) {
	db := setupTestDB(t)

	err := AutoMigrate(db)
	if err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	// Verify tables exist by checking if we can query them
	tables := []string{
		"users", "groups", "group_memberships", "group_invites", "friendships",
		"discussions", "comments", "discussion_reactions", "comment_reactions",
		"reviews", "favourites",
	}
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			t.Errorf("Expected table %s to exist", table)
		}
	}
}

func TestUserUniqueness(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	user := User{Username: "ada", Email: "ada@example.com", PasswordHash: "hash"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if user.ID == 0 {
		t.Error("Expected user ID to be set after create")
	}

	dupEmail := User{Username: "other", Email: "ada@example.com", PasswordHash: "hash"}
	if err := db.Create(&dupEmail).Error; err == nil {
		t.Error("Expected error when creating user with duplicate email")
	}

	dupName := User{Username: "ada", Email: "other@example.com", PasswordHash: "hash"}
	if err := db.Create(&dupName).Error; err == nil {
		t.Error("Expected error when creating user with duplicate username")
	}
}

func TestGroupAndMembership(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	user := User{Username: "ada", Email: "ada@example.com", PasswordHash: "hash"}
	db.Create(&user)

	group := Group{Name: "Noir Club", OwnerID: user.ID, Description: "Films in shadow"}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	membership := GroupMembership{
		UserID:  user.ID,
		GroupID: group.ID,
		IsAdmin: true,
		Status:  MembershipMember,
	}
	if err := db.Create(&membership).Error; err != nil {
		t.Fatalf("Failed to create membership: %v", err)
	}

	// Verify relationship
	var loadedUser User
	db.Preload("GroupMemberships").First(&loadedUser, user.ID)
	if len(loadedUser.GroupMemberships) != 1 {
		t.Errorf("Expected 1 membership, got %d", len(loadedUser.GroupMemberships))
	}

	dup := GroupMembership{UserID: user.ID, GroupID: group.ID, Status: MembershipPending}
	if err := db.Create(&dup).Error; err == nil {
		t.Error("Expected error when creating a second membership for the same user")
	}
}

func TestMembershipStatusValid(t *testing.T) {
	for _, s := range []MembershipStatus{MembershipPending, MembershipMember, MembershipRemoved} {
		if !s.Valid() {
			t.Errorf("Expected %q to be valid", s)
		}
	}
	if MembershipStatus("banned").Valid() {
		t.Error("Expected unknown status to be invalid")
	}
}

func TestReviewAndFavouriteUniqueness(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	user := User{Username: "ada", Email: "ada@example.com", PasswordHash: "hash"}
	db.Create(&user)

	if err := db.Create(&Review{UserID: user.ID, MovieID: 603, Rating: 5}).Error; err != nil {
		t.Fatalf("Failed to create review: %v", err)
	}
	if err := db.Create(&Review{UserID: user.ID, MovieID: 603, Rating: 2}).Error; err == nil {
		t.Error("Expected error when reviewing the same movie twice")
	}

	if err := db.Create(&Favourite{UserID: user.ID, MovieID: 603}).Error; err != nil {
		t.Fatalf("Failed to create favourite: %v", err)
	}
	if err := db.Create(&Favourite{UserID: user.ID, MovieID: 603}).Error; err == nil {
		t.Error("Expected error when favouriting the same movie twice")
	}
}
