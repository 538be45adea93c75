package discussions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/auth"
	"github.com/mikepea/cinesocial/pkg/cinesocial/database"
	"github.com/mikepea/cinesocial/pkg/cinesocial/groups"
	"github.com/mikepea/cinesocial/pkg/cinesocial/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testIssuer = auth.NewIssuer("test-secret", time.Hour)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.ConnectMemory()
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// createOpenGroup creates a group owned by owner and joins each member to it
func createOpenGroup(t *testing.T, db *gorm.DB, owner models.User, members ...models.User) *models.Group {
	svc := groups.NewService(db, nil)
	name := "Film Club " + owner.Username
	open := true
	group, err := svc.Create(context.Background(), owner.ID, groups.GroupInput{Name: &name, IsOpen: &open})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	for _, m := range members {
		if _, err := svc.Join(context.Background(), group.ID, m.ID); err != nil {
			t.Fatalf("Failed to join group: %v", err)
		}
	}
	return group
}

func createTestDiscussion(t *testing.T, svc *Service, groupID uint, author models.User) *models.Discussion {
	title, text := "Best noir of the 40s?", "Double Indemnity, obviously."
	d, err := svc.Create(context.Background(), author.ID, DiscussionInput{GroupID: groupID, Title: &title, Text: &text})
	if err != nil {
		t.Fatalf("Failed to create discussion: %v", err)
	}
	return d
}

func createTestComment(t *testing.T, svc *Service, discussionID uint, author models.User) *models.Comment {
	text := "The Big Sleep"
	c, err := svc.CreateComment(context.Background(), author.ID, discussionID, &text)
	if err != nil {
		t.Fatalf("Failed to create comment: %v", err)
	}
	return c
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(NewService(db, nil), zap.NewNop())
	handler.RegisterRoutes(r.Group("/discussions"), auth.AuthMiddleware(testIssuer))
	return r
}

func doRequest(router *gin.Engine, method, path string, user *models.User, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, _ := testIssuer.GenerateToken(user.ID, user.Username)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func uintPtr(id uint) *uint {
	return &id
}

func strPtr(s string) *string {
	return &s
}

func expectKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if !apperr.Is(err, kind) {
		t.Errorf("Expected error kind %d, got %v", kind, err)
	}
}

func expectCounts(t *testing.T, r *ReactionResult, likes, dislikes int) {
	t.Helper()
	if r.Likes != likes || r.Dislikes != dislikes {
		t.Errorf("Expected likes=%d dislikes=%d, got likes=%d dislikes=%d", likes, dislikes, r.Likes, r.Dislikes)
	}
}

func TestCreateRequiresMembership(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner := createTestUser(t, db, "owner")
	outsider := createTestUser(t, db, "outsider")
	group := createOpenGroup(t, db, owner)
	ctx := context.Background()

	title, text := "Hello", "World"
	_, err := svc.Create(ctx, outsider.ID, DiscussionInput{GroupID: group.ID, Title: &title, Text: &text})
	expectKind(t, err, apperr.KindForbidden)

	_, err = svc.Create(ctx, owner.ID, DiscussionInput{GroupID: 99999, Title: &title, Text: &text})
	expectKind(t, err, apperr.KindNotFound)

	_, err = svc.Create(ctx, owner.ID, DiscussionInput{GroupID: group.ID, Title: &title})
	expectKind(t, err, apperr.KindInvalidArgument)

	empty := "<b></b>"
	_, err = svc.Create(ctx, owner.ID, DiscussionInput{GroupID: group.ID, Title: &title, Text: &empty})
	expectKind(t, err, apperr.KindInvalidArgument)

	d := createTestDiscussion(t, svc, group.ID, owner)
	if d.ID == 0 || d.Likes != 0 || d.Dislikes != 0 {
		t.Errorf("Unexpected discussion: %+v", d)
	}
}

func TestDoubleToggleRestoresCounters(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner := createTestUser(t, db, "owner")
	group := createOpenGroup(t, db, owner)
	d := createTestDiscussion(t, svc, group.ID, owner)
	ctx := context.Background()

	r, err := svc.ReactToDiscussion(ctx, d.ID, owner.ID, models.ReactionLike)
	if err != nil {
		t.Fatalf("Like failed: %v", err)
	}
	if r.Action != "liked" || r.Message != "Discussion liked" {
		t.Errorf("Unexpected result: %+v", r)
	}
	expectCounts(t, r, 1, 0)

	r, _ = svc.ReactToDiscussion(ctx, d.ID, owner.ID, models.ReactionLike)
	if r.Action != "unliked" {
		t.Errorf("Expected unliked, got %s", r.Action)
	}
	expectCounts(t, r, 0, 0)

	var rows int64
	db.Model(&models.DiscussionReaction{}).Count(&rows)
	if rows != 0 {
		t.Errorf("Expected reaction row removed, got %d", rows)
	}
}

func TestSwitchingReaction(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")
	group := createOpenGroup(t, db, owner, other)
	d := createTestDiscussion(t, svc, group.ID, owner)
	c := createTestComment(t, svc, d.ID, other)
	ctx := context.Background()

	svc.ReactToComment(ctx, c.ID, owner.ID, models.ReactionLike)
	svc.ReactToComment(ctx, c.ID, other.ID, models.ReactionLike)
	r, err := svc.ReactToComment(ctx, c.ID, owner.ID, models.ReactionDislike)
	if err != nil {
		t.Fatalf("Dislike failed: %v", err)
	}
	if r.Action != "disliked" || r.Message != "Comment disliked" {
		t.Errorf("Unexpected result: %+v", r)
	}
	expectCounts(t, r, 1, 1)

	r, _ = svc.ReactToComment(ctx, c.ID, owner.ID, models.ReactionDislike)
	if r.Action != "undisliked" || r.Message != "Comment dislike removed" {
		t.Errorf("Unexpected result: %+v", r)
	}
	expectCounts(t, r, 1, 0)
}

func TestRepeatedDislikeNeverGoesNegative(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner := createTestUser(t, db, "owner")
	group := createOpenGroup(t, db, owner)
	d := createTestDiscussion(t, svc, group.ID, owner)
	ctx := context.Background()

	// counters drifted out of step with the reaction rows
	svc.ReactToDiscussion(ctx, d.ID, owner.ID, models.ReactionDislike)
	db.Model(&models.Discussion{}).Where("id = ?", d.ID).Update("dislikes", 0)

	for i := 0; i < 5; i++ {
		r, err := svc.ReactToDiscussion(ctx, d.ID, owner.ID, models.ReactionDislike)
		if err != nil {
			t.Fatalf("Dislike %d failed: %v", i, err)
		}
		if r.Likes < 0 || r.Dislikes < 0 {
			t.Fatalf("Counters went negative: %+v", r)
		}
	}
}

func TestToggleRejectsReactionRemovedMidway(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner := createTestUser(t, db, "owner")
	group := createOpenGroup(t, db, owner)
	d := createTestDiscussion(t, svc, group.ID, owner)
	ctx := context.Background()

	if _, err := svc.ReactToDiscussion(ctx, d.ID, owner.ID, models.ReactionLike); err != nil {
		t.Fatalf("Like failed: %v", err)
	}

	// another toggle removes the like between the lookup and the delete
	removed := false
	err := db.Callback().Query().After("gorm:query").Register("test:remove_reaction", func(tx *gorm.DB) {
		if removed || tx.Statement.Table != "discussion_reactions" {
			return
		}
		removed = true
		tx.Session(&gorm.Session{NewDB: true}).Exec("DELETE FROM discussion_reactions")
	})
	if err != nil {
		t.Fatalf("Failed to register callback: %v", err)
	}

	_, err = svc.ReactToDiscussion(ctx, d.ID, owner.ID, models.ReactionLike)
	expectKind(t, err, apperr.KindConflict)
	if !removed {
		t.Fatal("Expected the reaction lookup to run")
	}
	db.Callback().Query().Remove("test:remove_reaction")

	var stored models.Discussion
	db.First(&stored, d.ID)
	if stored.Likes != 1 {
		t.Errorf("Expected likes to stay at 1, got %d", stored.Likes)
	}
}

func TestReactToMissingTarget(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	user := createTestUser(t, db, "alice")

	_, err := svc.ReactToDiscussion(context.Background(), 99999, user.ID, models.ReactionLike)
	expectKind(t, err, apperr.KindNotFound)
	_, err = svc.ReactToComment(context.Background(), 99999, user.ID, models.ReactionDislike)
	expectKind(t, err, apperr.KindNotFound)
}

func TestUpdateIsAuthorOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner := createTestUser(t, db, "owner")
	member := createTestUser(t, db, "member")
	group := createOpenGroup(t, db, owner, member)
	d := createTestDiscussion(t, svc, group.ID, member)
	c := createTestComment(t, svc, d.ID, member)
	ctx := context.Background()

	_, err := svc.Update(ctx, d.ID, owner.ID, DiscussionInput{Title: strPtr("Hijacked")})
	expectKind(t, err, apperr.KindForbidden)

	updated, err := svc.Update(ctx, d.ID, member.ID, DiscussionInput{Title: strPtr("Neo-noir too")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != "Neo-noir too" || updated.Text != d.Text {
		t.Errorf("Unexpected update: %+v", updated)
	}

	_, err = svc.UpdateComment(ctx, c.ID, owner.ID, strPtr("Hijacked"))
	expectKind(t, err, apperr.KindForbidden)
	_, err = svc.UpdateComment(ctx, c.ID, member.ID, nil)
	expectKind(t, err, apperr.KindInvalidArgument)
	_, err = svc.UpdateComment(ctx, 99999, member.ID, strPtr("x"))
	expectKind(t, err, apperr.KindNotFound)
}

func TestEditLeavesCountersAlone(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")
	group := createOpenGroup(t, db, owner, other)
	d := createTestDiscussion(t, svc, group.ID, owner)
	c := createTestComment(t, svc, d.ID, owner)
	ctx := context.Background()

	svc.ReactToDiscussion(ctx, d.ID, other.ID, models.ReactionLike)
	svc.ReactToComment(ctx, c.ID, other.ID, models.ReactionDislike)

	var statements []string
	err := db.Callback().Update().After("gorm:update").Register("test:capture_update", func(tx *gorm.DB) {
		statements = append(statements, tx.Statement.SQL.String())
	})
	if err != nil {
		t.Fatalf("Failed to register callback: %v", err)
	}
	defer db.Callback().Update().Remove("test:capture_update")

	updated, err := svc.Update(ctx, d.ID, owner.ID, DiscussionInput{Text: strPtr("Edited")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Text != "Edited" || updated.Likes != 1 {
		t.Errorf("Unexpected discussion after edit: %+v", updated)
	}
	edited, err := svc.UpdateComment(ctx, c.ID, owner.ID, strPtr("Edited comment"))
	if err != nil {
		t.Fatalf("UpdateComment failed: %v", err)
	}
	if edited.Text != "Edited comment" || edited.Dislikes != 1 {
		t.Errorf("Unexpected comment after edit: %+v", edited)
	}

	if len(statements) != 2 {
		t.Fatalf("Expected 2 update statements, got %d: %v", len(statements), statements)
	}
	for _, stmt := range statements {
		if strings.Contains(stmt, "likes") {
			t.Errorf("Edit wrote a reaction counter: %s", stmt)
		}
	}
}

func TestDeleteByAuthorOrAdmin(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner := createTestUser(t, db, "owner")
	author := createTestUser(t, db, "author")
	bystander := createTestUser(t, db, "bystander")
	group := createOpenGroup(t, db, owner, author, bystander)
	ctx := context.Background()

	d := createTestDiscussion(t, svc, group.ID, author)
	c := createTestComment(t, svc, d.ID, bystander)
	createTestComment(t, svc, d.ID, author)
	svc.ReactToComment(ctx, c.ID, author.ID, models.ReactionLike)

	_, _, err := svc.Delete(ctx, d.ID, bystander.ID)
	expectKind(t, err, apperr.KindForbidden)

	// group admin may moderate
	deleted, comments, err := svc.Delete(ctx, d.ID, owner.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted.ID != d.ID || comments != 2 {
		t.Errorf("Expected discussion %d with 2 comments deleted, got %d with %d", d.ID, deleted.ID, comments)
	}

	var remaining int64
	db.Model(&models.CommentReaction{}).Count(&remaining)
	if remaining != 0 {
		t.Errorf("Expected comment reactions cascaded, got %d", remaining)
	}

	_, _, err = svc.Delete(ctx, 99999, owner.ID)
	expectKind(t, err, apperr.KindNotFound)
}

func TestDeleteComment(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner := createTestUser(t, db, "owner")
	author := createTestUser(t, db, "author")
	bystander := createTestUser(t, db, "bystander")
	group := createOpenGroup(t, db, owner, author, bystander)
	ctx := context.Background()

	d := createTestDiscussion(t, svc, group.ID, owner)
	c := createTestComment(t, svc, d.ID, author)

	_, err := svc.DeleteComment(ctx, c.ID, bystander.ID)
	expectKind(t, err, apperr.KindForbidden)

	deleted, err := svc.DeleteComment(ctx, c.ID, author.ID)
	if err != nil {
		t.Fatalf("DeleteComment failed: %v", err)
	}
	if deleted.DiscussionID != d.ID {
		t.Errorf("Expected comment of discussion %d, got %d", d.ID, deleted.DiscussionID)
	}

	_, err = svc.DeleteComment(ctx, c.ID, author.ID)
	expectKind(t, err, apperr.KindNotFound)
}

func TestListings(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner := createTestUser(t, db, "owner")
	member := createTestUser(t, db, "member")
	group := createOpenGroup(t, db, owner, member)
	ctx := context.Background()

	d := createTestDiscussion(t, svc, group.ID, member)
	createTestComment(t, svc, d.ID, owner)

	list, err := svc.ListByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListByGroup failed: %v", err)
	}
	if len(list) != 1 || list[0].Username != "member" {
		t.Errorf("Unexpected discussions: %+v", list)
	}

	comments, err := svc.Comments(ctx, d.ID)
	if err != nil {
		t.Fatalf("Comments failed: %v", err)
	}
	if len(comments) != 1 || comments[0].Username != "owner" {
		t.Errorf("Unexpected comments: %+v", comments)
	}

	_, err = svc.ListByGroup(ctx, 99999)
	expectKind(t, err, apperr.KindNotFound)
	_, err = svc.Comments(ctx, 99999)
	expectKind(t, err, apperr.KindNotFound)
}

func TestDiscussionRoutes(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	owner := createTestUser(t, db, "owner")
	member := createTestUser(t, db, "member")
	group := createOpenGroup(t, db, owner, member)

	resp := doRequest(router, "POST", "/discussions/discussion/create", &member, CreateDiscussionRequest{
		GroupID: group.ID,
		UserID:  uintPtr(owner.ID),
		Title:   strPtr("Spoof"),
		Text:    strPtr("Posting as someone else"),
	})
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for mismatched user_id, got %d", resp.Code)
	}

	resp = doRequest(router, "POST", "/discussions/discussion/create", &member, CreateDiscussionRequest{
		GroupID: group.ID,
		UserID:  uintPtr(member.ID),
		Title:   strPtr("Chinatown"),
		Text:    strPtr("Forget it, Jake."),
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		Discussion models.Discussion `json:"discussion"`
	}
	json.Unmarshal(resp.Body.Bytes(), &created)
	id := itoa(created.Discussion.ID)

	resp = doRequest(router, "PUT", "/discussions/discussion/"+id+"/like", &owner, ActorRequest{UserID: uintPtr(owner.ID)})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var reaction ReactionResult
	json.Unmarshal(resp.Body.Bytes(), &reaction)
	if reaction.Action != "liked" || reaction.Likes != 1 {
		t.Errorf("Unexpected reaction: %+v", reaction)
	}

	resp = doRequest(router, "POST", "/discussions/comment/create", &owner, CreateCommentRequest{
		DiscussionID: created.Discussion.ID,
		UserID:       uintPtr(owner.ID),
		Text:         strPtr("It's Chinatown."),
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doRequest(router, "GET", "/discussions/discussion/"+id+"/comments", nil, nil)
	var comments []CommentView
	json.Unmarshal(resp.Body.Bytes(), &comments)
	if len(comments) != 1 || comments[0].Text != "It's Chinatown." {
		t.Errorf("Unexpected comments: %s", resp.Body.String())
	}

	resp = doRequest(router, "GET", "/discussions/"+itoa(group.ID), nil, nil)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Code)
	}

	resp = doRequest(router, "DELETE", "/discussions/discussion/"+id, &member, ActorRequest{UserID: uintPtr(member.ID)})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var deleted struct {
		DeletedCommentsCount int64 `json:"deletedCommentsCount"`
	}
	json.Unmarshal(resp.Body.Bytes(), &deleted)
	if deleted.DeletedCommentsCount != 1 {
		t.Errorf("Expected 1 deleted comment, got %d", deleted.DeletedCommentsCount)
	}
}

func TestDeleteMissingDiscussionEnvelope(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "alice")

	resp := doRequest(router, "DELETE", "/discussions/discussion/99999", &user, ActorRequest{UserID: uintPtr(user.ID)})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", resp.Code)
	}

	var body apperr.ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if body.Error.Message != "Discussion not found" || body.Error.Status != http.StatusNotFound {
		t.Errorf("Unexpected envelope: %+v", body)
	}
}
