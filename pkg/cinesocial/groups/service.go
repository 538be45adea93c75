package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/metrics"
	"github.com/mikepea/cinesocial/pkg/cinesocial/models"
	"github.com/mikepea/cinesocial/pkg/cinesocial/sanitize"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errGroupNotFound      = apperr.NotFound("Group not found")
	errUserNotFound       = apperr.NotFound("User not found")
	errAdminRequired      = apperr.Forbidden("Admin access required")
	errOwnerRequired      = apperr.Forbidden("Only the group owner can do this")
	errOwnerCannotLeave   = apperr.Forbidden("The group owner cannot leave; transfer ownership or delete the group first")
	errOwnerCannotBeMoved = apperr.Forbidden("The group owner's membership cannot be changed")
	errNotMember          = apperr.NotFound("User is not a member of this group")
	errNoPendingRequest   = apperr.NotFound("No pending membership request")
	errNoPendingInvite    = apperr.NotFound("No pending invite")
)

// Service implements group lifecycle and the membership and invite state
// machines. Every method runs in a single transaction.
type Service struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

// NewService creates a groups service
func NewService(db *gorm.DB, m *metrics.Metrics) *Service {
	return &Service{db: db, metrics: m}
}

// GroupInput carries the editable fields of a group
type GroupInput struct {
	Name        *string
	Description *string
	Rules       *string
	IsOpen      *bool
}

// GroupDetail is a group with its member count
type GroupDetail struct {
	models.Group
	MemberCount int64 `json:"member_count"`
}

// MemberInput is an upsert of one membership row. Nil fields take defaults.
type MemberInput struct {
	UserID  uint
	IsAdmin *bool
	Status  *models.MembershipStatus
}

func (s *Service) tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func findGroup(tx *gorm.DB, groupID uint) (*models.Group, error) {
	var group models.Group
	if err := tx.First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errGroupNotFound
		}
		return nil, fmt.Errorf("load group %d: %w", groupID, err)
	}
	return &group, nil
}

func findMembership(tx *gorm.DB, groupID, userID uint) (*models.GroupMembership, error) {
	var m models.GroupMembership
	err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	return &m, nil
}

// IsAdmin reports whether userID is an admin member of groupID
func IsAdmin(tx *gorm.DB, groupID, userID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.GroupMembership{}).
		Where("group_id = ? AND user_id = ? AND is_admin = ? AND status = ?", groupID, userID, true, models.MembershipMember).
		Count(&count).Error
	return count > 0, err
}

// IsMember reports whether userID is a current member of groupID
func IsMember(tx *gorm.DB, groupID, userID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.GroupMembership{}).
		Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, models.MembershipMember).
		Count(&count).Error
	return count > 0, err
}

func requireAdmin(tx *gorm.DB, groupID, userID uint) error {
	ok, err := IsAdmin(tx, groupID, userID)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if !ok {
		return errAdminRequired
	}
	return nil
}

func requireUser(tx *gorm.DB, userID uint) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if count == 0 {
		return errUserNotFound
	}
	return nil
}

// upsertMembership writes the row for (group, user), replacing any status and
// admin flag already stored.
func upsertMembership(tx *gorm.DB, m *models.GroupMembership) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_admin", "status", "updated_at"}),
	}).Create(m).Error
}

// reloadMembership re-reads m by its (group, user) key. Upserts do not
// reliably report the id of an updated row.
func reloadMembership(tx *gorm.DB, m *models.GroupMembership) error {
	groupID, userID := m.GroupID, m.UserID
	*m = models.GroupMembership{}
	return tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(m).Error
}

func memberCount(tx *gorm.DB, groupID uint) (int64, error) {
	var count int64
	err := tx.Model(&models.GroupMembership{}).
		Where("group_id = ? AND status = ?", groupID, models.MembershipMember).
		Count(&count).Error
	return count, err
}

// List returns every group with its member count
func (s *Service) List(ctx context.Context) ([]GroupDetail, error) {
	var groups []models.Group
	if err := s.db.WithContext(ctx).Order("id").Find(&groups).Error; err != nil {
		return nil, apperr.FromDB(err, "Group not found", "")
	}

	type countRow struct {
		GroupID uint
		Count   int64
	}
	var rows []countRow
	if err := s.db.WithContext(ctx).Model(&models.GroupMembership{}).
		Select("group_id, COUNT(*) AS count").
		Where("status = ?", models.MembershipMember).
		Group("group_id").
		Scan(&rows).Error; err != nil {
		return nil, apperr.FromDB(err, "Group not found", "")
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.GroupID] = r.Count
	}

	details := make([]GroupDetail, len(groups))
	for i, g := range groups {
		details[i] = GroupDetail{Group: g, MemberCount: counts[g.ID]}
	}
	return details, nil
}

// Get returns one group with its member count
func (s *Service) Get(ctx context.Context, groupID uint) (*GroupDetail, error) {
	var detail *GroupDetail
	err := s.tx(ctx, func(tx *gorm.DB) error {
		group, err := findGroup(tx, groupID)
		if err != nil {
			return err
		}
		count, err := memberCount(tx, groupID)
		if err != nil {
			return err
		}
		detail = &GroupDetail{Group: *group, MemberCount: count}
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "")
	}
	return detail, nil
}

// Create inserts the group and its owner's admin membership together
func (s *Service) Create(ctx context.Context, ownerID uint, in GroupInput) (*models.Group, error) {
	if in.Name == nil || sanitize.Text(*in.Name) == "" {
		return nil, apperr.InvalidArgument("Group name is required")
	}

	group := models.Group{Name: sanitize.Text(*in.Name), OwnerID: ownerID}
	applyInput(&group, in)

	err := s.tx(ctx, func(tx *gorm.DB) error {
		if err := requireUser(tx, ownerID); err != nil {
			return err
		}
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return tx.Create(&models.GroupMembership{
			GroupID: group.ID,
			UserID:  ownerID,
			IsAdmin: true,
			Status:  models.MembershipMember,
		}).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "A group with that name already exists")
	}
	s.metrics.RecordMembership("create")
	return &group, nil
}

func applyInput(group *models.Group, in GroupInput) {
	if in.Name != nil && sanitize.Text(*in.Name) != "" {
		group.Name = sanitize.Text(*in.Name)
	}
	if in.Description != nil {
		group.Description = sanitize.Text(*in.Description)
	}
	if in.Rules != nil {
		group.Rules = sanitize.Text(*in.Rules)
	}
	if in.IsOpen != nil {
		group.IsOpen = *in.IsOpen
	}
}

// Update changes a group's fields (admin only)
func (s *Service) Update(ctx context.Context, groupID, actorID uint, in GroupInput) (*models.Group, error) {
	var group *models.Group
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		if group, err = findGroup(tx, groupID); err != nil {
			return err
		}
		if err := requireAdmin(tx, groupID, actorID); err != nil {
			return err
		}
		applyInput(group, in)
		return tx.Save(group).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "A group with that name already exists")
	}
	return group, nil
}

// Delete removes a group and everything in it (owner only)
func (s *Service) Delete(ctx context.Context, groupID, actorID uint) error {
	err := s.tx(ctx, func(tx *gorm.DB) error {
		group, err := findGroup(tx, groupID)
		if err != nil {
			return err
		}
		if group.OwnerID != actorID {
			return errOwnerRequired
		}
		_, err = models.DeleteGroup(tx, groupID)
		return err
	})
	return apperr.FromDB(err, "Group not found", "")
}

// Members lists membership rows with their users, optionally by status
func (s *Service) Members(ctx context.Context, groupID uint, status models.MembershipStatus) ([]models.GroupMembership, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.InvalidArgument("Invalid status %q", status)
	}

	var members []models.GroupMembership
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := findGroup(tx, groupID); err != nil {
			return err
		}
		q := tx.Preload("User").Where("group_id = ?", groupID)
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q.Order("id").Find(&members).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "")
	}
	return members, nil
}

// joinStatus is where a join request lands. Open groups admit newcomers
// directly, but a user an admin removed must be approved again.
func joinStatus(group *models.Group, existing *models.GroupMembership) models.MembershipStatus {
	if existing != nil && existing.Status == models.MembershipRemoved {
		return models.MembershipPending
	}
	if group.IsOpen {
		return models.MembershipMember
	}
	return models.MembershipPending
}

// Join requests membership for userID. Open groups admit the user directly;
// otherwise the request waits for an admin. Removed users may ask again and
// wait for approval.
func (s *Service) Join(ctx context.Context, groupID, userID uint) (*models.GroupMembership, error) {
	var membership models.GroupMembership
	err := s.tx(ctx, func(tx *gorm.DB) error {
		group, err := findGroup(tx, groupID)
		if err != nil {
			return err
		}
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		existing, err := findMembership(tx, groupID, userID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status == models.MembershipMember {
			return apperr.Conflict("Already a member of this group")
		}

		membership = models.GroupMembership{GroupID: groupID, UserID: userID, Status: joinStatus(group, existing)}
		if err := upsertMembership(tx, &membership); err != nil {
			return err
		}
		return reloadMembership(tx, &membership)
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "Already a member of this group")
	}
	s.metrics.RecordMembership("join")
	return &membership, nil
}

// Upsert handles POST /groups/:groupId/members. A user acting for themself
// gets join semantics; an admin may set any user's status and admin flag.
func (s *Service) Upsert(ctx context.Context, groupID, actorID uint, in MemberInput) (*models.GroupMembership, error) {
	if in.UserID == 0 {
		return nil, apperr.InvalidArgument("User ID is required")
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperr.InvalidArgument("Invalid status %q", *in.Status)
	}

	var admin bool
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := findGroup(tx, groupID); err != nil {
			return err
		}
		var err error
		admin, err = IsAdmin(tx, groupID, actorID)
		return err
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "")
	}

	if !admin {
		if in.UserID != actorID || in.IsAdmin != nil || in.Status != nil {
			return nil, errAdminRequired
		}
		return s.Join(ctx, groupID, actorID)
	}

	var membership models.GroupMembership
	err = s.tx(ctx, func(tx *gorm.DB) error {
		group, err := findGroup(tx, groupID)
		if err != nil {
			return err
		}
		if in.UserID == group.OwnerID {
			return errOwnerCannotBeMoved
		}
		if err := requireUser(tx, in.UserID); err != nil {
			return err
		}
		membership = models.GroupMembership{GroupID: groupID, UserID: in.UserID, Status: models.MembershipMember}
		if in.Status != nil {
			membership.Status = *in.Status
		}
		if in.IsAdmin != nil {
			membership.IsAdmin = *in.IsAdmin
		}
		if membership.Status != models.MembershipMember {
			membership.IsAdmin = false
		}
		if err := upsertMembership(tx, &membership); err != nil {
			return err
		}
		return reloadMembership(tx, &membership)
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "")
	}
	s.metrics.RecordMembership("upsert")
	return &membership, nil
}

// Approve moves a pending request to member (admin only)
func (s *Service) Approve(ctx context.Context, groupID, actorID, userID uint) (*models.GroupMembership, error) {
	var membership *models.GroupMembership
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := findGroup(tx, groupID); err != nil {
			return err
		}
		if err := requireAdmin(tx, groupID, actorID); err != nil {
			return err
		}
		result := tx.Model(&models.GroupMembership{}).
			Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, models.MembershipPending).
			Update("status", models.MembershipMember)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNoPendingRequest
		}
		var err error
		membership, err = findMembership(tx, groupID, userID)
		return err
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "")
	}
	s.metrics.RecordMembership("approve")
	return membership, nil
}

// Reject deletes a pending request (admin only)
func (s *Service) Reject(ctx context.Context, groupID, actorID, userID uint) error {
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := findGroup(tx, groupID); err != nil {
			return err
		}
		if err := requireAdmin(tx, groupID, actorID); err != nil {
			return err
		}
		result := tx.Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, models.MembershipPending).
			Delete(&models.GroupMembership{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNoPendingRequest
		}
		return nil
	})
	if err != nil {
		return apperr.FromDB(err, "Group not found", "")
	}
	s.metrics.RecordMembership("reject")
	return nil
}

// Leave removes the user's own membership or pending request. The owner
// cannot leave.
func (s *Service) Leave(ctx context.Context, groupID, userID uint) error {
	err := s.tx(ctx, func(tx *gorm.DB) error {
		group, err := findGroup(tx, groupID)
		if err != nil {
			return err
		}
		if group.OwnerID == userID {
			return errOwnerCannotLeave
		}
		result := tx.Where("group_id = ? AND user_id = ? AND status IN ?", groupID, userID,
			[]models.MembershipStatus{models.MembershipMember, models.MembershipPending}).
			Delete(&models.GroupMembership{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNotMember
		}
		return nil
	})
	if err != nil {
		return apperr.FromDB(err, "Group not found", "")
	}
	s.metrics.RecordMembership("leave")
	return nil
}

// RemoveMember marks a member as removed (admin only). The owner cannot be
// removed.
func (s *Service) RemoveMember(ctx context.Context, groupID, actorID, userID uint) error {
	err := s.tx(ctx, func(tx *gorm.DB) error {
		group, err := findGroup(tx, groupID)
		if err != nil {
			return err
		}
		if err := requireAdmin(tx, groupID, actorID); err != nil {
			return err
		}
		if group.OwnerID == userID {
			return errOwnerCannotBeMoved
		}
		result := tx.Model(&models.GroupMembership{}).
			Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, models.MembershipMember).
			Updates(map[string]interface{}{"status": models.MembershipRemoved, "is_admin": false})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNotMember
		}
		return nil
	})
	if err != nil {
		return apperr.FromDB(err, "Group not found", "")
	}
	s.metrics.RecordMembership("remove")
	return nil
}

// SetAdmin grants or revokes a member's admin flag (owner only)
func (s *Service) SetAdmin(ctx context.Context, groupID, actorID, userID uint, isAdmin bool) (*models.GroupMembership, error) {
	var membership *models.GroupMembership
	err := s.tx(ctx, func(tx *gorm.DB) error {
		group, err := findGroup(tx, groupID)
		if err != nil {
			return err
		}
		if group.OwnerID != actorID {
			return errOwnerRequired
		}
		if group.OwnerID == userID {
			return errOwnerCannotBeMoved
		}
		result := tx.Model(&models.GroupMembership{}).
			Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, models.MembershipMember).
			Update("is_admin", isAdmin)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNotMember
		}
		membership, err = findMembership(tx, groupID, userID)
		return err
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "")
	}
	return membership, nil
}

// TransferOwnership hands the group to another member, who becomes an admin
// (owner only)
func (s *Service) TransferOwnership(ctx context.Context, groupID, actorID, newOwnerID uint) (*models.Group, error) {
	var group *models.Group
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		if group, err = findGroup(tx, groupID); err != nil {
			return err
		}
		if group.OwnerID != actorID {
			return errOwnerRequired
		}
		if newOwnerID == actorID {
			return apperr.InvalidArgument("You already own this group")
		}
		ok, err := IsMember(tx, groupID, newOwnerID)
		if err != nil {
			return err
		}
		if !ok {
			return errNotMember
		}
		if err := tx.Model(&models.GroupMembership{}).
			Where("group_id = ? AND user_id = ?", groupID, newOwnerID).
			Update("is_admin", true).Error; err != nil {
			return err
		}
		group.OwnerID = newOwnerID
		return tx.Model(group).Update("owner_id", newOwnerID).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "")
	}
	s.metrics.RecordMembership("transfer")
	return group, nil
}

// Invite creates or resets a pending invite for userID (admin only)
func (s *Service) Invite(ctx context.Context, groupID, actorID, userID uint) (*models.GroupInvite, error) {
	if userID == 0 {
		return nil, apperr.InvalidArgument("User ID is required")
	}

	var invite models.GroupInvite
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := findGroup(tx, groupID); err != nil {
			return err
		}
		if err := requireAdmin(tx, groupID, actorID); err != nil {
			return err
		}
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		member, err := IsMember(tx, groupID, userID)
		if err != nil {
			return err
		}
		if member {
			return apperr.Conflict("User is already a member of this group")
		}

		invite = models.GroupInvite{GroupID: groupID, UserID: userID, InvitedByID: actorID, Status: models.InvitePending}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"invited_by_id", "status", "updated_at"}),
		}).Create(&invite).Error; err != nil {
			return err
		}
		fresh := models.GroupInvite{}
		if err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&fresh).Error; err != nil {
			return err
		}
		invite = fresh
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "")
	}
	s.metrics.RecordMembership("invite")
	return &invite, nil
}

// AcceptInvite accepts a pending invite and makes the user a member
func (s *Service) AcceptInvite(ctx context.Context, groupID, userID uint) (*models.GroupMembership, error) {
	var membership models.GroupMembership
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := findGroup(tx, groupID); err != nil {
			return err
		}
		result := tx.Model(&models.GroupInvite{}).
			Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, models.InvitePending).
			Update("status", models.InviteAccepted)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNoPendingInvite
		}

		membership = models.GroupMembership{GroupID: groupID, UserID: userID, Status: models.MembershipMember}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).Create(&membership).Error; err != nil {
			return err
		}
		return reloadMembership(tx, &membership)
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "")
	}
	s.metrics.RecordMembership("invite_accept")
	return &membership, nil
}

// DeclineInvite declines a pending invite
func (s *Service) DeclineInvite(ctx context.Context, groupID, userID uint) error {
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := findGroup(tx, groupID); err != nil {
			return err
		}
		result := tx.Model(&models.GroupInvite{}).
			Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, models.InvitePending).
			Update("status", models.InviteDeclined)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNoPendingInvite
		}
		return nil
	})
	if err != nil {
		return apperr.FromDB(err, "Group not found", "")
	}
	s.metrics.RecordMembership("invite_decline")
	return nil
}

// GroupInvites lists the invites of a group (admin only)
func (s *Service) GroupInvites(ctx context.Context, groupID, actorID uint) ([]models.GroupInvite, error) {
	var invites []models.GroupInvite
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := findGroup(tx, groupID); err != nil {
			return err
		}
		if err := requireAdmin(tx, groupID, actorID); err != nil {
			return err
		}
		return tx.Where("group_id = ?", groupID).Order("id").Find(&invites).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Group not found", "")
	}
	return invites, nil
}

// PendingInvites lists the pending invites addressed to userID
func (s *Service) PendingInvites(ctx context.Context, userID uint) ([]models.GroupInvite, error) {
	var invites []models.GroupInvite
	err := s.db.WithContext(ctx).Preload("Group").
		Where("user_id = ? AND status = ?", userID, models.InvitePending).
		Order("id").Find(&invites).Error
	if err != nil {
		return nil, apperr.FromDB(err, "Invite not found", "")
	}
	return invites, nil
}
