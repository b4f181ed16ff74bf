package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/abszero/smartledger/internal/ledger"
	"github.com/abszero/smartledger/internal/models"
	"github.com/abszero/smartledger/internal/storage"
)

// GroupInput carries the fields a person supplies when creating a group.
type GroupInput struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Settings    *models.GroupSettings `json:"settings"`
}

// GroupUpdate describes a partial edit to a group. Nil fields are unchanged.
type GroupUpdate struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	Settings    *models.GroupSettings `json:"settings"`
}

// GroupService manages group lifecycle and membership.
type GroupService struct {
	store  storage.Store
	locks  *GroupLocks
	logger *slog.Logger
}

// NewGroupService creates a GroupService.
func NewGroupService(store storage.Store, locks *GroupLocks, logger *slog.Logger) *GroupService {
	return &GroupService{store: store, locks: locks, logger: logger}
}

// Create makes a new group with the requester as admin and sole member.
func (s *GroupService) Create(ctx context.Context, requester string, input *GroupInput) (*models.Group, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("group name is required: %w", models.ErrValidation)
	}

	settings := models.DefaultGroupSettings()
	if input.Settings != nil {
		settings = *input.Settings
	}
	group := &models.Group{
		Name:        input.Name,
		Description: input.Description,
		Admin:       requester,
		Members:     []string{requester},
		Settings:    settings,
		Ledger:      map[string]float64{},
		Balances:    map[string]map[string]float64{},
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	if err := s.addGroupToPerson(ctx, requester, group.ID); err != nil {
		return nil, err
	}

	s.logger.Info("group created", "group_id", group.ID, "admin", requester)
	return group, nil
}

// Get retrieves a group, restricted to its members.
func (s *GroupService) Get(ctx context.Context, requester, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", err)
	}
	if !group.HasMember(requester) {
		return nil, fmt.Errorf("person %s is not a member of group %s: %w", requester, groupID, models.ErrUnauthorized)
	}
	return group, nil
}

// Update edits the group's name, description, or settings. Admin only.
func (s *GroupService) Update(ctx context.Context, requester, groupID string, update *GroupUpdate) (*models.Group, error) {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", err)
	}
	if requester != group.Admin {
		return nil, fmt.Errorf("only the admin may update group %s: %w", groupID, models.ErrUnauthorized)
	}

	if update.Name != nil {
		if *update.Name == "" {
			return nil, fmt.Errorf("group name is required: %w", models.ErrValidation)
		}
		group.Name = *update.Name
	}
	if update.Description != nil {
		group.Description = *update.Description
	}
	if update.Settings != nil {
		group.Settings = *update.Settings
	}

	if err := s.store.UpdateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to save group: %w", err)
	}
	return group, nil
}

// Delete removes a group. Admin only, and refused while committed
// transactions remain so no monetary state is silently discarded.
func (s *GroupService) Delete(ctx context.Context, requester, groupID string) error {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load group: %w", err)
	}
	if requester != group.Admin {
		return fmt.Errorf("only the admin may delete group %s: %w", groupID, models.ErrUnauthorized)
	}
	if len(group.Transactions) > 0 {
		return fmt.Errorf("group %s still has %d transactions: %w", groupID, len(group.Transactions), models.ErrValidation)
	}

	for _, sub := range group.Members {
		if err := s.removeGroupFromPerson(ctx, sub, groupID); err != nil {
			return err
		}
	}
	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	s.logger.Info("group deleted", "group_id", groupID, "requested_by", requester)
	return nil
}

// Invite adds an invite for the given email. Subject to the OnlyAdminInvite
// flag; otherwise any member may invite.
func (s *GroupService) Invite(ctx context.Context, requester, groupID, email string) error {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load group: %w", err)
	}
	if !group.HasMember(requester) {
		return fmt.Errorf("person %s is not a member of group %s: %w", requester, groupID, models.ErrUnauthorized)
	}
	if group.Settings.OnlyAdminInvite && requester != group.Admin {
		return fmt.Errorf("only the admin may invite to group %s: %w", groupID, models.ErrUnauthorized)
	}

	invitee, err := s.store.GetPersonByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find person %s: %w", email, err)
	}
	if group.HasMember(invitee.Sub) {
		return fmt.Errorf("person %s is already a member: %w", email, models.ErrValidation)
	}
	if group.HasInvite(email) {
		return nil
	}

	group.Invites = append(group.Invites, email)
	if err := s.store.UpdateGroup(ctx, group); err != nil {
		return fmt.Errorf("failed to save group: %w", err)
	}

	invitee.Invites = append(invitee.Invites, groupID)
	if err := s.store.UpdatePerson(ctx, invitee); err != nil {
		return fmt.Errorf("failed to save person: %w", err)
	}

	s.logger.Info("invite issued", "group_id", groupID, "email", email, "invited_by", requester)
	return nil
}

// Join accepts a pending invite, making the requester a member.
func (s *GroupService) Join(ctx context.Context, requester, groupID string) (*models.Group, error) {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	person, err := s.store.GetPerson(ctx, requester)
	if err != nil {
		return nil, fmt.Errorf("failed to load person: %w", err)
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", err)
	}
	if !group.HasInvite(person.Email) {
		return nil, fmt.Errorf("no invite for %s to group %s: %w", person.Email, groupID, models.ErrUnauthorized)
	}

	group.RemoveInvite(person.Email)
	group.Members = append(group.Members, person.Sub)
	if err := s.store.UpdateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to save group: %w", err)
	}

	person.Groups = append(person.Groups, groupID)
	for i, id := range person.Invites {
		if id == groupID {
			person.Invites = append(person.Invites[:i], person.Invites[i+1:]...)
			break
		}
	}
	if err := s.store.UpdatePerson(ctx, person); err != nil {
		return nil, fmt.Errorf("failed to save person: %w", err)
	}

	s.logger.Info("person joined group", "group_id", groupID, "sub", requester)
	return group, nil
}

// RemoveMember removes a member from the group. Members may remove themselves;
// removing someone else requires the admin when OnlyAdminRemoveMember is set,
// otherwise any member may do it. Removal is refused while the member carries
// nonzero ledger or balance entries.
func (s *GroupService) RemoveMember(ctx context.Context, requester, groupID, sub string) error {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load group: %w", err)
	}
	switch {
	case requester == sub:
	case group.Settings.OnlyAdminRemoveMember && requester != group.Admin:
		return fmt.Errorf("person %s may not remove %s from group %s: %w", requester, sub, groupID, models.ErrUnauthorized)
	case !group.HasMember(requester):
		return fmt.Errorf("person %s may not remove %s from group %s: %w", requester, sub, groupID, models.ErrUnauthorized)
	}
	if sub == group.Admin {
		return fmt.Errorf("the admin cannot be removed from group %s: %w", groupID, models.ErrValidation)
	}
	if !group.HasMember(sub) {
		return fmt.Errorf("person %s is not a member of group %s: %w", sub, groupID, models.ErrNotFound)
	}
	if unsettled(group, sub) {
		return fmt.Errorf("person %s still has unsettled balances in group %s: %w", sub, groupID, models.ErrValidation)
	}

	group.RemoveMember(sub)
	if err := s.store.UpdateGroup(ctx, group); err != nil {
		return fmt.Errorf("failed to save group: %w", err)
	}
	if err := s.removeGroupFromPerson(ctx, sub, groupID); err != nil {
		return err
	}

	s.logger.Info("member removed", "group_id", groupID, "sub", sub, "requested_by", requester)
	return nil
}

// unsettled reports whether the member still owes or is owed anything.
func unsettled(group *models.Group, sub string) bool {
	if math.Abs(group.Ledger[sub]) > ledger.Tolerance {
		return true
	}
	for _, v := range group.Balances[sub] {
		if math.Abs(v) > ledger.Tolerance {
			return true
		}
	}
	return false
}

func (s *GroupService) addGroupToPerson(ctx context.Context, sub, groupID string) error {
	person, err := s.store.GetPerson(ctx, sub)
	if err != nil {
		return fmt.Errorf("failed to load person: %w", err)
	}
	if person.InGroup(groupID) {
		return nil
	}
	person.Groups = append(person.Groups, groupID)
	if err := s.store.UpdatePerson(ctx, person); err != nil {
		return fmt.Errorf("failed to save person: %w", err)
	}
	return nil
}

func (s *GroupService) removeGroupFromPerson(ctx context.Context, sub, groupID string) error {
	person, err := s.store.GetPerson(ctx, sub)
	if err != nil {
		return fmt.Errorf("failed to load person: %w", err)
	}
	for i, id := range person.Groups {
		if id == groupID {
			person.Groups = append(person.Groups[:i], person.Groups[i+1:]...)
			break
		}
	}
	if err := s.store.UpdatePerson(ctx, person); err != nil {
		return fmt.Errorf("failed to save person: %w", err)
	}
	return nil
}
