package services

import (
	"context"
	"fmt"

	"chatter/internal/database"
	"chatter/internal/models"

	"github.com/samber/lo"
)

// ChatService owns chat and group management. Every mutation persists first,
// then hands the canonical post-change entity to the event router, then
// returns, so live clients hear about a change before the actor's HTTP
// response completes.
type ChatService struct {
	db     database.Database
	router EventRouter
}

func NewChatService(db database.Database, router EventRouter) *ChatService {
	return &ChatService{db: db, router: router}
}

// AccessDirectChat returns the direct chat between the caller and the other
// user, creating it on first contact.
func (s *ChatService) AccessDirectChat(ctx context.Context, userID, otherID string) (*models.Chat, error) {
	if otherID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if otherID == userID {
		return nil, fmt.Errorf("cannot open a chat with yourself")
	}
	if _, err := s.db.GetUserByID(ctx, otherID); err != nil {
		return nil, fmt.Errorf("user not found")
	}

	chat, err := s.db.FindDirectChat(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up chat: %w", err)
	}
	if chat != nil {
		return chat, nil
	}

	return s.db.CreateDirectChat(ctx, userID, otherID)
}

func (s *ChatService) ListChats(ctx context.Context, userID string) ([]*models.Chat, error) {
	return s.db.ListUserChats(ctx, userID)
}

func (s *ChatService) GetChat(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.db.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("chat not found")
	}
	if !lo.Contains(chat.MemberIDs(), userID) {
		return nil, fmt.Errorf("not a member of this chat")
	}
	return chat, nil
}

func (s *ChatService) CreateGroup(ctx context.Context, userID string, req *models.CreateGroupRequest) (*models.Chat, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("group name is required")
	}
	if len(req.UserIDs) < 2 {
		return nil, fmt.Errorf("a group needs at least 2 other members")
	}

	members := lo.Uniq(append(req.UserIDs, userID))
	chat, err := s.db.CreateGroupChat(ctx, req.Name, userID, members)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	s.router.MembershipChanged(chat, userID,
		fmt.Sprintf("You were added to group %q", chat.Name))

	return chat, nil
}

func (s *ChatService) RenameGroup(ctx context.Context, userID, chatID, name string) (*models.Chat, error) {
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}

	if _, err := s.adminGroup(ctx, userID, chatID); err != nil {
		return nil, err
	}
	if err := s.db.RenameChat(ctx, chatID, name); err != nil {
		return nil, fmt.Errorf("failed to rename group: %w", err)
	}

	chat, err := s.db.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	// Roster broadcast only; a rename is not unread activity.
	s.router.MembershipChanged(chat, userID, "")

	return chat, nil
}

func (s *ChatService) UpdateGroupLogo(ctx context.Context, userID, chatID, logoURL string) (*models.Chat, error) {
	if logoURL == "" {
		return nil, fmt.Errorf("logo_url is required")
	}

	if _, err := s.adminGroup(ctx, userID, chatID); err != nil {
		return nil, err
	}
	if err := s.db.UpdateChatLogo(ctx, chatID, logoURL); err != nil {
		return nil, fmt.Errorf("failed to update logo: %w", err)
	}

	chat, err := s.db.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	s.router.MembershipChanged(chat, userID, "")

	return chat, nil
}

func (s *ChatService) AddMember(ctx context.Context, userID, chatID, newUserID string) (*models.Chat, error) {
	group, err := s.adminGroup(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if lo.Contains(group.MemberIDs(), newUserID) {
		return nil, fmt.Errorf("user is already a member")
	}
	if _, err := s.db.GetUserByID(ctx, newUserID); err != nil {
		return nil, fmt.Errorf("user not found")
	}

	if err := s.db.AddChatMember(ctx, chatID, newUserID); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	chat, err := s.db.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	s.router.MembershipChanged(chat, userID,
		fmt.Sprintf("%s: a new member was added", chat.Name), newUserID)
	s.router.NotifyIdentity(newUserID, chatID,
		fmt.Sprintf("You were added to group %q", chat.Name))

	return chat, nil
}

func (s *ChatService) RemoveMember(ctx context.Context, userID, chatID, removeUserID string) (*models.Chat, error) {
	group, err := s.adminGroup(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if !lo.Contains(group.MemberIDs(), removeUserID) {
		return nil, fmt.Errorf("user is not a member")
	}
	if removeUserID == group.AdminID {
		return nil, fmt.Errorf("admin cannot remove themselves; leave the group instead")
	}

	if err := s.db.RemoveChatMember(ctx, chatID, removeUserID); err != nil {
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}

	chat, err := s.db.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	// Pre-mutation member set, so the removed user's clients see the change.
	s.router.MembershipChangedTo(group.MemberIDs(), chat, userID,
		fmt.Sprintf("%s: a member was removed", chat.Name), removeUserID)
	s.router.NotifyIdentity(removeUserID, chatID,
		fmt.Sprintf("You were removed from group %q", chat.Name))

	return chat, nil
}

// LeaveGroup removes the caller from a group. When the leaving admin has
// other members left, adminship moves to one of them; when the admin is the
// last member, the group is deleted.
func (s *ChatService) LeaveGroup(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	group, err := s.memberGroup(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	if group.AdminID == userID {
		if len(group.Users) == 1 {
			if err := s.db.DeleteChat(ctx, chatID); err != nil {
				return nil, fmt.Errorf("failed to delete group: %w", err)
			}
			s.router.GroupDeleted(chatID, group.MemberIDs())
			return nil, nil
		}

		next, ok := lo.Find(group.MemberIDs(), func(id string) bool { return id != userID })
		if !ok {
			return nil, fmt.Errorf("no member to hand adminship to")
		}
		if err := s.db.SetChatAdmin(ctx, chatID, next); err != nil {
			return nil, fmt.Errorf("failed to reassign admin: %w", err)
		}
	}

	if err := s.db.RemoveChatMember(ctx, chatID, userID); err != nil {
		return nil, fmt.Errorf("failed to leave group: %w", err)
	}

	chat, err := s.db.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	// Pre-leave member set: the leaver's own clients must hear it too.
	s.router.MembershipChangedTo(group.MemberIDs(), chat, userID,
		fmt.Sprintf("%s: a member left the group", chat.Name))

	return chat, nil
}

func (s *ChatService) DeleteGroup(ctx context.Context, userID, chatID string) error {
	group, err := s.adminGroup(ctx, userID, chatID)
	if err != nil {
		return err
	}

	memberIDs := group.MemberIDs()
	if err := s.db.DeleteChat(ctx, chatID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	s.router.GroupDeleted(chatID, memberIDs)
	return nil
}

func (s *ChatService) memberGroup(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.db.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("group not found")
	}
	if !chat.IsGroup {
		return nil, fmt.Errorf("not a group chat")
	}
	if !lo.Contains(chat.MemberIDs(), userID) {
		return nil, fmt.Errorf("not a member of this group")
	}
	return chat, nil
}

func (s *ChatService) adminGroup(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.memberGroup(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if chat.AdminID != userID {
		return nil, fmt.Errorf("only the group admin can do this")
	}
	return chat, nil
}
