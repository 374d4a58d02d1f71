package teams

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/auth"
	"github.com/layr-ng/layr-api/pkg/email"
	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/observability"
	"github.com/layr-ng/layr-api/pkg/users"
)

// UserDirectory is the slice of the user store the team service needs to
// resolve invitees and inviters.
type UserDirectory interface {
	GetUserByEmail(ctx context.Context, email string) (*users.User, error)
	GetUserByID(ctx context.Context, id string) (*users.User, error)
}

// Service implements team operations.
type Service struct {
	store     Store
	userDir   UserDirectory
	tokens    *auth.TokenManager
	mail      email.Sender
	logger    *observability.Logger
	clientURL string
}

// NewService creates the teams service.
func NewService(store Store, userDir UserDirectory, tokens *auth.TokenManager, mail email.Sender, logger *observability.Logger, clientURL string) *Service {
	return &Service{
		store:     store,
		userDir:   userDir,
		tokens:    tokens,
		mail:      mail,
		logger:    logger,
		clientURL: clientURL,
	}
}

// Create creates a team. The creator becomes its owner member in the same
// transaction.
func (s *Service) Create(ctx context.Context, creatorID, title, description string) (*Team, error) {
	if title == "" {
		return nil, apierrors.Validation("Title is required")
	}
	team := &Team{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		CreatorID:   creatorID,
	}
	if err := s.store.CreateWithOwner(ctx, team); err != nil {
		s.logger.WithError(err).Error("team creation failed")
		return nil, apierrors.Internal("Could not create team", err)
	}
	return team, nil
}

// Get returns the full team view: creator, active members and diagrams.
func (s *Service) Get(ctx context.Context, id string) (*Team, error) {
	team, err := s.store.GetByID(ctx, id)
	if err == ErrNotFound {
		return nil, apierrors.NotFound("Team not found")
	}
	if err != nil {
		return nil, apierrors.Internal("Failed to load team", err)
	}

	if team.Members, err = s.store.ListMembers(ctx, id); err != nil {
		return nil, apierrors.Internal("Failed to load team", err)
	}
	if team.Diagrams, err = s.store.ListDiagrams(ctx, id); err != nil {
		return nil, apierrors.Internal("Failed to load team", err)
	}
	return team, nil
}

// ListForUser returns the teams the user actively belongs to.
func (s *Service) ListForUser(ctx context.Context, userID string, p httputil.Pagination) ([]Team, error) {
	rows, err := s.store.ListForUser(ctx, userID, p)
	if err != nil {
		return nil, apierrors.Internal("Failed to list teams", err)
	}
	return rows, nil
}

// ListAll returns every team, for the admin console.
func (s *Service) ListAll(ctx context.Context, p httputil.Pagination) ([]Team, error) {
	rows, err := s.store.ListAll(ctx, p)
	if err != nil {
		return nil, apierrors.Internal("Failed to list teams", err)
	}
	return rows, nil
}

// Update applies a partial team update.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) error {
	if err := s.store.Update(ctx, id, input); err != nil {
		return apierrors.Internal("Failed to update team", err)
	}
	return nil
}

// Delete removes the team with its memberships and diagram links.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.store.GetCreatorID(ctx, id); err == ErrNotFound {
		return apierrors.NotFound("Team not found")
	} else if err != nil {
		return apierrors.Internal("Failed to delete team", err)
	}
	if err := s.store.DeleteCascade(ctx, id); err != nil {
		return apierrors.Internal("Failed to delete team", err)
	}
	return nil
}

// SendInvite invites a registered user to the team by email. A member row is
// created in invited state and a signed invitation link is mailed out. A
// pending invite may be re-sent, which also refreshes the offered role.
func (s *Service) SendInvite(ctx context.Context, teamID, inviterID, inviteeEmail, role string) error {
	if !ValidRole(role) {
		return apierrors.Validation("Invalid team role")
	}
	normalized := strings.ToLower(strings.TrimSpace(inviteeEmail))

	user, err := s.userDir.GetUserByEmail(ctx, normalized)
	if err == users.ErrNotFound {
		return apierrors.Validation("User must be signed up")
	}
	if err != nil {
		return apierrors.Internal("Could not send invitation link.", err)
	}

	existing, err := s.store.GetMember(ctx, teamID, user.ID)
	if err != nil && err != ErrNotFound {
		return apierrors.Internal("Could not send invitation link.", err)
	}
	if existing != nil {
		if existing.MembershipStatus == MembershipBlocked {
			return apierrors.Conflict("User was previously blocked from this team and cannot be re-added.")
		}
		if existing.MembershipStatus == MembershipActive &&
			existing.InvitationStatus == InvitationAccepted &&
			existing.DateJoined != nil {
			return apierrors.Conflict("User is already a member of the team.")
		}
		if existing.Role != role {
			if err := s.store.UpdateMemberRole(ctx, teamID, user.ID, role); err != nil {
				return apierrors.Internal("Could not send invitation link.", err)
			}
		}
	} else {
		now := time.Now()
		member := &Member{
			TeamID:           teamID,
			UserID:           user.ID,
			AuthorID:         inviterID,
			Role:             role,
			InvitationStatus: InvitationInvited,
			MembershipStatus: MembershipInactive,
			DateInvited:      &now,
		}
		if err := s.store.CreateMember(ctx, member); err != nil {
			return apierrors.Internal("Could not send invitation link.", err)
		}
	}

	token, err := s.tokens.SignTeamInvite(teamID, user.ID)
	if err != nil {
		return apierrors.Internal("Could not send invitation link.", err)
	}
	link := fmt.Sprintf("%s/accept_invite/teams/%s", s.clientURL, token)

	team, err := s.store.GetByID(ctx, teamID)
	if err != nil {
		return apierrors.Internal("Could not send invitation link.", err)
	}
	inviter, err := s.userDir.GetUserByID(ctx, inviterID)
	if err != nil {
		return apierrors.Internal("Could not send invitation link.", err)
	}

	if err := s.mail.Send(ctx, email.TeamInviteMessage(normalized, inviter.FullName, team.Title, link)); err != nil {
		s.logger.WithError(err).Error("invitation mail failed")
		return apierrors.Internal("Could not send invitation link.", err)
	}
	return nil
}

// HandleInvitation resolves an invitation link. The action is one of verify,
// accept or decline. Verify returns the landing page data without changing
// state; decline removes the pending row; accept activates the membership.
// Only the invited user may act on the token.
func (s *Service) HandleInvitation(ctx context.Context, callerID, token, action string) (*InvitationData, string, error) {
	if token == "" {
		return nil, "", apierrors.Validation("Missing secure invitation token.")
	}

	teamID, invitedUserID, err := s.tokens.VerifyTeamInvite(token)
	if err != nil {
		return nil, "", err
	}
	if callerID != invitedUserID {
		return nil, "", apierrors.Unauthorized("You are not authorized to view, accept or decline this invitation.")
	}

	member, err := s.store.GetMember(ctx, teamID, invitedUserID)
	if err == ErrNotFound {
		return nil, "", apierrors.NotFound("Team invitation not found.")
	}
	if err != nil {
		return nil, "", apierrors.Internal("Failed to handle team invitation.", err)
	}
	if member.InvitationStatus == InvitationAccepted {
		return nil, "", apierrors.Conflict("You have already accepted this invitation.")
	}

	switch action {
	case InviteActionVerify:
		inviter, err := s.userDir.GetUserByID(ctx, member.AuthorID)
		if err != nil {
			return nil, "", apierrors.NotFound("Team or inviter not found.")
		}
		team, err := s.store.GetByID(ctx, teamID)
		if err != nil {
			return nil, "", apierrors.NotFound("Team or inviter not found.")
		}
		return &InvitationData{
			TeamName:      team.Title,
			InviterName:   inviter.FullName,
			InviterAvatar: inviter.Picture,
			Role:          member.Role,
			IsValid:       true,
		}, teamID, nil

	case InviteActionDecline:
		if err := s.store.RemoveMember(ctx, teamID, invitedUserID); err != nil {
			return nil, "", apierrors.Internal("Failed to handle team invitation.", err)
		}
		return nil, teamID, nil

	case InviteActionAccept:
		now := time.Now()
		if err := s.store.UpdateInvitation(ctx, teamID, invitedUserID, InvitationAccepted, MembershipActive, &now); err != nil {
			return nil, "", apierrors.Internal("Failed to handle team invitation.", err)
		}
		return nil, teamID, nil

	default:
		return nil, "", apierrors.Validation("Invalid invitation action")
	}
}

// Leave removes the caller's own membership. The creator cannot leave.
func (s *Service) Leave(ctx context.Context, teamID, userID string) error {
	creatorID, err := s.store.GetCreatorID(ctx, teamID)
	if err == ErrNotFound {
		return apierrors.NotFound("Team not found")
	}
	if err != nil {
		return apierrors.Internal("Failed to leave team", err)
	}

	if _, err := s.store.GetMember(ctx, teamID, userID); err == ErrNotFound {
		return apierrors.Validation("You are not a member of this team or already left.")
	} else if err != nil {
		return apierrors.Internal("Failed to leave team", err)
	}

	if creatorID == userID {
		return apierrors.Forbidden("Team creator cannot be removed from the team")
	}

	if err := s.store.RemoveMember(ctx, teamID, userID); err != nil {
		return apierrors.Internal("Failed to leave team", err)
	}
	return nil
}

// RemoveMember removes another user from the team. The creator can never be
// removed.
func (s *Service) RemoveMember(ctx context.Context, teamID, userID string) error {
	creatorID, err := s.store.GetCreatorID(ctx, teamID)
	if err == ErrNotFound {
		return apierrors.NotFound("Team not found")
	}
	if err != nil {
		return apierrors.Internal("Failed to remove team member", err)
	}
	if creatorID == userID {
		return apierrors.Forbidden("Team creator cannot be removed from the team")
	}
	if err := s.store.RemoveMember(ctx, teamID, userID); err != nil {
		return apierrors.Internal("Failed to remove team member", err)
	}
	return nil
}

// Authorize checks that the user is an active, accepted member of the team,
// optionally restricted to the given roles. It returns the membership for
// handlers that need it.
func (s *Service) Authorize(ctx context.Context, teamID, userID string, allowedRoles ...string) (*Member, error) {
	if _, err := s.store.GetCreatorID(ctx, teamID); err == ErrNotFound {
		return nil, apierrors.NotFound("Team not found")
	} else if err != nil {
		return nil, apierrors.Internal("Authorization check failed", err)
	}

	member, err := s.store.GetActiveMember(ctx, teamID, userID)
	if err == ErrNotFound {
		return nil, apierrors.Forbidden("You are not a member of this team")
	}
	if err != nil {
		return nil, apierrors.Internal("Authorization check failed", err)
	}

	if len(allowedRoles) > 0 {
		allowed := false
		for _, role := range allowedRoles {
			if member.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, apierrors.Forbidden("Insufficient team privileges")
		}
	}
	return member, nil
}

// AddDiagrams links diagrams into the team. Adding any diagram that is
// already linked fails the whole batch.
func (s *Service) AddDiagrams(ctx context.Context, teamID, authorID string, diagramIDs []string) error {
	if len(diagramIDs) == 0 {
		return apierrors.Validation("No diagrams to add")
	}

	existing, err := s.store.CountExistingDiagrams(ctx, teamID, diagramIDs)
	if err != nil {
		return apierrors.Internal("Failed to add diagrams to team", err)
	}
	if existing > 0 {
		return apierrors.Conflict("One or more diagrams already added to team")
	}

	if err := s.store.AddDiagrams(ctx, teamID, authorID, diagramIDs); err != nil {
		return apierrors.Internal("Failed to add diagrams to team", err)
	}
	return nil
}

// RemoveDiagram unlinks a diagram from the team. The diagram itself is
// untouched.
func (s *Service) RemoveDiagram(ctx context.Context, teamID, diagramID string) error {
	if err := s.store.RemoveDiagram(ctx, teamID, diagramID); err != nil {
		return apierrors.Internal("Failed to remove diagram from team", err)
	}
	return nil
}

// ListDiagrams returns the team's diagrams.
func (s *Service) ListDiagrams(ctx context.Context, teamID string) ([]TeamDiagram, error) {
	rows, err := s.store.ListDiagrams(ctx, teamID)
	if err != nil {
		return nil, apierrors.Internal("Failed to list team diagrams", err)
	}
	return rows, nil
}
