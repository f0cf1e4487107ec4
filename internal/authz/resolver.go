// Package authz resolves whether an authenticated identity may perform an
// action. Every check fails closed: lookup errors, unknown roles, and
// missing records all resolve to a denial, never to an error.
package authz

import (
	"context"
	"log/slog"

	"github.com/parley-chat/parley/internal/rbac"
	"github.com/parley-chat/parley/internal/shared"
)

// Relationship status values the resolver understands. They mirror the
// contacts module's state machine.
const (
	RelationNone     = ""
	RelationPending  = "pending"
	RelationAccepted = "accepted"
	RelationRejected = "rejected"
	RelationBlocked  = "blocked"
)

// ConversationReader is the slice of the conversations store the resolver
// needs.
type ConversationReader interface {
	CreatorOf(ctx context.Context, conversationID int64) (int64, error)
	IsParticipant(ctx context.Context, conversationID, accountID int64) (bool, error)
}

// RelationshipReader reports the contact relationship between two accounts,
// in either direction. RelationNone means no record exists.
type RelationshipReader interface {
	PairStatus(ctx context.Context, accountID, otherID int64) (string, error)
}

// Resolver combines the static role-permission table with per-record
// relationship checks.
type Resolver struct {
	logger        *slog.Logger
	conversations ConversationReader
	relationships RelationshipReader
}

// NewResolver constructs a Resolver.
func NewResolver(logger *slog.Logger, conversations ConversationReader, relationships RelationshipReader) *Resolver {
	return &Resolver{
		logger:        logger,
		conversations: conversations,
		relationships: relationships,
	}
}

// HasRole reports whether the identity carries the given role. Comparison is
// case-insensitive; an unparseable role never matches.
func (r *Resolver) HasRole(identity shared.Identity, role rbac.Role) bool {
	parsed, ok := rbac.ParseRole(identity.Role)
	if !ok {
		return false
	}
	return parsed == role
}

// HasPermission reports whether the identity's role grants the permission.
func (r *Resolver) HasPermission(identity shared.Identity, permission string) bool {
	return rbac.HasPermission(identity.Role, permission)
}

// HasPermissionFor is HasPermission with the resource/action naming
// convention applied.
func (r *Resolver) HasPermissionFor(identity shared.Identity, resource, action string) bool {
	return r.HasPermission(identity, rbac.PermissionFor(resource, action))
}

// isAdmin reports whether the identity holds one of the unconditional roles.
func (r *Resolver) isAdmin(identity shared.Identity) bool {
	return r.HasRole(identity, rbac.RoleSuperAdmin) || r.HasRole(identity, rbac.RoleAdmin)
}

// CanAccessConversation allows admins unconditionally and everyone else only
// when they participate in the conversation.
func (r *Resolver) CanAccessConversation(ctx context.Context, identity shared.Identity, conversationID int64) bool {
	if identity.AccountID == 0 || conversationID == 0 {
		return false
	}
	if r.isAdmin(identity) {
		return true
	}
	if !r.HasPermission(identity, rbac.PermViewConversations) {
		return false
	}
	ok, err := r.conversations.IsParticipant(ctx, conversationID, identity.AccountID)
	if err != nil {
		r.logger.Warn("participant lookup", slog.Any("error", err), slog.Int64("conversation_id", conversationID))
		return false
	}
	return ok
}

// CanManageConversation allows admins, the conversation's creator, and
// moderators who participate in it.
func (r *Resolver) CanManageConversation(ctx context.Context, identity shared.Identity, conversationID int64) bool {
	if identity.AccountID == 0 || conversationID == 0 {
		return false
	}
	if r.isAdmin(identity) {
		return true
	}
	creatorID, err := r.conversations.CreatorOf(ctx, conversationID)
	if err != nil {
		return false
	}
	if creatorID == identity.AccountID {
		return true
	}
	if !r.HasRole(identity, rbac.RoleModerator) {
		return false
	}
	ok, err := r.conversations.IsParticipant(ctx, conversationID, identity.AccountID)
	if err != nil {
		return false
	}
	return ok
}

// CanViewUserProfile allows self-views and admins; anyone else needs the
// view permission and an accepted contact relationship with the target.
func (r *Resolver) CanViewUserProfile(ctx context.Context, identity shared.Identity, targetID int64) bool {
	if identity.AccountID == 0 || targetID == 0 {
		return false
	}
	if identity.AccountID == targetID {
		return true
	}
	if r.isAdmin(identity) {
		return true
	}
	if !r.HasPermission(identity, rbac.PermViewProfiles) {
		return false
	}
	status, err := r.relationships.PairStatus(ctx, identity.AccountID, targetID)
	if err != nil {
		r.logger.Warn("relationship lookup", slog.Any("error", err), slog.Int64("target_id", targetID))
		return false
	}
	return status == RelationAccepted
}

// CanSendContactRequest denies self-requests, callers without the send
// permission, and any pair that already has a live relationship. A rejected
// relationship may be retried.
func (r *Resolver) CanSendContactRequest(ctx context.Context, identity shared.Identity, targetID int64) bool {
	if identity.AccountID == 0 || targetID == 0 || identity.AccountID == targetID {
		return false
	}
	if !r.HasPermission(identity, rbac.PermSendContactRequests) {
		return false
	}
	status, err := r.relationships.PairStatus(ctx, identity.AccountID, targetID)
	if err != nil {
		r.logger.Warn("relationship lookup", slog.Any("error", err), slog.Int64("target_id", targetID))
		return false
	}
	switch status {
	case RelationNone, RelationRejected:
		return true
	default:
		return false
	}
}
