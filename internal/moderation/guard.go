package moderation

import (
	"context"
	"mossboard/internal/database"
	"mossboard/internal/utils"

	"github.com/google/uuid"
)

// MemberGuard answers whether a member may act. The vote and comment
// services call out before mutating and fail the whole operation on denial;
// they do not enforce ban policy themselves.
type MemberGuard interface {
	CheckMember(ctx context.Context, memberID uuid.UUID) error
}

// BanGuard denies banned members, backed by the user store.
type BanGuard struct {
	users database.UserStore
}

func NewBanGuard(users database.UserStore) *BanGuard {
	return &BanGuard{users: users}
}

func (g *BanGuard) CheckMember(ctx context.Context, memberID uuid.UUID) error {
	user, err := g.users.GetUser(ctx, memberID)
	if err != nil {
		return err
	}
	if user.Banned {
		return utils.NewForbiddenError("member is banned: " + memberID.String())
	}
	return nil
}

// AllowAll is a guard that permits everything. Used when moderation is
// handled upstream.
type AllowAll struct{}

func (AllowAll) CheckMember(ctx context.Context, memberID uuid.UUID) error {
	return nil
}
