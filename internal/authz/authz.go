// Package authz checks whether a user may manage subscriptions of a group
// or channel other than the chat the command was issued in.
package authz

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"tg_rss_bot/internal/model"
)

// Authorization failures. A resolve failure wraps the transport error.
var (
	ErrChatNotFound      = errors.New("chat not found")
	ErrInvalidTargetType = errors.New("target must be a channel or a group")
	ErrBotNotAdmin       = errors.New("bot is not an administrator of the target chat")
	ErrUserNotAdmin      = errors.New("user is not an administrator of the target chat")
)

// Directory is the part of the messaging transport the gate relies on.
type Directory interface {
	ResolveChat(ctx context.Context, identifier string) (model.Chat, error)
	ChatAdministrators(ctx context.Context, chatID int64) ([]int64, error)
	SelfID(ctx context.Context) (int64, error)
}

// Gate performs the administrator checks.
type Gate struct {
	dir Directory
}

// New creates a Gate over dir.
func New(dir Directory) *Gate {
	return &Gate{dir: dir}
}

// Authorize resolves target and verifies that both the bot and callerID are
// administrators of it. On success it returns the numeric id of the target.
func (g *Gate) Authorize(ctx context.Context, callerID int64, target string) (int64, error) {
	chat, err := g.dir.ResolveChat(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrChatNotFound, err)
	}

	switch chat.Type {
	case model.ChatChannel, model.ChatGroup, model.ChatSupergroup:
	default:
		return 0, ErrInvalidTargetType
	}

	admins, err := g.dir.ChatAdministrators(ctx, chat.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBotNotAdmin, err)
	}

	selfID, err := g.dir.SelfID(ctx)
	if err != nil || !slices.Contains(admins, selfID) {
		return 0, ErrBotNotAdmin
	}

	if !slices.Contains(admins, callerID) {
		return 0, ErrUserNotAdmin
	}

	return chat.ID, nil
}
