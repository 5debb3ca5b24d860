package ctxkeys

import (
	"context"

	"github.com/templui/filesmanager/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	OwnerKey     contextKey = "owner"
	TokenKey     contextKey = "token"
	RequestIDKey contextKey = "request_id"
)

// Owner returns the authenticated owner, or nil for anonymous requests.
func Owner(ctx context.Context) *model.OwnerID {
	owner, _ := ctx.Value(OwnerKey).(model.OwnerID)
	if owner == "" {
		return nil
	}
	return &owner
}

func WithOwner(ctx context.Context, owner model.OwnerID) context.Context {
	return context.WithValue(ctx, OwnerKey, owner)
}

// Token returns the session token the owner was resolved from.
func Token(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
