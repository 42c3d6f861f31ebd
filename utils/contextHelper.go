package utils

import "context"

type contextKey string

const (
	ContextKeyUserId   contextKey = "user_id"
	ContextKeyUserName contextKey = "user_name"
	ContextKeyIsAdmin  contextKey = "is_admin"
)

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(ContextKeyUserId).(int)
	return v, ok
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyUserName).(string)
	return v, ok
}

func GetIsAdminFromContext(ctx context.Context) (bool, bool) {
	v, ok := ctx.Value(ContextKeyIsAdmin).(bool)
	return v, ok
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return context.WithValue(ctx, ContextKeyUserId, userId)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return context.WithValue(ctx, ContextKeyUserName, userName)
}

func SetIsAdminInContext(ctx context.Context, isAdmin bool) context.Context {
	return context.WithValue(ctx, ContextKeyIsAdmin, isAdmin)
}
