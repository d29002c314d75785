// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/passerelle/internal/model"
)

const (
	userIDHeader      = "X-User-Id"
	displayNameHeader = "X-User-Name"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストにセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// NewSessionMiddleware は認証プロキシが付与するヘッダーからセッションを
// 読み取り、リクエストコンテキストに注入するミドルウェアを返す。
// ユーザーIDヘッダーのないリクエストには401 Unauthorizedを返す。
// 表示名ヘッダーが空の場合はユーザーIDを表示名として使う。
func NewSessionMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(userIDHeader)
			if userID == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			displayName := r.Header.Get(displayNameHeader)
			if displayName == "" {
				displayName = userID
			}

			session := model.Session{UID: userID, DisplayName: displayName}
			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func SessionFromContext(ctx context.Context) (model.Session, error) {
	session, ok := ctx.Value(sessionContextKey).(model.Session)
	if !ok || session.UID == "" {
		return model.Session{}, fmt.Errorf("session not found in context")
	}
	return session, nil
}

// ContextWithSession はコンテキストにセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, session model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}
