// Package handler はHTTP APIのハンドラー層を提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/passerelle/internal/feed"
	"github.com/hitoshi/passerelle/internal/middleware"
	"github.com/hitoshi/passerelle/internal/model"
	"github.com/hitoshi/passerelle/internal/timeline"
)

// FeedServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	// Feed はトップレベルのフィードビューを返信数付きで返す。
	Feed(ctx context.Context, session model.Session, params feed.FeedParams) ([]feed.FeedItem, error)
	// Thread はルート投稿とその返信（日時昇順）を返す。
	Thread(ctx context.Context, rootID string) (*model.Message, []model.Message, error)
	// Post は新しいトップレベル投稿を作成する。
	Post(ctx context.Context, session model.Session, content string) (*model.Message, error)
	// Reply は既存投稿への返信を作成する。
	Reply(ctx context.Context, session model.Session, rootID, content string) (*model.Message, error)
	// Delete は投稿者本人のメッセージを削除する。
	Delete(ctx context.Context, session model.Session, id string) error
	// SubscriptionNames はユーザーの購読表示名一覧を返す。
	SubscriptionNames(ctx context.Context, session model.Session) ([]string, error)
}

// FeedHandler はフィードAPIのHTTPハンドラー。
type FeedHandler struct {
	service FeedServiceInterface
	logger  *slog.Logger
	now     func() time.Time
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service FeedServiceInterface, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

// createMessageRequest は投稿・返信リクエストのボディ。
type createMessageRequest struct {
	Content string `json:"content"`
}

// messageResponse はメッセージ1件のAPIレスポンス。
// PostedAgoは現在時刻基準の相対表現（例: "now", "45 sec", "2h"）。
type messageResponse struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	CreatedAt   string `json:"createdAt"`
	PostedAgo   string `json:"postedAgo"`
	ReplyTo     string `json:"replyTo,omitempty"`
}

// feedItemResponse はフィード1件のAPIレスポンス。
type feedItemResponse struct {
	messageResponse
	ReplyCount int `json:"replyCount"`
}

// feedResponse はフィード一覧のAPIレスポンス。
// Staleは古いスナップショットを提供していることを示す。
type feedResponse struct {
	Messages []feedItemResponse `json:"messages"`
	Stale    bool               `json:"stale"`
}

// threadResponse はスレッドビューのAPIレスポンス。
type threadResponse struct {
	Root    messageResponse   `json:"root"`
	Replies []messageResponse `json:"replies"`
}

// subscriptionsResponse は購読一覧のAPIレスポンス。
type subscriptionsResponse struct {
	Names []string `json:"names"`
}

func (h *FeedHandler) toMessageResponse(m model.Message) messageResponse {
	postedAgo := ""
	if created, ok := m.CreatedTime(); ok {
		postedAgo = timeline.FormatRelative(created, h.now())
	}
	return messageResponse{
		ID:          m.ID,
		Content:     m.Content,
		UserID:      m.AuthorID,
		DisplayName: m.DisplayName,
		CreatedAt:   m.CreatedAt,
		PostedAgo:   postedAgo,
		ReplyTo:     m.ReplyTo,
	}
}

// GetFeed はフィード一覧を取得する。
// GET /api/feed?search=...&subscribed=1
//
// キャッシュの再取得に失敗しても古いスナップショットがあれば
// stale=trueを付けて200で返す。
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	params := feed.FeedParams{
		Search:         r.URL.Query().Get("search"),
		SubscribedOnly: r.URL.Query().Get("subscribed") == "1",
	}

	items, err := h.service.Feed(r.Context(), session, params)
	if err != nil && items == nil {
		middleware.WriteAPIError(w, err)
		return
	}
	if err != nil {
		h.logger.Warn("古いスナップショットでフィードを提供します",
			slog.String("error", err.Error()))
	}

	resp := feedResponse{
		Messages: make([]feedItemResponse, len(items)),
		Stale:    err != nil,
	}
	for i, item := range items {
		resp.Messages[i] = feedItemResponse{
			messageResponse: h.toMessageResponse(item.Message),
			ReplyCount:      item.ReplyCount,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetThread はスレッドビューを取得する。
// GET /api/messages/:id/thread
func (h *FeedHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	rootID := chi.URLParam(r, "id")

	root, replies, err := h.service.Thread(r.Context(), rootID)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	resp := threadResponse{
		Root:    h.toMessageResponse(*root),
		Replies: make([]messageResponse, len(replies)),
	}
	for i, m := range replies {
		resp.Replies[i] = h.toMessageResponse(m)
	}

	writeJSON(w, http.StatusOK, resp)
}

// PostMessage は新しいトップレベル投稿を作成する。
// POST /api/messages
func (h *FeedHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "")
}

// PostReply は既存投稿への返信を作成する。
// POST /api/messages/:id/replies
func (h *FeedHandler) PostReply(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, chi.URLParam(r, "id"))
}

func (h *FeedHandler) create(w http.ResponseWriter, r *http.Request, replyTo string) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	var created *model.Message
	if replyTo == "" {
		created, err = h.service.Post(r.Context(), session, req.Content)
	} else {
		created, err = h.service.Reply(r.Context(), session, replyTo, req.Content)
	}
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toMessageResponse(*created))
}

// DeleteMessage はメッセージを削除する。削除できるのは投稿者本人のみ。
// DELETE /api/messages/:id
func (h *FeedHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Delete(r.Context(), session, chi.URLParam(r, "id")); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSubscriptions は購読一覧を取得する。
// GET /api/subscriptions
func (h *FeedHandler) GetSubscriptions(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	names, err := h.service.SubscriptionNames(r.Context(), session)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, subscriptionsResponse{Names: names})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
