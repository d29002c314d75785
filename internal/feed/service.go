// Package feed は投稿・返信・削除とフィード読み出しの制御フローを提供する。
// リモートストアへの書き込み、クエリキャッシュの無効化、通知の発行を
// この層で一貫して調停する。
package feed

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/passerelle/internal/model"
	"github.com/hitoshi/passerelle/internal/timeline"
)

// Store はリモートストアへの書き込みインターフェース。
type Store interface {
	CreateMessage(ctx context.Context, draft model.Draft) (*model.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

// Cache はフィードスナップショットの取得と無効化のインターフェース。
type Cache interface {
	Get(ctx context.Context) ([]model.Message, error)
	Invalidate()
}

// Subscriptions は購読集合の取得インターフェース。
type Subscriptions interface {
	Names(ctx context.Context, userID string) ([]string, error)
}

// Sanitizer は投稿本文のサニタイズインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Notifier は操作結果の通知インターフェース。
type Notifier interface {
	NotifySuccess(message string)
	NotifyError(message string)
}

// Service はフィード操作のサービス。
type Service struct {
	store     Store
	cache     Cache
	subs      Subscriptions
	sanitizer Sanitizer
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(store Store, cache Cache, subs Subscriptions, sanitizer Sanitizer, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		cache:     cache,
		subs:      subs,
		sanitizer: sanitizer,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// FeedParams はフィード取得のパラメータ。
type FeedParams struct {
	// Search は本文・表示名への部分一致検索テキスト。
	Search string
	// SubscribedOnly がtrueなら購読中の表示名の投稿のみに絞る。
	SubscribedOnly bool
}

// FeedItem はフィード1件とその返信数。
type FeedItem struct {
	Message    model.Message `json:"message"`
	ReplyCount int           `json:"replyCount"`
}

// snapshot はキャッシュからスナップショットを取得する。
// 再取得に失敗しても古いスナップショットがあればそれを返し、
// エラー通知を発行する（stale-but-available）。
func (s *Service) snapshot(ctx context.Context) ([]model.Message, error) {
	snap, err := s.cache.Get(ctx)
	if err != nil && snap == nil {
		return nil, err
	}
	if err != nil {
		s.notifier.NotifyError("最新のフィードを取得できませんでした")
	}
	return snap, err
}

// Feed はトップレベルのフィードビューを返信数付きで返す。
// キャッシュの再取得に失敗しても古いスナップショットがあればそれを返す
// （結果とエラーの両方が非ゼロになりうる）。
func (s *Service) Feed(ctx context.Context, session model.Session, params FeedParams) ([]FeedItem, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil && snapshot == nil {
		return nil, err
	}

	var subNames []string
	if params.SubscribedOnly {
		names, subErr := s.subs.Names(ctx, session.UID)
		if subErr != nil {
			// 購読取得失敗時は空集合で続行し、通知だけ出す
			s.notifier.NotifyError("購読一覧の取得に失敗しました")
		}
		subNames = names
	}

	roots := timeline.TopLevelFeed(snapshot, timeline.Params{
		Search:        params.Search,
		Subscriptions: subNames,
	})

	idx := timeline.BuildIndex(snapshot)
	items := make([]FeedItem, len(roots))
	for i, m := range roots {
		items[i] = FeedItem{Message: m, ReplyCount: idx.ReplyCount(m.ID)}
	}
	return items, err
}

// Thread はルート投稿とその直接の返信（日時昇順）を返す。
// ルートがスナップショットに存在しない場合はMESSAGE_NOT_FOUNDエラー。
func (s *Service) Thread(ctx context.Context, rootID string) (*model.Message, []model.Message, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil && snapshot == nil {
		return nil, nil, err
	}

	root := timeline.FindMessage(snapshot, rootID)
	if root == nil {
		return nil, nil, model.NewMessageNotFoundError(rootID)
	}

	replies := timeline.BuildIndex(snapshot).ThreadView(rootID)
	return root, replies, nil
}

// ReplyCount は指定メッセージへの直接の返信数を返す。
func (s *Service) ReplyCount(ctx context.Context, rootID string) (int, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil && snapshot == nil {
		return 0, err
	}
	return timeline.ReplyCount(snapshot, rootID), nil
}

// Post は新しいトップレベル投稿を作成する。
func (s *Service) Post(ctx context.Context, session model.Session, content string) (*model.Message, error) {
	return s.create(ctx, session, content, "")
}

// Reply は既存投稿への返信を作成する。
// 返信先がスナップショットに存在することを確認してから書き込む。
func (s *Service) Reply(ctx context.Context, session model.Session, rootID, content string) (*model.Message, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil && snapshot == nil {
		return nil, err
	}
	if timeline.FindMessage(snapshot, rootID) == nil {
		return nil, model.NewMessageNotFoundError(rootID)
	}
	return s.create(ctx, session, content, rootID)
}

// create は投稿・返信共通の書き込みパス。
// サニタイズ → 検証 → ストア書き込み → キャッシュ無効化 → 成功通知
// の順で進む。長さ検証はサニタイズ後のテキストに対して行う。
// マークアップだけの投稿はサニタイズで空になり長さ違反として弾かれ、
// 逆にエンティティエスケープで膨らんだテキストが上限をすり抜けることもない。
// 無効化は通知より先に行い、通知を見たクライアントの
// 次の読み出しが必ず再取得になるようにする。
func (s *Service) create(ctx context.Context, session model.Session, content, replyTo string) (*model.Message, error) {
	sanitized := strings.TrimSpace(s.sanitizer.Sanitize(content))
	if utf8.RuneCountInString(sanitized) < 1 || utf8.RuneCountInString(sanitized) > model.MaxContentLength {
		return nil, model.NewContentLengthError()
	}

	draft := model.Draft{
		Content:     sanitized,
		AuthorID:    session.UID,
		DisplayName: session.DisplayName,
		CreatedAt:   s.now().UTC().Format(time.RFC3339),
		ReplyTo:     replyTo,
	}

	created, err := s.store.CreateMessage(ctx, draft)
	if err != nil {
		s.notifier.NotifyError("投稿に失敗しました")
		return nil, err
	}

	s.cache.Invalidate()
	s.notifier.NotifySuccess("投稿しました")

	s.logger.Info("メッセージを作成しました",
		slog.String("message_id", created.ID),
		slog.String("user_id", session.UID),
		slog.Bool("is_reply", replyTo != ""))
	return created, nil
}

// Delete は指定メッセージを削除する。削除できるのは投稿者本人のみ。
// スナップショットに存在しないIDは、すでに削除済みとみなして成功として
// 扱う（ストアのDELETEはべき等）。この場合も無効化と成功通知は行う。
func (s *Service) Delete(ctx context.Context, session model.Session, id string) error {
	snapshot, err := s.snapshot(ctx)
	if err != nil && snapshot == nil {
		return err
	}

	if target := timeline.FindMessage(snapshot, id); target != nil && target.AuthorID != session.UID {
		return model.NewForbiddenDeleteError()
	}

	if err := s.store.DeleteMessage(ctx, id); err != nil {
		s.notifier.NotifyError("削除に失敗しました")
		return err
	}

	s.cache.Invalidate()
	s.notifier.NotifySuccess("削除しました")

	s.logger.Info("メッセージを削除しました",
		slog.String("message_id", id),
		slog.String("user_id", session.UID))
	return nil
}

// SubscriptionNames は指定ユーザーの購読表示名一覧を返す。
func (s *Service) SubscriptionNames(ctx context.Context, session model.Session) ([]string, error) {
	return s.subs.Names(ctx, session.UID)
}
