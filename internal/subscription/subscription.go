// Package subscription はユーザーごとの購読（フォロー中の表示名集合）を管理する。
package subscription

import (
	"context"
	"log/slog"
	"sync"
)

// Lister はリモートストアから購読一覧を取得するインターフェース。
type Lister interface {
	ListSubscriptions(ctx context.Context, userID string) ([]string, error)
}

// Service はユーザー単位の購読集合をメモリに保持する。
// 購読の変更はまれなため、セッション中は初回取得結果を使い回し、
// Refreshで明示的に再取得する。
type Service struct {
	lister Lister
	logger *slog.Logger

	mu   sync.RWMutex
	sets map[string][]string
}

// NewService はServiceを生成する。
func NewService(lister Lister, logger *slog.Logger) *Service {
	return &Service{
		lister: lister,
		logger: logger,
		sets:   make(map[string][]string),
	}
}

// Names は指定ユーザーの購読表示名一覧を返す。
// 未取得ならリモートから取得してキャッシュする。
// 取得に失敗した場合は空集合とエラーを返す。空集合はキャッシュされず、
// 次回の呼び出しで再試行される。
func (s *Service) Names(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	cached, ok := s.sets[userID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}
	return s.Refresh(ctx, userID)
}

// Refresh はキャッシュを無視してリモートから購読一覧を取得し直す。
func (s *Service) Refresh(ctx context.Context, userID string) ([]string, error) {
	names, err := s.lister.ListSubscriptions(ctx, userID)
	if err != nil {
		s.logger.Warn("購読一覧の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return []string{}, err
	}
	if names == nil {
		names = []string{}
	}

	s.mu.Lock()
	s.sets[userID] = names
	s.mu.Unlock()

	s.logger.Debug("購読一覧を更新しました",
		slog.String("user_id", userID),
		slog.Int("count", len(names)))
	return names, nil
}

// Contains は指定ユーザーの購読集合に表示名が含まれるかを返す。
// キャッシュ済みの集合のみを参照し、リモート呼び出しは行わない。
func (s *Service) Contains(userID, displayName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range s.sets[userID] {
		if name == displayName {
			return true
		}
	}
	return false
}
