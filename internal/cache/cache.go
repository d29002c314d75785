// Package cache は「現在既知のメッセージコレクション」の唯一の供給源となる
// クエリキャッシュを提供する。鮮度はプル型で管理される:
// スナップショットは鮮度ウィンドウ内なら再利用され、期限切れ・無効化後の
// 読み取りがリフェッチを起動する。サーバープッシュは存在しない。
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/passerelle/internal/model"
)

// Lister はキャッシュが必要とするストア操作のインターフェース。
// store.Clientの部分集合として定義する。
type Lister interface {
	ListMessages(ctx context.Context) ([]model.Message, error)
}

// MetricsRecorder はキャッシュが必要とするメトリクス記録のインターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordCoalescedWait()
	RecordStaleDiscard()
	RecordRefetchFailure()
}

// call は進行中の1回のフェッチを表す。
// 同じ鮮度切れを観測した複数の読み取りは同一のcallに合流し、
// 重複したリモート呼び出しを発行しない。
type call struct {
	done     chan struct{}
	messages []model.Message
	err      error
	seq      uint64
}

// QueryCache はメッセージコレクションのスナップショットを保持するキャッシュ。
//
// スナップショットは常に全体置換（whole-value swap）され、部分更新されない。
// 各フェッチには単調増加のシーケンス番号が付与され、現在のスナップショットより
// 古いシーケンスの結果は破棄される。これにより、遅延して到着した古いフェッチ
// 結果が新しいスナップショットを上書きすることはない。
type QueryCache struct {
	lister     Lister
	logger     *slog.Logger
	metrics    MetricsRecorder
	staleAfter time.Duration
	now        func() time.Time

	mu          sync.Mutex
	snapshot    []model.Message
	hasSnapshot bool
	fetchedAt   time.Time // ゼロ値 ⇒ 鮮度なし（次のGetがリフェッチする）
	snapshotSeq uint64    // 現在のスナップショットを生成したフェッチのシーケンス
	nextSeq     uint64
	barrier     uint64 // 最後のInvalidate時点のシーケンス。これ以前に開始されたフェッチは鮮度を回復しない
	inflight    *call
}

// New はQueryCacheの新しいインスタンスを生成する。
func New(lister Lister, logger *slog.Logger, m MetricsRecorder, staleAfter time.Duration) *QueryCache {
	return &QueryCache{
		lister:     lister,
		logger:     logger,
		metrics:    m,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Get は現在のメッセージコレクションを返す。
//
// スナップショットが存在し鮮度ウィンドウ内であればそのまま返す。
// そうでなければリフェッチを起動する。リフェッチ進行中に到着した読み取りは
// 進行中の結果に合流し、重複したリモート呼び出しを発行しない。
//
// リフェッチ失敗時は既存のスナップショット（存在すれば）とエラーの両方を返す。
// 呼び出し元は古いデータを表示しつつユーザーへ通知できる。
func (q *QueryCache) Get(ctx context.Context) ([]model.Message, error) {
	q.mu.Lock()

	if q.hasSnapshot && !q.fetchedAt.IsZero() && q.now().Sub(q.fetchedAt) < q.staleAfter {
		snap := q.snapshot
		q.mu.Unlock()
		q.metrics.RecordCacheHit()
		return snap, nil
	}

	// 進行中のフェッチが無効化より後に開始されたものであれば合流する。
	// 無効化以前に開始されたフェッチの結果で無効化後の読み取りを
	// 満たしてはならないため、その場合は新しいフェッチを起動する。
	if q.inflight != nil && q.inflight.seq > q.barrier {
		c := q.inflight
		q.mu.Unlock()
		q.metrics.RecordCoalescedWait()
		return q.await(ctx, c)
	}

	q.nextSeq++
	c := &call{done: make(chan struct{}), seq: q.nextSeq}
	q.inflight = c
	q.mu.Unlock()

	q.metrics.RecordCacheMiss()

	// 起動した読み取りがキャンセルされても、合流した他の読み取りのために
	// フェッチ自体は継続させる。リクエストの時間上限はHTTPクライアント側の
	// タイムアウトが保証する。
	go q.fetch(context.WithoutCancel(ctx), c)

	return q.await(ctx, c)
}

// Invalidate は鮮度のみをクリアし、次のGetに必ずリフェッチさせる。
// 書き込み（投稿・返信・削除）成功後に呼ばれる。
// 進行中のフェッチはキャンセルされないが、その結果が鮮度を回復することもない。
// 既存のスナップショットは次のフェッチ成功まで保持される。
func (q *QueryCache) Invalidate() {
	q.mu.Lock()
	q.fetchedAt = time.Time{}
	q.barrier = q.nextSeq
	q.mu.Unlock()

	q.logger.Debug("キャッシュを無効化しました")
}

// fetch はリモート呼び出しを実行し、結果をスナップショットへ反映する。
func (q *QueryCache) fetch(ctx context.Context, c *call) {
	messages, err := q.lister.ListMessages(ctx)

	q.mu.Lock()
	c.messages = messages
	c.err = err

	if err == nil {
		if c.seq > q.snapshotSeq {
			q.snapshot = messages
			q.hasSnapshot = true
			q.snapshotSeq = c.seq
			if c.seq > q.barrier {
				q.fetchedAt = q.now()
			} else {
				// 無効化以前に開始されたフェッチ: データは採用するが鮮度は回復しない
				q.fetchedAt = time.Time{}
			}
		} else {
			// 現在のスナップショットより古いシーケンスの遅延結果は破棄する
			q.metrics.RecordStaleDiscard()
			q.logger.Debug("古いフェッチ結果を破棄しました",
				slog.Uint64("fetch_seq", c.seq),
				slog.Uint64("snapshot_seq", q.snapshotSeq),
			)
		}
	} else {
		// 失敗したリフェッチは既存スナップショットに触れない
		q.metrics.RecordRefetchFailure()
		q.logger.Error("リフェッチに失敗しました",
			slog.Uint64("fetch_seq", c.seq),
			slog.String("error", err.Error()),
		)
	}

	if q.inflight == c {
		q.inflight = nil
	}
	q.mu.Unlock()

	close(c.done)
}

// await はフェッチ完了またはコンテキストキャンセルまで待機し、結果を返す。
func (q *QueryCache) await(ctx context.Context, c *call) ([]model.Message, error) {
	select {
	case <-c.done:
	case <-ctx.Done():
		return q.currentSnapshot(), ctx.Err()
	}

	if c.err != nil {
		return q.currentSnapshot(), c.err
	}
	return c.messages, nil
}

// currentSnapshot は現在のスナップショットを返す（存在しなければnil）。
func (q *QueryCache) currentSnapshot() []model.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.hasSnapshot {
		return nil
	}
	return q.snapshot
}
