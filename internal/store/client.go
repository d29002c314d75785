// Package store はリモートストアアダプタを提供する。
// Firebase RTDB互換のフラットなドキュメントコレクションに対して
// ドメイン操作（一覧・作成・削除・購読一覧）をHTTP呼び出しへ変換する。
// 自身は一切の状態を持たず、キャッシュにも触れない。
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/passerelle/internal/model"
)

// 操作ラベル（メトリクス用）
const (
	opList              = "list"
	opCreate            = "create"
	opDelete            = "delete"
	opListSubscriptions = "list_subscriptions"
)

// MetricsRecorder はアダプタが必要とするメトリクス記録のインターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordStoreRequest(op string, statusCode int)
	RecordStoreLatency(op string, duration time.Duration)
}

// Client はリモートストアのクライアント。
// 全リクエストはレートリミッタを通過し、設定されたタイムアウトと
// レスポンスサイズ上限の範囲で実行される。
type Client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
	maxBodySize int64
	metrics     MetricsRecorder
}

// ClientConfig はClientの生成パラメータ。
type ClientConfig struct {
	BaseURL     string
	MaxBodySize int64
	RateLimit   int // 秒間リクエスト上限。0以下なら制限なし
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientにはsecurity.SSRFGuardServiceが生成した安全なクライアントを渡す。
func NewClient(httpClient *http.Client, logger *slog.Logger, m MetricsRecorder, cfg ClientConfig) *Client {
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = cfg.RateLimit * 2
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		httpClient:  httpClient,
		limiter:     rate.NewLimiter(limit, burst),
		logger:      logger,
		maxBodySize: cfg.MaxBodySize,
		metrics:     m,
	}
}

// ListMessages はフラットなメッセージコレクション全体を取得する。
// ストアはキー→メッセージのJSONオブジェクト、またはコレクションが
// 空・未作成の場合はnullを返す。nullは空シーケンスとして扱い、エラーにしない。
// 返却順はキー昇順（＝ストアの挿入順）。
func (c *Client) ListMessages(ctx context.Context) ([]model.Message, error) {
	body, err := c.do(ctx, opList, http.MethodGet, c.baseURL+"/tweets.json", nil)
	if err != nil {
		return nil, err
	}

	// コレクション未作成時はnullが返る
	var raw map[string]wireMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("メッセージ一覧のパースに失敗しました: %w", err)
	}
	if raw == nil {
		return []model.Message{}, nil
	}

	messages := make([]model.Message, 0, len(raw))
	for _, key := range sortedKeys(raw) {
		messages = append(messages, raw[key].toModel(key))
	}

	return messages, nil
}

// CreateMessage は下書きをストアに送信し、採番されたIDを持つメッセージを返す。
// CreatedAtは呼び出し元（サービス層）が送信前に採番済みであることを前提とする。
func (c *Client) CreateMessage(ctx context.Context, draft model.Draft) (*model.Message, error) {
	payload, err := json.Marshal(fromDraft(draft))
	if err != nil {
		return nil, fmt.Errorf("下書きのエンコードに失敗しました: %w", err)
	}

	body, err := c.do(ctx, opCreate, http.MethodPost, c.baseURL+"/tweets.json", payload)
	if err != nil {
		return nil, err
	}

	// ストアは採番したキーを {"name": "<key>"} で返す
	var result struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("作成レスポンスのパースに失敗しました: %w", err)
	}
	if result.Name == "" {
		return nil, fmt.Errorf("ストアがキーを採番しませんでした")
	}

	msg := fromDraft(draft).toModel(result.Name)
	return &msg, nil
}

// DeleteMessage は指定IDのメッセージをストアから削除する。
// このストアでは存在しないIDの削除も成功応答となる。
// 呼び出し層はいずれにせよ削除済みとして扱う。
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	u := fmt.Sprintf("%s/tweets/%s.json", c.baseURL, url.PathEscape(id))
	_, err := c.do(ctx, opDelete, http.MethodDelete, u, nil)
	return err
}

// ListSubscriptions は指定ユーザーのフォロー表示名一覧を取得する。
// ストアはキー→表示名のJSONオブジェクト、未作成時はnullを返す。
// 返却順はキー昇順。
func (c *Client) ListSubscriptions(ctx context.Context, uid string) ([]string, error) {
	u := fmt.Sprintf("%s/subscriptions/%s.json", c.baseURL, url.PathEscape(uid))
	body, err := c.do(ctx, opListSubscriptions, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var raw map[string]string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("購読一覧のパースに失敗しました: %w", err)
	}
	if raw == nil {
		return []string{}, nil
	}

	names := make([]string, 0, len(raw))
	for _, key := range sortedKeys(raw) {
		names = append(names, raw[key])
	}

	return names, nil
}

// do はレート制限・リクエスト実行・ステータス検証・ボディ読み取りを共通処理する。
// トランスポート障害はNetworkError、非2xxレスポンスはStoreErrorとして返す。
func (c *Client) do(ctx context.Context, op, method, rawURL string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, model.NewNetworkError(err)
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ストアへのリクエストに失敗しました",
			slog.String("op", op),
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		c.metrics.RecordStoreRequest(op, 0)
		return nil, model.NewNetworkError(err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	c.metrics.RecordStoreRequest(op, resp.StatusCode)
	c.metrics.RecordStoreLatency(op, duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("ストアがエラーステータスを返しました",
			slog.String("op", op),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewStoreError(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return nil, model.NewNetworkError(err)
	}

	c.logger.Debug("ストアリクエストが完了しました",
		slog.String("op", op),
		slog.Int("http_status", resp.StatusCode),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return body, nil
}
