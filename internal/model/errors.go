// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, network, store, auth, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidContent  = "INVALID_CONTENT"
	ErrCodeNetworkError    = "NETWORK_ERROR"
	ErrCodeStoreError      = "STORE_ERROR"
	ErrCodeMessageNotFound = "MESSAGE_NOT_FOUND"
	ErrCodeForbiddenDelete = "FORBIDDEN_DELETE"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInvalidStoreURL = "INVALID_STORE_URL"
)

// NewContentLengthError は本文の文字数制約違反エラーを生成する。
// 送信前のローカル検証で使用され、アダプタには決して到達しない。
func NewContentLengthError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidContent,
		Message:  fmt.Sprintf("メッセージは1〜%d文字で入力してください。", MaxContentLength),
		Category: "validation",
		Action:   "本文を修正してから再送信してください。下書きは保持されています。",
	}
}

// NewNetworkError はトランスポート障害エラーを生成する。
func NewNetworkError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeNetworkError,
		Message:  fmt.Sprintf("ストアへの接続に失敗しました: %s", cause.Error()),
		Category: "network",
		Action:   "ネットワーク接続を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewStoreError はストアの非成功レスポンスエラーを生成する。
func NewStoreError(statusCode int) *APIError {
	return &APIError{
		Code:     ErrCodeStoreError,
		Message:  fmt.Sprintf("ストアがステータス %d を返しました。", statusCode),
		Category: "store",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewMessageNotFoundError はメッセージ未検出エラーを生成する。
func NewMessageNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeMessageNotFound,
		Message:  fmt.Sprintf("指定されたメッセージが見つかりません: %s", id),
		Category: "validation",
		Action:   "メッセージIDを確認してください。既に削除されている可能性があります。",
	}
}

// NewForbiddenDeleteError は他ユーザーのメッセージ削除を拒否するエラーを生成する。
func NewForbiddenDeleteError() *APIError {
	return &APIError{
		Code:     ErrCodeForbiddenDelete,
		Message:  "自分のメッセージのみ削除できます。",
		Category: "auth",
		Action:   "削除対象のメッセージを確認してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidStoreURLError は設定されたストアURLが安全でない場合のエラーを生成する。
func NewInvalidStoreURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStoreURL,
		Message:  fmt.Sprintf("ストアのベースURLが無効です: %s", reason),
		Category: "system",
		Action:   "STORE_BASE_URLの設定を確認してください。",
	}
}
