// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザー投稿の本文をサニタイズし、
// XSS攻撃などのセキュリティリスクから他ユーザーを保護する。
// メッセージ本文はプレーンテキストであり、マークアップは一切許可しない。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はメッセージ本文のサニタイズ機能のインターフェースを定義する。
// 投稿・返信の送信前に使用される。
type ContentSanitizerService interface {
	// Sanitize は本文からすべてのHTMLタグとイベント属性を除去し、
	// プレーンテキストのみを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべての要素と属性を除去し、テキストコンテンツのみを残す。
// メッセージ本文にリッチテキストの要件はないため、許可リストは空でよい。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は本文からすべてのマークアップを除去してプレーンテキストを返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
