// Package model はドメインモデルを定義する。
package model

import "time"

// MaxContentLength はメッセージ本文の最大文字数（Unicodeコードポイント単位）。
const MaxContentLength = 280

// Message はリモートストアに保存された1件のメッセージを表す。
// 作成後は不変であり、編集機能は存在しない（削除のみ）。
type Message struct {
	ID          string // ストアが採番する不透明キー
	Content     string
	AuthorID    string
	DisplayName string // 作成時点の表示名のスナップショット（以後のプロフィール変更には追随しない）
	CreatedAt   string // クライアントが送信時に採番するRFC3339タイムスタンプ
	ReplyTo     string // 空 ⇒ ルート投稿、非空 ⇒ 返信先メッセージのID
}

// IsRoot はメッセージがルート投稿（返信でない）かどうかを返す。
func (m *Message) IsRoot() bool {
	return m.ReplyTo == ""
}

// CreatedTime はCreatedAtをパースして返す。
// パースできない場合はゼロ値のtime.Timeとfalseを返す。
func (m *Message) CreatedTime() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, m.CreatedAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Draft は未送信のメッセージ下書きを表す。
// IDを持たない（ストアが作成時に採番する）。
// CreatedAtは送信直前にクライアント側で採番される。
type Draft struct {
	Content     string
	AuthorID    string
	DisplayName string
	CreatedAt   string // RFC3339
	ReplyTo     string // 空 ⇒ ルート投稿
}

// Session は認証コラボレータから供給される現在のユーザー情報。
// エンジンは読み取りのみ行い、決して変更しない。
// グローバル状態ではなく、各エントリーポイントへ明示的に引き渡される。
type Session struct {
	UID         string
	DisplayName string
}
