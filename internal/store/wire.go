package store

import (
	"sort"

	"github.com/hitoshi/passerelle/internal/model"
)

// wireMessage はストア上のメッセージのワイヤ表現。
// フィールド名はストアに保存済みの既存データとの互換性のために固定されている。
type wireMessage struct {
	Content     string `json:"content"`
	Date        string `json:"date"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	ReplyTo     string `json:"replyTo,omitempty"`
}

// toModel はワイヤ表現をドメインモデルに変換する。
func (w wireMessage) toModel(key string) model.Message {
	return model.Message{
		ID:          key,
		Content:     w.Content,
		AuthorID:    w.UserID,
		DisplayName: w.DisplayName,
		CreatedAt:   w.Date,
		ReplyTo:     w.ReplyTo,
	}
}

// fromDraft は下書きをワイヤ表現に変換する。
func fromDraft(d model.Draft) wireMessage {
	return wireMessage{
		Content:     d.Content,
		Date:        d.CreatedAt,
		UserID:      d.AuthorID,
		DisplayName: d.DisplayName,
		ReplyTo:     d.ReplyTo,
	}
}

// sortedKeys はマップのキーを昇順で返す。
// ストアが採番するプッシュキーは辞書順が作成順と一致するため、
// キー昇順の走査で挿入順のシーケンスが復元される。
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
