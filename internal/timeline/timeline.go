// Package timeline はスナップショットからスレッド構造とフィードビューを導出する
// 純粋関数群を提供する。リモート呼び出しも状態も持たない。
//
// リモートストアはフラットなコレクションを返すため、返信関係は
// クライアント側で再構築する。スナップショットごとに親ID→子リストの
// インデックスを1回構築し、レンダリングごとの再走査を避ける。
package timeline

import (
	"sort"
	"strings"

	"github.com/hitoshi/passerelle/internal/model"
)

// Params はフィードビューのパラメータ。
type Params struct {
	// Search は本文または表示名に対する大文字小文字を区別しない部分一致検索。
	// 空文字列はすべてにマッチする。
	Search string
	// Subscriptions はnilなら購読フィルタなし。
	// 非nilなら表示名がこの集合に含まれるルート投稿のみを通す
	// （空の非nil集合は何にもマッチしない）。
	Subscriptions []string
}

// Index はスナップショット1つ分のスレッドインデックス。
// 親メッセージID→直接の返信リスト（スナップショット順）と、
// スナップショットに存在するメッセージIDの集合を保持する。
type Index struct {
	byParent map[string][]model.Message
	present  map[string]struct{}
}

// BuildIndex はスナップショットからスレッドインデックスを構築する。
// 返信の親がスナップショットに存在しない（削除済み等の）場合も
// インデックスには登録される。カウントには含まれるが、
// スレッドビューとしては決して参照されないだけである。
func BuildIndex(snapshot []model.Message) *Index {
	byParent := make(map[string][]model.Message)
	present := make(map[string]struct{}, len(snapshot))
	for _, m := range snapshot {
		present[m.ID] = struct{}{}
		if m.ReplyTo == "" {
			continue
		}
		byParent[m.ReplyTo] = append(byParent[m.ReplyTo], m)
	}
	return &Index{byParent: byParent, present: present}
}

// ReplyCount は指定メッセージへの直接の返信数を返す。
func (idx *Index) ReplyCount(rootID string) int {
	return len(idx.byParent[rootID])
}

// ThreadView は指定ルートへの直接の返信を作成日時の昇順で返す。
// 同時刻の返信はスナップショット内の元の順序を保つ（安定ソート）。
// ルートが存在しない・削除済みの場合は空シーケンスを返し、エラーにしない。
// パースできない日時はゼロ時刻として扱い、先頭側に並ぶ。
func (idx *Index) ThreadView(rootID string) []model.Message {
	if _, ok := idx.present[rootID]; !ok {
		return []model.Message{}
	}
	children := idx.byParent[rootID]
	if len(children) == 0 {
		return []model.Message{}
	}

	sorted := make([]model.Message, len(children))
	copy(sorted, children)

	sort.SliceStable(sorted, func(i, j int) bool {
		ti, _ := sorted[i].CreatedTime()
		tj, _ := sorted[j].CreatedTime()
		return ti.Before(tj)
	})

	return sorted
}

// TopLevelFeed はトップレベルのフィードビューを返す。
//
// 選択条件: ルート投稿（ReplyToが空）であり、検索テキストが本文または
// 表示名に含まれ（大文字小文字は区別しない）、購読フィルタが有効なら
// 表示名が購読集合に含まれること。
//
// 出力順はストア順の逆（最新が先頭）。タイムスタンプの比較ではなく
// 挿入順の反転である。ストアは挿入順でコレクションを返すため、
// これが最新順と一致する。
func TopLevelFeed(snapshot []model.Message, params Params) []model.Message {
	var subs map[string]struct{}
	if params.Subscriptions != nil {
		subs = make(map[string]struct{}, len(params.Subscriptions))
		for _, name := range params.Subscriptions {
			subs[name] = struct{}{}
		}
	}

	search := strings.ToLower(params.Search)

	var selected []model.Message
	for _, m := range snapshot {
		if !m.IsRoot() {
			continue
		}
		if search != "" && !matchesSearch(&m, search) {
			continue
		}
		if subs != nil {
			if _, ok := subs[m.DisplayName]; !ok {
				continue
			}
		}
		selected = append(selected, m)
	}

	// ストア順を反転して最新順にする
	reversed := make([]model.Message, len(selected))
	for i, m := range selected {
		reversed[len(selected)-1-i] = m
	}

	return reversed
}

// ReplyCount はスナップショット全体を走査して直接の返信数を数える。
// インデックスを構築済みの場合はIndex.ReplyCountを使う方が効率的だが、
// 結果は常に一致する。
func ReplyCount(snapshot []model.Message, rootID string) int {
	count := 0
	for _, m := range snapshot {
		if m.ReplyTo == rootID && rootID != "" {
			count++
		}
	}
	return count
}

// FindMessage はスナップショットから指定IDのメッセージを探す。
// 見つからなければnilを返す。
func FindMessage(snapshot []model.Message, id string) *model.Message {
	for i := range snapshot {
		if snapshot[i].ID == id {
			return &snapshot[i]
		}
	}
	return nil
}

// matchesSearch は検索テキスト（小文字化済み）が本文または表示名に含まれるかを返す。
func matchesSearch(m *model.Message, search string) bool {
	return strings.Contains(strings.ToLower(m.Content), search) ||
		strings.Contains(strings.ToLower(m.DisplayName), search)
}
