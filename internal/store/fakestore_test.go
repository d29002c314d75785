package store

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// fakeStore はFirebase RTDB互換のフェイクストア。
// tweets.json / tweets/{id}.json / subscriptions/{uid}.json を提供する。
type fakeStore struct {
	mu       sync.Mutex
	tweets   map[string]map[string]any // key -> wireオブジェクト
	subs     map[string]map[string]string
	seq      int
	listHits int // ListMessagesが呼ばれた回数（コアレッシング検証用）

	server *httptest.Server
}

// newFakeStore はフェイクストアを起動する。
func newFakeStore() *fakeStore {
	fs := &fakeStore{
		tweets: make(map[string]map[string]any),
		subs:   make(map[string]map[string]string),
	}

	r := chi.NewRouter()
	r.Get("/tweets.json", fs.handleList)
	r.Post("/tweets.json", fs.handleCreate)
	r.Delete("/tweets/{id}.json", fs.handleDelete)
	r.Get("/subscriptions/{uid}.json", fs.handleSubscriptions)

	fs.server = httptest.NewServer(r)
	return fs
}

func (fs *fakeStore) Close() {
	fs.server.Close()
}

func (fs *fakeStore) URL() string {
	return fs.server.URL
}

// nextKey は作成順に辞書順が揃うプッシュキー風のキーを採番する。
func (fs *fakeStore) nextKey() string {
	fs.seq++
	return fmt.Sprintf("-N%06d", fs.seq)
}

// addTweet はテスト準備用にメッセージを直接投入し、キーを返す。
func (fs *fakeStore) addTweet(content, userID, displayName, date, replyTo string) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	key := fs.nextKey()
	obj := map[string]any{
		"content":     content,
		"date":        date,
		"userId":      userID,
		"displayName": displayName,
	}
	if replyTo != "" {
		obj["replyTo"] = replyTo
	}
	fs.tweets[key] = obj
	return key
}

// addSubscription はテスト準備用に購読エントリを投入する。
func (fs *fakeStore) addSubscription(uid, displayName string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.subs[uid] == nil {
		fs.subs[uid] = make(map[string]string)
	}
	fs.subs[uid][uuid.NewString()] = displayName
}

func (fs *fakeStore) handleList(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.listHits++

	w.Header().Set("Content-Type", "application/json")
	if len(fs.tweets) == 0 {
		// Firebase RTDBは空コレクションに対してnullを返す
		w.Write([]byte("null"))
		return
	}
	json.NewEncoder(w).Encode(fs.tweets)
}

func (fs *fakeStore) handleCreate(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var obj map[string]any
	if err := json.NewDecoder(r.Body).Decode(&obj); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	key := fs.nextKey()
	fs.tweets[key] = obj

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"name": key})
}

func (fs *fakeStore) handleDelete(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	// 存在しないキーの削除も成功として応答する（実ストアと同じ挙動）
	delete(fs.tweets, chi.URLParam(r, "id"))

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte("null"))
}

func (fs *fakeStore) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	subs := fs.subs[chi.URLParam(r, "uid")]
	if len(subs) == 0 {
		w.Write([]byte("null"))
		return
	}
	json.NewEncoder(w).Encode(subs)
}
