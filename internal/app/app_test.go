package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	t.Setenv("STORE_BASE_URL", "https://example-project.firebaseio.com")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}

	if cfg.StoreBaseURL != "https://example-project.firebaseio.com" {
		t.Errorf("StoreBaseURL = %q", cfg.StoreBaseURL)
	}

	// slogのグローバルロガーがJSON出力になっていることを確認
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	t.Setenv("STORE_BASE_URL", "")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

func TestRun_Healthcheck_ServerUp(t *testing.T) {
	// /healthを返すサーバをローカルポートで起動
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listenに失敗: %v", err)
	}
	defer listener.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{Handler: mux}
	go server.Serve(listener)
	defer server.Close()

	_, port, err := net.SplitHostPort(listener.Addr().String())
	if err != nil {
		t.Fatalf("ポートの取得に失敗: %v", err)
	}
	t.Setenv("SERVER_PORT", port)

	// サーバが受け付け可能になるまで少し待つ
	time.Sleep(50 * time.Millisecond)

	var buf bytes.Buffer
	if err := Run(&buf, []string{"healthcheck"}); err != nil {
		t.Errorf("healthcheckが失敗した: %v", err)
	}
}

func TestRun_Healthcheck_ServerDown(t *testing.T) {
	// 到達不能なポートを指定
	t.Setenv("SERVER_PORT", "1")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"healthcheck"}); err == nil {
		t.Error("サーバ停止中のhealthcheckが成功した")
	}
}

func TestRun_InitFailurePropagates(t *testing.T) {
	t.Setenv("STORE_BASE_URL", "")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"serve"}); err == nil {
		t.Error("必須環境変数なしでエラーが返らなかった")
	}
}
