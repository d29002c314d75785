package config

import (
	"testing"
	"time"
)

// setRequiredEnv は必須環境変数をテスト用に設定する。
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_BASE_URL", "https://example-rtdb.europe-west1.firebasedatabase.app")
}

// TestLoad_RequiredMissing は必須環境変数が未設定の場合にエラーが返ることをテストする。
func TestLoad_RequiredMissing(t *testing.T) {
	t.Setenv("STORE_BASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when STORE_BASE_URL is not set")
	}
}

// TestLoad_Defaults はオプション環境変数が未設定の場合にデフォルト値が使われることをテストする。
func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STALE_AFTER", "")
	t.Setenv("FETCH_TIMEOUT", "")
	t.Setenv("FETCH_MAX_SIZE", "")
	t.Setenv("STORE_RATE_LIMIT", "")
	t.Setenv("RATE_LIMIT_GENERAL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SERVER_PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.StaleAfter != 10*time.Second {
		t.Errorf("StaleAfter = %v, want 10s", cfg.StaleAfter)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Errorf("FetchTimeout = %v, want 10s", cfg.FetchTimeout)
	}
	if cfg.FetchMaxSize != 5242880 {
		t.Errorf("FetchMaxSize = %d, want 5242880", cfg.FetchMaxSize)
	}
	if cfg.StoreRateLimit != 10 {
		t.Errorf("StoreRateLimit = %d, want 10", cfg.StoreRateLimit)
	}
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want 120", cfg.RateLimitGeneral)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
}

// TestLoad_Overrides は環境変数による上書きが反映されることをテストする。
func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STALE_AFTER", "30s")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("STORE_RATE_LIMIT", "3")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.StaleAfter != 30*time.Second {
		t.Errorf("StaleAfter = %v, want 30s", cfg.StaleAfter)
	}
	if cfg.FetchTimeout != 5*time.Second {
		t.Errorf("FetchTimeout = %v, want 5s", cfg.FetchTimeout)
	}
	if cfg.StoreRateLimit != 3 {
		t.Errorf("StoreRateLimit = %d, want 3", cfg.StoreRateLimit)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "9090")
	}
}

// TestLoad_InvalidDuration は不正なduration値が無視されデフォルトに戻ることをテストする。
func TestLoad_InvalidDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STALE_AFTER", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.StaleAfter != 10*time.Second {
		t.Errorf("StaleAfter = %v, want default 10s for invalid input", cfg.StaleAfter)
	}
}
