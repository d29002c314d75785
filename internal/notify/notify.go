// Package notify は操作結果のユーザー通知を抽象化する。
package notify

import "log/slog"

// Severity は通知の種別。
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// DefaultAutoCloseMs は通知の自動クローズまでの既定ミリ秒数。
const DefaultAutoCloseMs = 3000

// Notification は配信される通知1件。
type Notification struct {
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	AutoCloseMs int      `json:"autoCloseMs"`
}

// Notifier は通知の配信先インターフェース。
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier は通知を構造化ログとして記録するNotifier実装。
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier はLogNotifierを生成する。
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify は通知をログに記録する。エラー通知はWarnレベル、それ以外はInfoレベル。
func (l *LogNotifier) Notify(n Notification) {
	attrs := []any{
		slog.String("severity", string(n.Severity)),
		slog.Int("auto_close_ms", n.AutoCloseMs),
	}
	if n.Severity == SeverityError {
		l.logger.Warn(n.Message, attrs...)
		return
	}
	l.logger.Info(n.Message, attrs...)
}

// Publisher は成功・失敗通知を発行するヘルパー。
type Publisher struct {
	notifier Notifier
}

// NewPublisher はPublisherを生成する。
func NewPublisher(notifier Notifier) *Publisher {
	return &Publisher{notifier: notifier}
}

// NotifySuccess は成功通知を発行する。
func (p *Publisher) NotifySuccess(message string) {
	p.notifier.Notify(Success(message))
}

// NotifyError はエラー通知を発行する。
func (p *Publisher) NotifyError(message string) {
	p.notifier.Notify(Error(message))
}

// Success は成功通知を生成する。
func Success(message string) Notification {
	return Notification{Message: message, Severity: SeveritySuccess, AutoCloseMs: DefaultAutoCloseMs}
}

// Error はエラー通知を生成する。
func Error(message string) Notification {
	return Notification{Message: message, Severity: SeverityError, AutoCloseMs: DefaultAutoCloseMs}
}
