package security

import "testing"

// TestSanitize_PlainTextUnchanged はプレーンテキストがそのまま通過することをテストする。
func TestSanitize_PlainTextUnchanged(t *testing.T) {
	s := NewContentSanitizer()

	tests := []string{
		"こんにちは",
		"hello world",
		"改行を\n含むテキスト",
		"",
	}

	for _, input := range tests {
		if got := s.Sanitize(input); got != input {
			t.Errorf("Sanitize(%q) = %q, want unchanged", input, got)
		}
	}
}

// TestSanitize_StripsAllTags はすべてのHTMLタグが除去されることをテストする。
func TestSanitize_StripsAllTags(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		input string
		want  string
	}{
		{"<script>alert('xss')</script>hello", "hello"},
		{"<b>bold</b>", "bold"},
		{"<img src=x onerror=alert(1)>text", "text"},
		{"<a href=\"https://example.com\">link</a>", "link"},
		{"<iframe src=\"evil\"></iframe>after", "after"},
	}

	for _, tt := range tests {
		if got := s.Sanitize(tt.input); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// TestSanitize_Idempotent は同一入力に対して常に同一出力を返すことをテストする。
func TestSanitize_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	input := "<p>テスト</p>の本文"
	first := s.Sanitize(input)
	second := s.Sanitize(first)

	if first != second {
		t.Errorf("sanitize is not idempotent: first = %q, second = %q", first, second)
	}
}
