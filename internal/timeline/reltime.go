package timeline

import (
	"fmt"
	"time"
)

// FormatRelative は投稿日時を現在時刻からの相対表現に整形する。
//
//	30秒未満        → "now"
//	60秒未満        → "N sec"
//	60分未満        → "N min"
//	24時間未満      → "Nh"
//	それ以上        → 日+短縮月名（例: "3 Mar"）
//
// 単位は切り捨てで計算する。未来の日時（クロックずれ）は "now" として扱う。
func FormatRelative(posted, now time.Time) string {
	diff := now.Sub(posted)
	if diff < 0 {
		return "now"
	}

	secs := int(diff.Seconds())
	switch {
	case secs < 30:
		return "now"
	case secs < 60:
		return fmt.Sprintf("%d sec", secs)
	case secs < 3600:
		return fmt.Sprintf("%d min", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%dh", secs/3600)
	default:
		return posted.Format("2 Jan")
	}
}
