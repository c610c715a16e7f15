package util

import (
	"time"
)

// LayoutYMD is the compact date layout used by the upstream quote service.
const LayoutYMD = "20060102"

// FormatYMD formats t as YYYYMMDD.
func FormatYMD(t time.Time) string {
	return t.Format(LayoutYMD)
}

// ParseYMD parses a YYYYMMDD string. Returns (t, true) if it worked.
func ParseYMD(s string) (time.Time, bool) {
	if len(s) != len(LayoutYMD) {
		return time.Time{}, false
	}
	t, err := time.Parse(LayoutYMD, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// LookbackRange returns the [from, to] YYYYMMDD pair covering the last
// days calendar days ending at now.
func LookbackRange(now time.Time, days int) (string, string) {
	if days < 1 {
		days = 1
	}
	return FormatYMD(now.AddDate(0, 0, -days)), FormatYMD(now)
}
