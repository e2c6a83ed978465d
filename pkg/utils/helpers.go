package utils

import (
	"net/http"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// FormatDate renders a time as its YYYY-MM-DD date.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// QueryInt reads an integer query parameter, falling back when absent or
// unparseable.
func QueryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
