package format

import (
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999", // isoformat() without a zone
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// Date renders an ISO date or timestamp as a long date, e.g. "19 October 2026".
func Date(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2 January 2006"), nil
		}
	}
	return "", fmt.Errorf("invalid date %q", s)
}
