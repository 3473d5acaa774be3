package devserver

import (
	"fmt"
	"strings"
	"time"
)

// naiveLayout is how reservation times travel: local wall clock, no zone
const naiveLayout = "2006-01-02T15:04:05"

// LocalTime is a reservation time in the server's local zone
type LocalTime struct {
	time.Time
}

var localTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	naiveLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*t = LocalTime{}
		return nil
	}
	parsed, err := parseLocalTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// parseLocalTime reads s in any accepted layout, in the local zone when s has none
func parseLocalTime(s string) (LocalTime, error) {
	for _, layout := range localTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return LocalTime{parsed.Local()}, nil
		}
	}
	return LocalTime{}, fmt.Errorf("invalid datetime %q", s)
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Local().Format(naiveLayout) + `"`), nil
}
