// config/duration.go
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseDurationFlexible accepts "90s"/"2m" strings, plain seconds (as a
// number or a numeric string), or a time.Duration. nil and unknown types
// yield def without error; invalid or non-positive values yield def and an error.
func parseDurationFlexible(raw any, def time.Duration) (time.Duration, error) {
	switch t := raw.(type) {
	case time.Duration:
		return positive(t, def)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def, nil
		}
		if d, err := time.ParseDuration(s); err == nil {
			return positive(d, def)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return seconds(f, def)
		}
		return def, fmt.Errorf("cannot parse duration %q", s)
	case int:
		return seconds(float64(t), def)
	case int32:
		return seconds(float64(t), def)
	case int64:
		return seconds(float64(t), def)
	case float64:
		return seconds(t, def)
	default:
		return def, nil
	}
}

func positive(d, def time.Duration) (time.Duration, error) {
	if d <= 0 {
		return def, fmt.Errorf("duration must be >0")
	}
	return d, nil
}

func seconds(n float64, def time.Duration) (time.Duration, error) {
	if n <= 0 {
		return def, fmt.Errorf("seconds must be >0")
	}
	return time.Duration(n * float64(time.Second)), nil
}
