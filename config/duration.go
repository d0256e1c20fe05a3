// config/duration.go
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var errNonPositive = errors.New("duration must be >0")

// parseDurationFlexible accepts strings like "90s"/"2m", numeric seconds
// (as numbers or plain digit strings), or time.Duration.
// Returns def on empty/unknown types; returns def + error on invalid or
// non-positive values.
func parseDurationFlexible(raw any, def time.Duration) (time.Duration, error) {
	var d time.Duration
	switch t := raw.(type) {
	case time.Duration:
		d = t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def, nil
		}
		if pd, err := time.ParseDuration(s); err == nil {
			d = pd
		} else if n, err := strconv.ParseFloat(s, 64); err == nil {
			d = secs(n)
		} else {
			return def, fmt.Errorf("cannot parse duration %q", s)
		}
	case int:
		d = secs(float64(t))
	case int32:
		d = secs(float64(t))
	case int64:
		d = secs(float64(t))
	case float64:
		d = secs(t)
	default:
		// nil, bool, etc.
		return def, nil
	}

	if d <= 0 {
		return def, errNonPositive
	}
	return d, nil
}

func secs(n float64) time.Duration {
	return time.Duration(n * float64(time.Second))
}
