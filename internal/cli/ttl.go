package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var ttlRegex = regexp.MustCompile(`^(\d+)([dhms])$`)

// parseTTL parses a TTL string like "7d", "24h", "30m" into a time.Duration.
func parseTTL(s string) (time.Duration, error) {
	m := ttlRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid ttl %q (use e.g. 7d, 24h, 30m, 60s)", s)
	}
	n, _ := strconv.Atoi(m[1])
	switch m[2] {
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "s":
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("unknown ttl unit %q", m[2])
}
