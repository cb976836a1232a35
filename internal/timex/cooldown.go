package timex

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
)

const day = 24 * time.Hour

var units = map[string]time.Duration{
	"d": day,
	"h": time.Hour,
	"m": time.Minute,
	"s": time.Second,
}

var (
	cooldownFormat = regexp.MustCompile(`^(\d+[dhms])+$`)
	cooldownPart   = regexp.MustCompile(`(\d+)([dhms])`)
)

// ParseCooldown parses cooldown text such as "1d 2h30m" or "45s".
// "0" is accepted as no cooldown. Any other input that is not a sequence of
// <number><d|h|m|s> groups is rejected with common.ErrConfigInvalid.
func ParseCooldown(s string) (time.Duration, error) {
	in := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if in == "0" {
		return 0, nil
	}
	if !cooldownFormat.MatchString(in) {
		return 0, fmt.Errorf("%w: cooldown %q", common.ErrConfigInvalid, s)
	}

	var total time.Duration
	for _, m := range cooldownPart.FindAllStringSubmatch(in, -1) {
		unit := units[m[2]]
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || n > math.MaxInt64/int64(unit) {
			return 0, fmt.Errorf("%w: cooldown %q out of range", common.ErrConfigInvalid, s)
		}
		part := time.Duration(n) * unit
		if total > math.MaxInt64-part {
			return 0, fmt.Errorf("%w: cooldown %q out of range", common.ErrConfigInvalid, s)
		}
		total += part
	}
	return total, nil
}

// FormatCooldown renders d as "1d 2h 3m 4s", omitting zero units.
// Durations under a second render as "0s".
func FormatCooldown(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	secs := int64(d / time.Second)
	days := secs / 86400
	secs %= 86400
	hours := secs / 3600
	secs %= 3600
	mins := secs / 60
	secs %= 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	if secs > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

// FormatShort renders only the largest unit of d, or "Ready" when d <= 0.
func FormatShort(d time.Duration) string {
	if d <= 0 {
		return "Ready"
	}
	secs := int64(d / time.Second)
	switch {
	case secs >= 86400:
		return fmt.Sprintf("%dd", secs/86400)
	case secs >= 3600:
		return fmt.Sprintf("%dh", secs/3600)
	case secs >= 60:
		return fmt.Sprintf("%dm", secs/60)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
