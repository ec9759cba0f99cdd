package domain

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	isoduration "github.com/sosodev/duration"
)

// FormatDuration renders d as an ISO-8601 duration such as PT8H30M.
// Hours are never folded into days, zero renders as PT0S, and negative values carry one leading minus.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}
	if d < 0 {
		return "-" + FormatDuration(-d)
	}

	var b strings.Builder
	b.WriteString("PT")
	hours := d / time.Hour
	minutes := (d % time.Hour) / time.Minute
	rest := d % time.Minute
	if hours > 0 {
		fmt.Fprintf(&b, "%dH", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dM", minutes)
	}
	if rest > 0 {
		seconds := rest / time.Second
		nanos := rest % time.Second
		if nanos == 0 {
			fmt.Fprintf(&b, "%dS", seconds)
		} else {
			frac := strings.TrimRight(fmt.Sprintf("%09d", nanos), "0")
			fmt.Fprintf(&b, "%d.%sS", seconds, frac)
		}
	}
	return b.String()
}

// isoDurationPattern accepts [-]PnDTnHnMn.nS with at most nanosecond precision.
var isoDurationPattern = regexp.MustCompile(`^-?P(?:\d+D)?(?:T(?:\d+H)?(?:\d+M)?(?:\d+(?:\.\d{1,9})?S)?)?$`)

// maxDurationSeconds is the largest number of whole seconds a time.Duration holds.
const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// ParseDuration parses an ISO-8601 duration of the form [-]PnDTnHnMn.nS.
// Days count as 24 hours; years, months, and weeks are rejected, as are values beyond the time.Duration range.
func ParseDuration(raw string) (time.Duration, error) {
	s := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(raw)), ",", ".")
	if !isoDurationPattern.MatchString(s) || strings.HasSuffix(s, "P") || strings.HasSuffix(s, "T") {
		return 0, invalidDuration(raw)
	}
	parsed, err := isoduration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", invalidDuration(raw), err)
	}
	seconds := parsed.Days*24*60*60 + parsed.Hours*60*60 + parsed.Minutes*60 + parsed.Seconds
	if seconds >= float64(maxDurationSeconds) {
		return 0, invalidDuration(raw)
	}
	return parsed.ToTimeDuration(), nil
}

func invalidDuration(raw string) error {
	return fmt.Errorf("%w %q", ErrInvalidDuration, raw)
}
