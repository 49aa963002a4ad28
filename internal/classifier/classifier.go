package classifier

import (
	"regexp"
	"strconv"
	"strings"
)

// Classification holds the pattern flags detected in a query
type Classification struct {
	IsEmail         bool
	IsPhone         bool
	IsURL           bool
	DurationMinutes *float64 // nil when the query is not a duration
	HasDateTimeHint bool
}

// HasDuration reports whether a duration was parsed
func (c Classification) HasDuration() bool {
	return c.DurationMinutes != nil
}

var (
	emailPattern    = regexp.MustCompile(`^\S+@\S+$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9\- /.]{4,18}$`)
	urlPattern      = regexp.MustCompile(`(?i)^(https?://)?(www\.)?[-a-z0-9@:%._+~#=]{2,256}\.[a-z]{2,63}(\b([-a-z0-9@:%_+.~#?&/=]*))?$`)
	durationPattern = regexp.MustCompile(`(?i)^([0-9]+)\s?(s|sec|secs|second|seconds|m|min|mins|minute|minutes|h|hr|hour|hours|d|day|days)$`)
	digitPattern    = regexp.MustCompile(`[0-9]`)
	dayWordPattern  = regexp.MustCompile(`(?i)\b(today|tomorrow|next|monday|tuesday|wednesday|thursday|friday|saturday|sunday|am|pm)\b`)
	schemePattern   = regexp.MustCompile(`(?i)^https?://`)
)

// Normalize trims and lower-cases a raw query
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Classify detects email, phone, URL and duration shapes in the query.
// Inputs that match nothing produce a zero Classification.
func Classify(query string) Classification {
	q := strings.TrimSpace(query)
	duration := ParseDurationMinutes(q)

	return Classification{
		IsEmail:         emailPattern.MatchString(q),
		IsPhone:         phonePattern.MatchString(q),
		IsURL:           LooksLikeURL(q),
		DurationMinutes: duration,
		HasDateTimeHint: duration != nil || digitPattern.MatchString(q) || dayWordPattern.MatchString(q),
	}
}

// LooksLikeURL reports whether input has the shape of a web address
func LooksLikeURL(input string) bool {
	return urlPattern.MatchString(strings.TrimSpace(input))
}

// ToURL prefixes https:// unless input already carries an http(s) scheme
func ToURL(input string) string {
	value := strings.TrimSpace(input)
	if schemePattern.MatchString(value) {
		return value
	}
	return "https://" + value
}

// ParseDurationMinutes converts "<n><space?><unit>" into minutes.
// It returns nil when the input is not a duration.
func ParseDurationMinutes(input string) *float64 {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return nil
	}

	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}

	var minutes float64
	switch strings.ToLower(m[2]) {
	case "s", "sec", "secs", "second", "seconds":
		minutes = amount / 60
	case "m", "min", "mins", "minute", "minutes":
		minutes = amount
	case "h", "hr", "hour", "hours":
		minutes = amount * 60
	case "d", "day", "days":
		minutes = amount * 24 * 60
	default:
		return nil
	}
	return &minutes
}
