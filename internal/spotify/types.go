package spotify

import "fmt"

// Profile is the subset of the Spotify user profile the service stores.
type Profile struct {
	ID          string
	DisplayName string
	ImageURL    string // empty when the user has no picture
}

// TimeRange selects the listening window of the top items endpoints.
type TimeRange string

// Time ranges accepted by Spotify.
const (
	ShortTerm  TimeRange = "short_term"  // about 4 weeks
	MediumTerm TimeRange = "medium_term" // about 6 months
	LongTerm   TimeRange = "long_term"   // about a year
)

// ParseTimeRange validates s. An empty string selects MediumTerm.
func ParseTimeRange(s string) (TimeRange, error) {
	switch r := TimeRange(s); r {
	case "":
		return MediumTerm, nil
	case ShortTerm, MediumTerm, LongTerm:
		return r, nil
	default:
		return "", fmt.Errorf("unknown time range %q", s)
	}
}

// Label returns a human readable name for r.
func (r TimeRange) Label() string {
	switch r {
	case ShortTerm:
		return "Last 4 weeks"
	case LongTerm:
		return "All time"
	default:
		return "Last 6 months"
	}
}
