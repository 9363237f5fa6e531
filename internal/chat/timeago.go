package chat

import (
	"fmt"
	"time"
)

// TimeAgo renders a timestamp as a coarse human-readable age such as
// "2 minutes ago" or "yesterday".
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	seconds := time.Since(t).Seconds()
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 120:
		return "1 minute ago"
	case seconds < 3600:
		return fmt.Sprintf("%d minutes ago", int(seconds/60))
	case seconds < 7200:
		return "1 hour ago"
	case seconds < 86400:
		return fmt.Sprintf("%d hours ago", int(seconds/3600))
	case seconds < 172800:
		return "yesterday"
	case seconds < 604800:
		return fmt.Sprintf("%d days ago", int(seconds/86400))
	case seconds < 1209600:
		return "1 week ago"
	case seconds < 2592000:
		return fmt.Sprintf("%d weeks ago", int(seconds/604800))
	case seconds < 5184000:
		return "1 month ago"
	case seconds < 31536000:
		return fmt.Sprintf("%d months ago", int(seconds/2592000))
	case seconds < 63072000:
		return "1 year ago"
	default:
		return fmt.Sprintf("%d years ago", int(seconds/31536000))
	}
}
