package flowrouter

import (
	"regexp"
	"time"

	"github.com/nextlevelbuilder/orchhub/internal/store"
)

func matchesAnyRegex(patterns []string, value string) bool {
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// withinAnyWindow reports whether now falls inside any of windows, each
// evaluated in its own IANA timezone (§4.2 step 3 time-of-day windows).
func withinAnyWindow(windows []store.TimeWindow, now time.Time) bool {
	for _, w := range windows {
		loc, err := time.LoadLocation(w.Timezone)
		if err != nil {
			loc = time.UTC
		}
		local := now.In(loc)
		start, errStart := time.ParseInLocation("15:04", w.StartHHMM, loc)
		end, errEnd := time.ParseInLocation("15:04", w.EndHHMM, loc)
		if errStart != nil || errEnd != nil {
			continue
		}
		nowMinutes := local.Hour()*60 + local.Minute()
		startMinutes := start.Hour()*60 + start.Minute()
		endMinutes := end.Hour()*60 + end.Minute()

		if startMinutes <= endMinutes {
			if nowMinutes >= startMinutes && nowMinutes <= endMinutes {
				return true
			}
		} else {
			// window wraps past midnight
			if nowMinutes >= startMinutes || nowMinutes <= endMinutes {
				return true
			}
		}
	}
	return false
}
