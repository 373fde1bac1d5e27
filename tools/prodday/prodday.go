package prodday

import (
	"fmt"
	"time"
)

// CutoverHour is the local hour at which one production day rolls into the
// next. Field volumes are bucketed 6am-to-6am, not midnight-to-midnight.
const CutoverHour = 6

// Offset returns the fixed-region UTC offset for the given instant:
// UTC-5 from the second Sunday of March through the first Sunday of
// November, UTC-6 otherwise.
func Offset(t time.Time) time.Duration {
	u := t.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	dstStart := nthSunday(u.Year(), time.March, 2)
	dstEnd := nthSunday(u.Year(), time.November, 1)
	if !day.Before(dstStart) && day.Before(dstEnd) {
		return -5 * time.Hour
	}
	return -6 * time.Hour
}

// Local converts a UTC instant to regional wall-clock time.
func Local(t time.Time) time.Time {
	return t.UTC().Add(Offset(t))
}

// ProductionDate returns the production day a pull belongs to, as
// "2006-01-02". A pull before 6am local counts toward the previous day.
func ProductionDate(t time.Time) string {
	local := Local(t)
	if local.Hour() < CutoverHour {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format("2006-01-02")
}

// PreviousDate returns the production date immediately before the given
// "2006-01-02" date string.
func PreviousDate(date string) (string, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", fmt.Errorf("invalid production date %q: %w", date, err)
	}
	return d.AddDate(0, 0, -1).Format("2006-01-02"), nil
}

// WindowEnd returns the next 6am local boundary at or after t, expressed
// back in UTC. Every pull's WindowEnd maps to exactly one ProductionDate.
func WindowEnd(t time.Time) time.Time {
	local := Local(t)
	boundary := time.Date(local.Year(), local.Month(), local.Day(), CutoverHour, 0, 0, 0, time.UTC)
	if local.Hour() >= CutoverHour {
		boundary = boundary.AddDate(0, 0, 1)
	}
	return boundary.Add(-Offset(t))
}

// PreviousWindowEnd returns the 6am boundary immediately before the given
// boundary. Spacing is not always 24h across DST transitions, so this walks
// back far enough and recomputes rather than subtracting a day.
func PreviousWindowEnd(boundary time.Time) time.Time {
	return WindowEnd(boundary.Add(-26 * time.Hour))
}

// FormatDuration renders a duration the way the dashboard shows
// time-till-pull, e.g. "2d 4h 30m". Negative and sub-minute durations
// render as "0m".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return "0m"
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

func nthSunday(year int, month time.Month, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, 7*(n-1))
}
