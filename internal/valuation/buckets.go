package valuation

import "time"

// DefaultMaxPoints bounds the number of buckets in a value series
const DefaultMaxPoints = 400

// BucketDates returns the bucket dates for a requested range: a step is
// chosen so the output never exceeds maxPoints, finer for short ranges and
// coarser for long ones. The requested start and end dates are always
// included.
func BucketDates(start, end time.Time, maxPoints int) []time.Time {
	start = midnightUTC(start)
	end = midnightUTC(end)

	if end.Before(start) {
		end = start
	}
	if maxPoints < 2 {
		maxPoints = DefaultMaxPoints
	}

	days := int(end.Sub(start).Hours() / 24)

	stepDays := 1
	if days >= maxPoints {
		stepDays = days/(maxPoints-1) + 1
	}

	var dates []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, stepDays) {
		dates = append(dates, d)
	}
	return append(dates, end)
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
