package collect

import "time"

// BerlinOffset is the fixed offset added to UTC for the collection
// timestamp: one hour, two while summer time is in effect.
func BerlinOffset(t time.Time) time.Duration {
	if isSummerTime(t.UTC()) {
		return 2 * time.Hour
	}
	return time.Hour
}

// BerlinTimestamp renders t shifted by BerlinOffset, without a zone suffix.
func BerlinTimestamp(t time.Time) string {
	u := t.UTC()
	return u.Add(BerlinOffset(u)).Format(TimestampLayout)
}

// isSummerTime applies the EU rule: summer time runs from 01:00 UTC on the
// last Sunday of March until 01:00 UTC on the last Sunday of October.
func isSummerTime(u time.Time) bool {
	start := lastSunday(u.Year(), time.March).Add(time.Hour)
	end := lastSunday(u.Year(), time.October).Add(time.Hour)
	return !u.Before(start) && u.Before(end)
}

// lastSunday returns midnight UTC on the last Sunday of month.
func lastSunday(year int, month time.Month) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	return last.AddDate(0, 0, -int(last.Weekday()))
}
