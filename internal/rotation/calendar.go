package rotation

import (
	"time"

	"github.com/Lunar-Chipter/crystalconf/internal/datefmt"
)

// Periodicity is the rollover period implied by a date format.
type Periodicity int8

const (
	Erroneous Periodicity = iota - 1
	TopOfMillisecond
	TopOfSecond
	TopOfMinute
	TopOfHour
	TopOfDay
	TopOfWeek
	TopOfMonth
)

var periodicityNames = [...]string{
	"millisecond", "second", "minute", "hour", "day", "week", "month",
}

func (p Periodicity) String() string {
	if p >= 0 && int(p) < len(periodicityNames) {
		return periodicityNames[p]
	}
	return "erroneous"
}

const day = 24 * time.Hour

// collisionDistances are the calendar distances a collision-free format must
// tell apart from the epoch: wraps of the second, minute and hour fields,
// half-day clocks, weekdays, days of month, weeks of month and days of year.
var collisionDistances = []time.Duration{
	time.Second,
	time.Minute,
	time.Hour,
	12 * time.Hour,
	day,
	7 * day,
	31 * day,
	34 * day,
	365 * day,
	366 * day,
}

// approxLength is used only to pick which distances apply to a periodicity.
var approxLength = [...]time.Duration{
	time.Millisecond, time.Second, time.Minute, time.Hour, day, 7 * day, 28 * day,
}

// RollingCalendar computes rollover boundaries for a date format.
type RollingCalendar struct {
	format      *datefmt.Format
	utc         *datefmt.Format
	loc         *time.Location
	periodicity Periodicity
}

// NewRollingCalendar analyses format. Boundaries are computed in the format's
// own zone, or the local zone when it has none.
func NewRollingCalendar(format *datefmt.Format) *RollingCalendar {
	loc := format.Location()
	if loc == nil {
		loc = time.Local
	}
	rc := &RollingCalendar{
		format: format,
		utc:    format.In(time.UTC),
		loc:    loc,
	}
	rc.periodicity = rc.computePeriodicity()
	return rc
}

// Periodicity returns the period implied by the format.
func (rc *RollingCalendar) Periodicity() Periodicity {
	return rc.periodicity
}

// computePeriodicity returns the finest period whose end changes the
// formatted epoch.
func (rc *RollingCalendar) computePeriodicity() Periodicity {
	epoch := time.Unix(0, 0).UTC()
	r0 := rc.utc.Format(epoch)
	for p := TopOfMillisecond; p <= TopOfMonth; p++ {
		next := nextPeriod(epoch, p, time.UTC)
		if rc.utc.Format(next) != r0 {
			return p
		}
	}
	return Erroneous
}

// IsCollisionFree reports whether two distinct periods can never format to the
// same string, e.g. "yyyy-MM_HH" collides every 24 hours and "MM-dd" every year.
func (rc *RollingCalendar) IsCollisionFree() bool {
	if rc.periodicity == Erroneous {
		return false
	}
	length := approxLength[rc.periodicity]
	for _, delta := range collisionDistances {
		if delta >= length && rc.collision(delta) {
			return false
		}
	}
	return true
}

func (rc *RollingCalendar) collision(delta time.Duration) bool {
	epoch := time.Unix(0, 0).UTC()
	return rc.utc.Format(epoch) == rc.utc.Format(epoch.Add(delta))
}

// StartOfPeriod returns the start of the period containing t.
func (rc *RollingCalendar) StartOfPeriod(t time.Time) time.Time {
	return startOfPeriod(t, rc.periodicity, rc.loc)
}

// NextPeriod returns the start of the period following the one containing t.
func (rc *RollingCalendar) NextPeriod(t time.Time) time.Time {
	return nextPeriod(t, rc.periodicity, rc.loc)
}

// NthPeriod returns the start of the period n periods away from the one
// containing t; n may be negative.
func (rc *RollingCalendar) NthPeriod(t time.Time, n int) time.Time {
	return addPeriods(rc.StartOfPeriod(t), rc.periodicity, n, rc.loc)
}

// PeriodsBetween counts the period boundaries crossed going from a to b.
func (rc *RollingCalendar) PeriodsBetween(a, b time.Time) int {
	if !b.After(a) {
		return 0
	}
	sa, sb := rc.StartOfPeriod(a), rc.StartOfPeriod(b)
	switch rc.periodicity {
	case TopOfMillisecond:
		return int(sb.Sub(sa) / time.Millisecond)
	case TopOfSecond:
		return int(sb.Sub(sa) / time.Second)
	case TopOfMinute:
		return int(sb.Sub(sa) / time.Minute)
	case TopOfHour:
		return int(sb.Sub(sa) / time.Hour)
	case TopOfDay:
		return daysBetween(sa, sb)
	case TopOfWeek:
		return daysBetween(sa, sb) / 7
	case TopOfMonth:
		ya, ma, _ := sa.Date()
		yb, mb, _ := sb.Date()
		return (yb-ya)*12 + int(mb-ma)
	}
	return 0
}

func daysBetween(a, b time.Time) int {
	// rounding absorbs daylight saving shifts
	return int((b.Sub(a) + 12*time.Hour) / day)
}

func startOfPeriod(t time.Time, p Periodicity, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	switch p {
	case TopOfMillisecond:
		return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e6*1e6, loc)
	case TopOfSecond:
		return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, loc)
	case TopOfMinute:
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
	case TopOfHour:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc)
	case TopOfDay:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case TopOfWeek:
		wd := int(t.Weekday()+6) % 7
		return time.Date(y, m, d-wd, 0, 0, 0, 0, loc)
	case TopOfMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	}
	return t
}

func nextPeriod(t time.Time, p Periodicity, loc *time.Location) time.Time {
	return addPeriods(startOfPeriod(t, p, loc), p, 1, loc)
}

func addPeriods(start time.Time, p Periodicity, n int, loc *time.Location) time.Time {
	y, m, d := start.Date()
	switch p {
	case TopOfMillisecond:
		return start.Add(time.Duration(n) * time.Millisecond)
	case TopOfSecond:
		return start.Add(time.Duration(n) * time.Second)
	case TopOfMinute:
		return start.Add(time.Duration(n) * time.Minute)
	case TopOfHour:
		return time.Date(y, m, d, start.Hour()+n, 0, 0, 0, loc)
	case TopOfDay:
		return time.Date(y, m, d+n, 0, 0, 0, 0, loc)
	case TopOfWeek:
		return time.Date(y, m, d+7*n, 0, 0, 0, 0, loc)
	case TopOfMonth:
		return time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, loc)
	}
	return start
}
