package eval

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/aa"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/us"

	"github.com/JeremyLWright/uplink/fcl/value"
)

// Business-day calendars. The holiday definitions ship with the binary
// and are part of the consensus surface: every validator evaluates the
// business-day primitives against the same calendar data, in UTC, on the
// date component only.

// calendarID selects a bundled business calendar.
type calendarID int

const (
	calendarUK calendarID = iota
	calendarNYSE
)

var (
	ukCalendar   = newUKCalendar()
	nyseCalendar = newNYSECalendar()
)

// newUKCalendar bundles the England & Wales bank holidays.
func newUKCalendar() *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.AddHoliday(gb.Holidays...)
	return c
}

// newNYSECalendar bundles the NYSE trading holidays: the US federal set
// minus Columbus Day and Veterans Day, plus Good Friday.
func newNYSECalendar() *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.AddHoliday(
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		aa.GoodFriday,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
	return c
}

func businessCalendar(id calendarID) *cal.BusinessCalendar {
	switch id {
	case calendarNYSE:
		return nyseCalendar
	default:
		return ukCalendar
	}
}

// isBusinessDay reports whether the datetime falls on a working day of
// the calendar, judged on the UTC date.
func isBusinessDay(id calendarID, dt value.DateTime) bool {
	t := time.UnixMicro(int64(dt)).UTC()
	return businessCalendar(id).IsWorkday(t)
}

// nextBusinessDay returns the next working day strictly after the given
// datetime, preserving the time of day.
func nextBusinessDay(id calendarID, dt value.DateTime) (value.DateTime, error) {
	c := businessCalendar(id)
	t := time.UnixMicro(int64(dt)).UTC()
	for i := 0; i < 366; i++ {
		t = t.AddDate(0, 0, 1)
		if c.IsWorkday(t) {
			return value.DateTime(t.UnixMicro()), nil
		}
	}
	// A year without a business day means broken calendar data.
	return 0, value.ErrOverflow
}
