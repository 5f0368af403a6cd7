package actions

import (
	"context"
	"time"
)

// Clock tells the time and date in a fixed location.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock uses time.Now when now is nil and time.Local when loc is nil.
func NewClock(loc *time.Location, now func() time.Time) *Clock {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{loc: loc, now: now}
}

func (c *Clock) TellTime(ctx context.Context) (string, error) {
	return "The current time is " + c.now().In(c.loc).Format("03:04 PM") + ".", nil
}

func (c *Clock) TellDate(ctx context.Context) (string, error) {
	return "Today is " + c.now().In(c.loc).Format("Monday, January 02, 2006") + ".", nil
}
