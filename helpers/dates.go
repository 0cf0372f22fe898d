package helpers

import (
	"time"

	"github.com/joeyave/scala-roster/entity"
)

func GetStartOfDayInLoc(loc *time.Location) time.Time {
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
}

// Today returns the current service date in loc.
func Today(loc *time.Location) string {
	return GetStartOfDayInLoc(loc).Format(entity.ServiceDateLayout)
}

// ParseServiceDate accepts a calendar date and returns it in canonical form.
func ParseServiceDate(s string) (string, error) {
	t, err := time.Parse(entity.ServiceDateLayout, s)
	if err != nil {
		return "", err
	}
	return t.Format(entity.ServiceDateLayout), nil
}
