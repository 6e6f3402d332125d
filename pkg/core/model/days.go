package model

import (
	"fmt"
	"time"
)

// OpeningDay numbers days of the week the way opening hours are stored: Monday=1 .. Sunday=7
type OpeningDay int

// UnavailabilityDay numbers days of the week the way staff unavailability is stored: Monday=0 .. Sunday=6
type UnavailabilityDay int

const (
	OpeningMonday OpeningDay = iota + 1
	OpeningTuesday
	OpeningWednesday
	OpeningThursday
	OpeningFriday
	OpeningSaturday
	OpeningSunday
)

const (
	UnavailableMonday UnavailabilityDay = iota
	UnavailableTuesday
	UnavailableWednesday
	UnavailableThursday
	UnavailableFriday
	UnavailableSaturday
	UnavailableSunday
)

// Valid reports whether d is within 1..7
func (d OpeningDay) Valid() bool {
	return d >= OpeningMonday && d <= OpeningSunday
}

// Weekday converts to the standard library weekday
func (d OpeningDay) Weekday() time.Weekday {
	return time.Weekday(int(d) % 7)
}

func (d OpeningDay) String() string {
	if !d.Valid() {
		return fmt.Sprintf("OpeningDay(%d)", int(d))
	}
	return d.Weekday().String()
}

// Valid reports whether d is within 0..6
func (d UnavailabilityDay) Valid() bool {
	return d >= UnavailableMonday && d <= UnavailableSunday
}

// Weekday converts to the standard library weekday
func (d UnavailabilityDay) Weekday() time.Weekday {
	return time.Weekday((int(d) + 1) % 7)
}

func (d UnavailabilityDay) String() string {
	if !d.Valid() {
		return fmt.Sprintf("UnavailabilityDay(%d)", int(d))
	}
	return d.Weekday().String()
}

// TimeOfDay is a wall-clock time expressed in seconds since midnight
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hour, minute and second
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// ParseTimeOfDay parses "15:04" or "15:04:05"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimeOfDay(t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q, expected HH:MM", s)
}

// Duration returns the offset from midnight
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Second
}

func (t TimeOfDay) String() string {
	secs := int(t)
	if secs%60 == 0 {
		return fmt.Sprintf("%02d:%02d", secs/3600, (secs/60)%60)
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

// Ptr returns a pointer to a copy of t
func (t TimeOfDay) Ptr() *TimeOfDay {
	return &t
}
