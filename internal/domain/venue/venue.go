package venue

import (
	"context"
	"errors"
	"time"
)

var (
	ErrVenueNotFound   = errors.New("venue: not found")
	ErrInvalidCapacity = errors.New("venue: capacity must be positive")
	ErrInvalidWindow   = errors.New("venue: close time must be after open time")
)

type VenueID string

// ClockTime is a wall-clock minute within a day. Close boundaries may use
// 24:00 so a window can run to midnight; overnight hours are declared as two
// windows (Sat 18:00-24:00 plus Sun 00:00-04:00).
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) MinuteOfDay() int {
	return c.Hour*60 + c.Minute
}

// BusinessWindow declares when a venue seats guests on a given weekday.
// Both boundaries are inclusive.
type BusinessWindow struct {
	Weekday time.Weekday
	Open    ClockTime
	Close   ClockTime
}

// Contains reports whether t falls inside the window. The comparison is
// wall-clock only: the date part of t contributes nothing beyond its weekday,
// so venue-local hours apply regardless of how far ahead the booking is.
func (w BusinessWindow) Contains(t time.Time) bool {
	if t.Weekday() != w.Weekday {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	return minute >= w.Open.MinuteOfDay() && minute <= w.Close.MinuteOfDay()
}

// Venue is the bookable establishment. The booking engine treats it as
// read-only reference data: capacity and hours are managed elsewhere.
type Venue struct {
	ID       VenueID
	Name     string
	Capacity int
	Windows  []BusinessWindow
}

// Repository provides read access to venues.
type Repository interface {
	ByID(ctx context.Context, id VenueID) (*Venue, error)
	List(ctx context.Context) ([]*Venue, error)
	Save(ctx context.Context, v *Venue) error
}

type CreateParams struct {
	ID       VenueID
	Name     string
	Capacity int
	Windows  []BusinessWindow
}

func NewVenue(params CreateParams) (*Venue, error) {
	if params.Capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	for _, w := range params.Windows {
		if w.Close.MinuteOfDay() <= w.Open.MinuteOfDay() {
			return nil, ErrInvalidWindow
		}
	}
	return &Venue{
		ID:       params.ID,
		Name:     params.Name,
		Capacity: params.Capacity,
		Windows:  append([]BusinessWindow(nil), params.Windows...),
	}, nil
}

// OpenAt reports whether any declared window covers t.
func (v *Venue) OpenAt(t time.Time) bool {
	for _, w := range v.Windows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}
