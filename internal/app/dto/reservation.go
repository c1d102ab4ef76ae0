package dto

import (
	"fmt"
	"time"

	domainhistory "tablebook/internal/domain/history"
	domainreservation "tablebook/internal/domain/reservation"
	domainvenue "tablebook/internal/domain/venue"
)

type ReservationView struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	VenueID    string    `json:"venue_id"`
	When       time.Time `json:"when"`
	Guests     int       `json:"guests"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ReservationCollection struct {
	Items []ReservationView `json:"items"`
}

type HistoryEntry struct {
	ID            string    `json:"id"`
	ReservationID string    `json:"reservation_id"`
	CustomerID    string    `json:"customer_id"`
	VenueID       string    `json:"venue_id"`
	When          time.Time `json:"when"`
	Guests        int       `json:"guests"`
	Status        string    `json:"status"`
	RecordedAt    time.Time `json:"recorded_at"`
}

type HistoryCollection struct {
	Items []HistoryEntry `json:"items"`
}

type BusinessWindowView struct {
	Weekday string `json:"weekday"`
	Open    string `json:"open"`
	Close   string `json:"close"`
}

type VenueView struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Capacity int                  `json:"capacity"`
	Windows  []BusinessWindowView `json:"windows"`
}

type VenueCollection struct {
	Items []VenueView `json:"items"`
}

func MapReservation(r *domainreservation.Reservation) ReservationView {
	return ReservationView{
		ID:         string(r.ID),
		CustomerID: string(r.CustomerID),
		VenueID:    string(r.VenueID),
		When:       r.When,
		Guests:     r.Guests,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func MapHistory(recs []domainhistory.Record) HistoryCollection {
	items := make([]HistoryEntry, 0, len(recs))
	for _, rec := range recs {
		items = append(items, HistoryEntry{
			ID:            rec.ID,
			ReservationID: string(rec.ReservationID),
			CustomerID:    string(rec.CustomerID),
			VenueID:       string(rec.VenueID),
			When:          rec.When,
			Guests:        rec.Guests,
			Status:        string(rec.Status),
			RecordedAt:    rec.RecordedAt,
		})
	}
	return HistoryCollection{Items: items}
}

func MapVenue(v *domainvenue.Venue) VenueView {
	windows := make([]BusinessWindowView, 0, len(v.Windows))
	for _, w := range v.Windows {
		windows = append(windows, BusinessWindowView{
			Weekday: w.Weekday.String(),
			Open:    clockString(w.Open),
			Close:   clockString(w.Close),
		})
	}
	return VenueView{
		ID:       string(v.ID),
		Name:     v.Name,
		Capacity: v.Capacity,
		Windows:  windows,
	}
}

func clockString(c domainvenue.ClockTime) string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}
