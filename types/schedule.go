package types

import "time"

const (
	// DateLayout is the layout of calendar dates (YYYY-MM-DD).
	DateLayout = "2006-01-02"

	// ClockLayout is the layout of slot times (HH:MM, 24h).
	ClockLayout = "15:04"
)

// Schedule is a consultation time slot a doctor offers on a given date.
type Schedule struct {
	ID        string    `json:"id"`
	DoctorID  string    `json:"doctorId"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}

// Availability lists the dates a doctor has marked as available.
type Availability struct {
	DoctorID string   `json:"doctorId"`
	Dates    []string `json:"dates"`
}

// CalendarDay is one cell of a doctor's month calendar.
type CalendarDay struct {
	Date         string `json:"date"`
	CurrentMonth bool   `json:"currentMonth"`
	Available    bool   `json:"available"`
	Slots        int    `json:"slots"`
}
