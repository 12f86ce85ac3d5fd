package services

import (
	"context"
	"fmt"
	"time"

	"github.com/bayni/apiserver/internal/store"
	"github.com/bayni/apiserver/types"
)

// ScheduleRepository defines persistence operations for doctor calendars.
type ScheduleRepository interface {
	ToggleDate(ctx context.Context, doctorID, date string) (bool, error)
	AvailableDates(ctx context.Context, doctorID string) ([]string, error)
	AddSlot(ctx context.Context, slot types.Schedule) (types.Schedule, error)
	Slots(ctx context.Context, doctorID, date string) ([]types.Schedule, error)
	RemoveSlot(ctx context.Context, doctorID, slotID string) error
}

// SlotInput describes a new consultation slot.
type SlotInput struct {
	Date      string  `json:"date" validate:"required"`
	StartTime string  `json:"startTime" validate:"required"`
	EndTime   string  `json:"endTime" validate:"required"`
	Price     float64 `json:"price" validate:"gte=0"`
}

// ScheduleService encapsulates doctor calendar use-cases.
type ScheduleService struct {
	book  ScheduleRepository
	users UserLookup
}

func NewScheduleService(book ScheduleRepository, users UserLookup) *ScheduleService {
	return &ScheduleService{book: book, users: users}
}

// ToggleDate flips the availability of date for the doctor.
func (s *ScheduleService) ToggleDate(ctx context.Context, doctorID, date string) (bool, error) {
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return false, err
	}
	return s.book.ToggleDate(ctx, doctorID, date)
}

// AddSlot stores a new slot for the doctor.
func (s *ScheduleService) AddSlot(ctx context.Context, doctorID string, in SlotInput) (types.Schedule, error) {
	if err := validateInput(in); err != nil {
		return types.Schedule{}, err
	}
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return types.Schedule{}, err
	}
	return s.book.AddSlot(ctx, types.Schedule{
		DoctorID:  doctorID,
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Price:     in.Price,
	})
}

// RemoveSlot deletes one of the doctor's slots.
func (s *ScheduleService) RemoveSlot(ctx context.Context, doctorID, slotID string) error {
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return err
	}
	return s.book.RemoveSlot(ctx, doctorID, slotID)
}

// Slots lists a doctor's slots on date, or all slots for an empty date.
func (s *ScheduleService) Slots(ctx context.Context, doctorID, date string) ([]types.Schedule, error) {
	if err := s.lookupDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.book.Slots(ctx, doctorID, date)
}

// Calendar returns the month grid for month (YYYY-MM) annotated with the
// doctor's available dates and slot counts.
func (s *ScheduleService) Calendar(ctx context.Context, doctorID, month string) ([]types.CalendarDay, error) {
	m, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, fmt.Errorf("%w: month must be YYYY-MM", store.ErrInvalidInput)
	}
	if err := s.lookupDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	dates, err := s.book.AvailableDates(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	available := make(map[string]bool, len(dates))
	for _, d := range dates {
		available[d] = true
	}

	slots, err := s.book.Slots(ctx, doctorID, "")
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, slot := range slots {
		counts[slot.Date]++
	}

	days := MonthGrid(m.Year(), m.Month())
	for i := range days {
		days[i].Available = available[days[i].Date]
		days[i].Slots = counts[days[i].Date]
	}
	return days, nil
}

// requireDoctor fails with ErrForbidden when the acting user is not a doctor.
func (s *ScheduleService) requireDoctor(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsDoctor() {
		return forbidden("only doctors manage a schedule")
	}
	return nil
}

// lookupDoctor fails with store.ErrNotFound unless doctorID is a doctor.
func (s *ScheduleService) lookupDoctor(ctx context.Context, doctorID string) error {
	user, err := s.users.GetByID(ctx, doctorID)
	if err != nil {
		return err
	}
	if !user.IsDoctor() {
		return store.ErrNotFound
	}
	return nil
}
