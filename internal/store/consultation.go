package store

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/bayni/apiserver/internal/ids"
	"github.com/bayni/apiserver/internal/kv"
	"github.com/bayni/apiserver/types"
)

// ConsultationFilter narrows ConsultationLog.List. Zero fields match everything.
type ConsultationFilter struct {
	UserID   string
	DoctorID string
	Status   types.ConsultationStatus
}

func (f ConsultationFilter) match(c types.Consultation) bool {
	if f.UserID != "" && c.UserID != f.UserID {
		return false
	}
	if f.DoctorID != "" && c.DoctorID != f.DoctorID {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	return true
}

// ConsultationLog handles persistence for consultation requests, most
// recent first.
type ConsultationLog struct {
	consultations *collection[types.Consultation]
}

func NewConsultationLog(store kv.Store) *ConsultationLog {
	return &ConsultationLog{consultations: newCollection[types.Consultation](store, keyConsultations)}
}

// Append stores a new pending consultation at the front of the log.
func (l *ConsultationLog) Append(ctx context.Context, c types.Consultation) (types.Consultation, error) {
	now := time.Now().UTC()
	c.ID = ids.NewFromTime(now)
	c.CreatedAt = now
	c.Status = types.ConsultationPending
	c.DoctorID = ""
	c.DoctorName = ""
	c.Answer = ""
	c.AnsweredAt = nil
	c.ClosedAt = nil

	err := l.consultations.update(ctx, func(items []types.Consultation) ([]types.Consultation, error) {
		return slices.Insert(items, 0, c), nil
	})
	if err != nil {
		return types.Consultation{}, err
	}
	return c, nil
}

// List returns the consultations matching filter, most recent first.
func (l *ConsultationLog) List(ctx context.Context, filter ConsultationFilter) ([]types.Consultation, error) {
	items, err := l.consultations.load(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(items, func(c types.Consultation) bool {
		return !filter.match(c)
	}), nil
}

func (l *ConsultationLog) Get(ctx context.Context, id string) (types.Consultation, error) {
	items, err := l.consultations.load(ctx)
	if err != nil {
		return types.Consultation{}, err
	}
	i := indexConsultation(items, id)
	if i < 0 {
		return types.Consultation{}, ErrNotFound
	}
	return items[i], nil
}

// Answer records a doctor's reply and moves a pending consultation to answered.
func (l *ConsultationLog) Answer(ctx context.Context, id, doctorID, doctorName, answer string) (types.Consultation, error) {
	answer = strings.TrimSpace(answer)
	if doctorID == "" || answer == "" {
		return types.Consultation{}, invalidInput("doctor and answer are required")
	}
	return l.transition(ctx, id, func(c *types.Consultation, now time.Time) error {
		if c.Status != types.ConsultationPending {
			return ErrInvalidTransition
		}
		c.Status = types.ConsultationAnswered
		c.DoctorID = doctorID
		c.DoctorName = doctorName
		c.Answer = answer
		c.AnsweredAt = &now
		return nil
	})
}

// Close moves a pending or answered consultation to closed.
func (l *ConsultationLog) Close(ctx context.Context, id string) (types.Consultation, error) {
	return l.transition(ctx, id, func(c *types.Consultation, now time.Time) error {
		if c.Status == types.ConsultationClosed {
			return ErrInvalidTransition
		}
		c.Status = types.ConsultationClosed
		c.ClosedAt = &now
		return nil
	})
}

func (l *ConsultationLog) transition(ctx context.Context, id string, apply func(*types.Consultation, time.Time) error) (types.Consultation, error) {
	var result types.Consultation
	err := l.consultations.update(ctx, func(items []types.Consultation) ([]types.Consultation, error) {
		i := indexConsultation(items, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		if err := apply(&items[i], time.Now().UTC()); err != nil {
			return nil, err
		}
		result = items[i]
		return items, nil
	})
	if err != nil {
		return types.Consultation{}, err
	}
	return result, nil
}

func indexConsultation(items []types.Consultation, id string) int {
	return slices.IndexFunc(items, func(c types.Consultation) bool { return c.ID == id })
}
