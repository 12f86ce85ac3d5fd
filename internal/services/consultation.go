package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bayni/apiserver/internal/mq"
	"github.com/bayni/apiserver/internal/store"
	"github.com/bayni/apiserver/types"
)

// ConsultationRepository defines persistence operations for consultations.
type ConsultationRepository interface {
	Append(ctx context.Context, c types.Consultation) (types.Consultation, error)
	List(ctx context.Context, filter store.ConsultationFilter) ([]types.Consultation, error)
	Get(ctx context.Context, id string) (types.Consultation, error)
	Answer(ctx context.Context, id, doctorID, doctorName, answer string) (types.Consultation, error)
	Close(ctx context.Context, id string) (types.Consultation, error)
}

// ConsultationInput is a parent's question.
type ConsultationInput struct {
	Topic   string `json:"topic" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=4000"`
}

// ConsultationService encapsulates consultation use-cases.
type ConsultationService struct {
	log    ConsultationRepository
	users  UserLookup
	events EventPublisher
	logger *slog.Logger
}

// NewConsultationService constructs a ConsultationService. events may be nil.
func NewConsultationService(log ConsultationRepository, users UserLookup, events EventPublisher, logger *slog.Logger) *ConsultationService {
	return &ConsultationService{
		log:    log,
		users:  users,
		events: events,
		logger: loggerOrDefault(logger),
	}
}

// Submit records a new pending consultation from a parent.
func (s *ConsultationService) Submit(ctx context.Context, userID string, in ConsultationInput) (types.Consultation, error) {
	in.Topic = strings.TrimSpace(in.Topic)
	in.Message = strings.TrimSpace(in.Message)
	if err := validateInput(in); err != nil {
		return types.Consultation{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.Consultation{}, err
	}
	if user.IsDoctor() {
		return types.Consultation{}, forbidden("doctors cannot request consultations")
	}

	c, err := s.log.Append(ctx, types.Consultation{
		Topic:    in.Topic,
		Message:  in.Message,
		UserID:   user.ID,
		UserName: user.Username,
	})
	if err != nil {
		return types.Consultation{}, err
	}
	s.publish(ctx, mq.ChannelConsultationCreated, c)
	return c, nil
}

// List returns consultations visible to viewerID: a parent sees their own,
// a doctor sees all of them. status narrows the result when set.
func (s *ConsultationService) List(ctx context.Context, viewerID string, status types.ConsultationStatus) ([]types.Consultation, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", store.ErrInvalidInput, status)
	}
	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	filter := store.ConsultationFilter{Status: status}
	if !viewer.IsDoctor() {
		filter.UserID = viewer.ID
	}
	return s.log.List(ctx, filter)
}

// Answer records a doctor's reply to a pending consultation.
func (s *ConsultationService) Answer(ctx context.Context, doctorID, id, answer string) (types.Consultation, error) {
	doctor, err := s.users.GetByID(ctx, doctorID)
	if err != nil {
		return types.Consultation{}, err
	}
	if !doctor.IsDoctor() {
		return types.Consultation{}, forbidden("only doctors can answer consultations")
	}

	c, err := s.log.Answer(ctx, id, doctor.ID, doctor.Username, answer)
	if err != nil {
		return types.Consultation{}, err
	}
	s.publish(ctx, mq.ChannelConsultationAnswered, c)
	return c, nil
}

// Close ends a consultation. The parent who asked and the doctor who
// answered may close it.
func (s *ConsultationService) Close(ctx context.Context, userID, id string) (types.Consultation, error) {
	c, err := s.log.Get(ctx, id)
	if err != nil {
		return types.Consultation{}, err
	}
	if c.UserID != userID && (c.DoctorID == "" || c.DoctorID != userID) {
		return types.Consultation{}, forbidden("not a participant of this consultation")
	}

	c, err = s.log.Close(ctx, id)
	if err != nil {
		return types.Consultation{}, err
	}
	s.publish(ctx, mq.ChannelConsultationClosed, c)
	return c, nil
}

func (s *ConsultationService) publish(ctx context.Context, channel string, c types.Consultation) {
	publishEvent(ctx, s.logger, s.events, channel, mq.ConsultationEvent{
		ConsultationID: c.ID,
		Topic:          c.Topic,
		UserID:         c.UserID,
		DoctorID:       c.DoctorID,
		Status:         string(c.Status),
		OccurredAt:     time.Now().UTC(),
	})
}
