package services

import (
	"context"
	"testing"

	"github.com/bayni/apiserver/internal/mq"
	"github.com/bayni/apiserver/internal/store"
	"github.com/bayni/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestConsultationLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	events := new(MockEventPublisher)
	for _, channel := range mq.ConsultationChannels {
		events.On("PublishJSON", mock.Anything, channel, mock.AnythingOfType("mq.ConsultationEvent")).
			Return("msg", nil).Once()
	}
	svc := NewConsultationService(f.consultations, f.users, events, nil)
	sara := f.register(t, "sara", types.UserTypeNormal)
	doc := f.register(t, "dr.ali", types.UserTypeDoctor)

	c, err := svc.Submit(ctx, sara.ID, ConsultationInput{Topic: "Sleep", Message: "Wakes up at night"})
	require.NoError(t, err)
	assert.Equal(t, types.ConsultationPending, c.Status)
	assert.Equal(t, "sara", c.UserName)

	answered, err := svc.Answer(ctx, doc.ID, c.ID, "Keep a routine.")
	require.NoError(t, err)
	assert.Equal(t, types.ConsultationAnswered, answered.Status)
	assert.Equal(t, "dr.ali", answered.DoctorName)

	closed, err := svc.Close(ctx, doc.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ConsultationClosed, closed.Status)

	events.AssertExpectations(t)
}

func TestConsultationSubmitRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewConsultationService(f.consultations, f.users, nil, nil)
	doc := f.register(t, "dr.ali", types.UserTypeDoctor)
	sara := f.register(t, "sara", types.UserTypeNormal)

	_, err := svc.Submit(ctx, doc.ID, ConsultationInput{Topic: "t", Message: "m"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Submit(ctx, sara.ID, ConsultationInput{Topic: "  ", Message: "m"})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = svc.Submit(ctx, "missing", ConsultationInput{Topic: "t", Message: "m"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConsultationListVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewConsultationService(f.consultations, f.users, nil, nil)
	sara := f.register(t, "sara", types.UserTypeNormal)
	mina := f.register(t, "mina", types.UserTypeNormal)
	doc := f.register(t, "dr.ali", types.UserTypeDoctor)

	mine, err := svc.Submit(ctx, sara.ID, ConsultationInput{Topic: "a", Message: "m"})
	require.NoError(t, err)
	theirs, err := svc.Submit(ctx, mina.ID, ConsultationInput{Topic: "b", Message: "m"})
	require.NoError(t, err)
	_, err = svc.Answer(ctx, doc.ID, theirs.ID, "ok")
	require.NoError(t, err)

	forSara, err := svc.List(ctx, sara.ID, "")
	require.NoError(t, err)
	require.Len(t, forSara, 1)
	assert.Equal(t, mine.ID, forSara[0].ID)

	forDoctor, err := svc.List(ctx, doc.ID, "")
	require.NoError(t, err)
	require.Len(t, forDoctor, 2)
	assert.Equal(t, theirs.ID, forDoctor[0].ID)

	pending, err := svc.List(ctx, doc.ID, types.ConsultationPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mine.ID, pending[0].ID)

	_, err = svc.List(ctx, doc.ID, "archived")
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestConsultationPermissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewConsultationService(f.consultations, f.users, nil, nil)
	sara := f.register(t, "sara", types.UserTypeNormal)
	mina := f.register(t, "mina", types.UserTypeNormal)
	doc := f.register(t, "dr.ali", types.UserTypeDoctor)
	other := f.register(t, "dr.sam", types.UserTypeDoctor)

	c, err := svc.Submit(ctx, sara.ID, ConsultationInput{Topic: "a", Message: "m"})
	require.NoError(t, err)

	_, err = svc.Answer(ctx, mina.ID, c.ID, "ok")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Close(ctx, doc.ID, c.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Answer(ctx, doc.ID, c.ID, "ok")
	require.NoError(t, err)

	_, err = svc.Close(ctx, other.ID, c.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Close(ctx, mina.ID, c.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	closed, err := svc.Close(ctx, sara.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ConsultationClosed, closed.Status)

	_, err = svc.Close(ctx, sara.ID, c.ID)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}
