package services

import (
	"context"
	"testing"

	"github.com/bayni/apiserver/internal/store"
	"github.com/bayni/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserServiceRegisterStartsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewUserService(f.users, nil)

	user, err := svc.Register(ctx, RegisterInput{
		Username: " sara ",
		Password: "x",
		Type:     types.UserTypeNormal,
		Children: []types.Child{{Age: "4", Gender: types.GenderGirl}},
	})
	require.NoError(t, err)
	assert.Equal(t, "sara", user.Username)

	session, err := svc.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.ID)

	found, err := svc.GetByUsername(ctx, "sara")
	require.NoError(t, err)
	assert.Equal(t, types.UserTypeNormal, found.Type)
}

func TestUserServiceRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newFixture(t).users, nil)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing username", RegisterInput{Password: "x"}},
		{"missing password", RegisterInput{Username: "sara"}},
		{"unknown type", RegisterInput{Username: "sara", Password: "x", Type: "admin"}},
		{"bad email", RegisterInput{Username: "dr", Password: "x", Type: types.UserTypeDoctor, Email: "nope"}},
		{"bad child gender", RegisterInput{Username: "sara", Password: "x", Children: []types.Child{{Age: "3", Gender: "cat"}}}},
		{"missing child age", RegisterInput{Username: "sara", Password: "x", Children: []types.Child{{Gender: types.GenderBoy}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, store.ErrInvalidInput)
		})
	}
}

func TestUserServiceLoginLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewUserService(f.users, nil)
	sara := f.register(t, "sara", types.UserTypeNormal)

	_, err := svc.Login(ctx, "sara", "wrong")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)

	user, err := svc.Login(ctx, "sara", "pw")
	require.NoError(t, err)
	assert.Equal(t, sara.ID, user.ID)

	require.NoError(t, svc.Logout(ctx))
	_, err = svc.Session(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.GetByID(ctx, sara.ID)
	assert.NoError(t, err)
}

func TestUserServiceUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewUserService(f.users, nil)
	doc := f.register(t, "dr.ali", types.UserTypeDoctor)

	updated, err := svc.UpdateProfile(ctx, doc.ID, ProfileInput{
		Username:   "dr.ali",
		Email:      "ali@example.com",
		University: "Tehran",
		Field:      "Neonatology",
	})
	require.NoError(t, err)
	assert.Equal(t, "Neonatology", updated.Field)
	assert.Empty(t, updated.Avatar)
	assert.Equal(t, types.UserTypeDoctor, updated.Type)

	_, err = svc.UpdateProfile(ctx, doc.ID, ProfileInput{})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = svc.UpdateProfile(ctx, "missing", ProfileInput{Username: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUserServiceChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewUserService(f.users, nil)
	sara := f.register(t, "sara", types.UserTypeNormal)

	err := svc.ChangePassword(ctx, sara.ID, PasswordInput{Current: "wrong", New: "next"})
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, sara.ID, PasswordInput{Current: "pw", New: "next"}))
	_, err = svc.Login(ctx, "sara", "next")
	assert.NoError(t, err)
}

func TestUserServiceDeleteAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewUserService(f.users, nil)
	sara := f.register(t, "sara", types.UserTypeNormal)
	_, err := svc.Login(ctx, "sara", "pw")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, sara.ID))

	_, err = svc.GetByUsername(ctx, "sara")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Session(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteAccount(ctx, sara.ID), store.ErrNotFound)
}

func TestUserServiceListDoctors(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.users, nil)
	f.register(t, "sara", types.UserTypeNormal)
	doc := f.register(t, "dr.ali", types.UserTypeDoctor)

	doctors, err := svc.ListDoctors(context.Background())
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, doc.ID, doctors[0].ID)
}
