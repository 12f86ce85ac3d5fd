package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bayni/apiserver/internal/ids"
	"github.com/bayni/apiserver/internal/kv"
	"github.com/bayni/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// userEntry is the persisted form of a user. The password hash never leaves
// this package.
type userEntry struct {
	types.User
	PasswordHash string `json:"passwordHash,omitempty"`

	// Password is the plaintext field written by old app versions. It is
	// only read by MigrateLegacy, which replaces it with a hash.
	Password string `json:"password,omitempty"`
}

type sessionPointer struct {
	UserID    string    `json:"userId"`
	StartedAt time.Time `json:"startedAt"`
}

// UserOption configures a UserDirectory.
type UserOption func(*UserDirectory)

// WithPasswordCost sets the bcrypt cost used for new password hashes.
func WithPasswordCost(cost int) UserOption {
	return func(d *UserDirectory) {
		d.hashCost = cost
	}
}

// UserDirectory handles persistence for users and the device session pointer.
type UserDirectory struct {
	kv       kv.Store
	users    *collection[userEntry]
	session  chan struct{}
	hashCost int

	// dummyHash is compared against when the username is unknown so that
	// both failure paths of Authenticate cost the same.
	dummyHash []byte
}

func NewUserDirectory(store kv.Store, opts ...UserOption) *UserDirectory {
	d := &UserDirectory{
		kv:       store,
		users:    newCollection[userEntry](store, keyUsers),
		session:  make(chan struct{}, 1),
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("bayni-unknown-user"), d.hashCost)
	return d
}

// Register stores a new user with a hashed password and returns it with
// ID and timestamps assigned.
func (d *UserDirectory) Register(ctx context.Context, user types.User, password string) (types.User, error) {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" || password == "" {
		return types.User{}, invalidInput("username and password are required")
	}
	if user.Type == "" {
		user.Type = types.UserTypeNormal
	}
	if !user.Type.Valid() {
		return types.User{}, invalidInput("unknown user type")
	}

	hash, err := d.hashPassword(password)
	if err != nil {
		return types.User{}, err
	}

	now := time.Now().UTC()
	user.ID = ids.NewFromTime(now)
	user.CreatedAt = now
	user.UpdatedAt = now
	user = normalizeProfile(user)

	err = d.users.update(ctx, func(entries []userEntry) ([]userEntry, error) {
		if indexByUsername(entries, user.Username) >= 0 {
			return nil, ErrDuplicateUsername
		}
		return append(entries, userEntry{User: user, PasswordHash: hash}), nil
	})
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

// FindByUsername returns the user with this username. Surrounding
// whitespace is ignored, as it is on Register.
func (d *UserDirectory) FindByUsername(ctx context.Context, username string) (types.User, error) {
	entries, err := d.users.load(ctx)
	if err != nil {
		return types.User{}, err
	}
	i := indexByUsername(entries, strings.TrimSpace(username))
	if i < 0 {
		return types.User{}, ErrNotFound
	}
	return entries[i].User, nil
}

func (d *UserDirectory) GetByID(ctx context.Context, id string) (types.User, error) {
	entries, err := d.users.load(ctx)
	if err != nil {
		return types.User{}, err
	}
	i := indexByID(entries, id)
	if i < 0 {
		return types.User{}, ErrNotFound
	}
	return entries[i].User, nil
}

// List returns all users in registration order, optionally only those of
// the given type.
func (d *UserDirectory) List(ctx context.Context, userType types.UserType) ([]types.User, error) {
	entries, err := d.users.load(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]types.User, 0, len(entries))
	for _, e := range entries {
		if userType != "" && e.Type != userType {
			continue
		}
		users = append(users, e.User)
	}
	return users, nil
}

// Authenticate checks a username/password pair. Unknown usernames and wrong
// passwords both yield ErrInvalidCredentials.
func (d *UserDirectory) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	entries, err := d.users.load(ctx)
	if err != nil {
		return types.User{}, err
	}
	i := indexByUsername(entries, strings.TrimSpace(username))
	if i < 0 || entries[i].PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(d.dummyHash, []byte(password))
		return types.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(entries[i].PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return entries[i].User, nil
}

// Update replaces a user's profile. The record is matched by ID, or by
// username when ID is empty. ID, type, creation time and password are kept.
func (d *UserDirectory) Update(ctx context.Context, user types.User) (types.User, error) {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return types.User{}, invalidInput("username is required")
	}

	var updated types.User
	err := d.users.update(ctx, func(entries []userEntry) ([]userEntry, error) {
		var i int
		if user.ID != "" {
			i = indexByID(entries, user.ID)
		} else {
			i = indexByUsername(entries, user.Username)
		}
		if i < 0 {
			return nil, ErrNotFound
		}
		if j := indexByUsername(entries, user.Username); j >= 0 && j != i {
			return nil, ErrDuplicateUsername
		}

		current := entries[i].User
		user.ID = current.ID
		user.Type = current.Type
		user.CreatedAt = current.CreatedAt
		user.UpdatedAt = time.Now().UTC()
		updated = normalizeProfile(user)
		entries[i].User = updated
		return entries, nil
	})
	if err != nil {
		return types.User{}, err
	}
	return updated, nil
}

// SetPassword replaces the password of the user with the given ID.
func (d *UserDirectory) SetPassword(ctx context.Context, id, password string) error {
	if password == "" {
		return invalidInput("password is required")
	}
	hash, err := d.hashPassword(password)
	if err != nil {
		return err
	}
	return d.users.update(ctx, func(entries []userEntry) ([]userEntry, error) {
		i := indexByID(entries, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		entries[i].PasswordHash = hash
		entries[i].Password = ""
		entries[i].UpdatedAt = time.Now().UTC()
		return entries, nil
	})
}

// Remove deletes the user with the given username. If the session pointed
// at that user it is cleared as well.
func (d *UserDirectory) Remove(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	var removedID string
	err := d.users.update(ctx, func(entries []userEntry) ([]userEntry, error) {
		i := indexByUsername(entries, username)
		if i < 0 {
			return nil, ErrNotFound
		}
		removedID = entries[i].ID
		return append(entries[:i], entries[i+1:]...), nil
	})
	if err != nil {
		return err
	}
	return d.clearSessionOf(ctx, removedID)
}

// SetSession marks the user with the given ID as logged in on this device,
// replacing any previous session.
func (d *UserDirectory) SetSession(ctx context.Context, userID string) error {
	if _, err := d.GetByID(ctx, userID); err != nil {
		return err
	}
	return d.withSession(ctx, func() error {
		return setJSON(ctx, d.kv, keySession, sessionPointer{
			UserID:    userID,
			StartedAt: time.Now().UTC(),
		})
	})
}

// GetSession returns the logged-in user. It returns ErrNotFound when there
// is no session, and clears a session whose user no longer exists.
func (d *UserDirectory) GetSession(ctx context.Context) (types.User, error) {
	var ptr sessionPointer
	found, err := getJSON(ctx, d.kv, keySession, &ptr)
	if err != nil {
		return types.User{}, err
	}
	if !found || ptr.UserID == "" {
		return types.User{}, ErrNotFound
	}

	user, err := d.GetByID(ctx, ptr.UserID)
	if errors.Is(err, ErrNotFound) {
		if clearErr := d.clearSessionOf(ctx, ptr.UserID); clearErr != nil {
			return types.User{}, clearErr
		}
	}
	return user, err
}

// ClearSession logs the current user out. It does not touch the user record.
func (d *UserDirectory) ClearSession(ctx context.Context) error {
	return d.withSession(ctx, func() error {
		return removeKey(ctx, d.kv, keySession)
	})
}

// clearSessionOf removes the session only while it still points at userID.
// A session set for someone else in the meantime is left alone.
func (d *UserDirectory) clearSessionOf(ctx context.Context, userID string) error {
	return d.withSession(ctx, func() error {
		var ptr sessionPointer
		found, err := getJSON(ctx, d.kv, keySession, &ptr)
		if err != nil || !found || ptr.UserID != userID {
			return err
		}
		return removeKey(ctx, d.kv, keySession)
	})
}

func (d *UserDirectory) withSession(ctx context.Context, fn func() error) error {
	select {
	case d.session <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-d.session }()
	return fn()
}

func (d *UserDirectory) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// normalizeProfile drops the fields that do not belong to the user's type.
func normalizeProfile(user types.User) types.User {
	if user.IsDoctor() {
		user.Children = nil
		user.Email = strings.TrimSpace(user.Email)
		user.University = strings.TrimSpace(user.University)
		user.Field = strings.TrimSpace(user.Field)
		return user
	}
	user.Email = ""
	user.University = ""
	user.Field = ""
	return user
}

func indexByUsername(entries []userEntry, username string) int {
	for i, e := range entries {
		if e.Username == username {
			return i
		}
	}
	return -1
}

func indexByID(entries []userEntry, id string) int {
	if id == "" {
		return -1
	}
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
