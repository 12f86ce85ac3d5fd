package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bayni/apiserver/internal/ids"
	"github.com/bayni/apiserver/internal/kv"
	"github.com/bayni/apiserver/types"
)

// LegacyReport summarizes what MigrateLegacy changed.
type LegacyReport struct {
	ImportedUsers   int
	RehashedUsers   int
	SkippedRecords  int
	SessionRestored bool
}

// MigrateLegacy converts data written by old app versions to the current
// layout:
//   - a single-session "user" record or a "current_user" record is moved
//     into "users" (unless the username already exists) and becomes the
//     session pointer;
//   - plaintext passwords in "users" are replaced by bcrypt hashes.
//
// It is safe to run repeatedly.
func (d *UserDirectory) MigrateLegacy(ctx context.Context) (LegacyReport, error) {
	var report LegacyReport

	rehashed, err := d.rehashPlaintext(ctx)
	if err != nil {
		return report, err
	}
	report.RehashedUsers = rehashed

	for _, key := range []string{keyLegacyUser, keyLegacyCurrentUser} {
		var legacy userEntry
		found, err := getJSON(ctx, d.kv, key, &legacy)
		if err != nil {
			return report, err
		}
		if !found {
			continue
		}

		legacy.Username = strings.TrimSpace(legacy.Username)
		if legacy.Type == "" {
			legacy.Type = types.UserTypeNormal
		}
		if legacy.Username == "" || !legacy.Type.Valid() {
			report.SkippedRecords++
			if err := removeKey(ctx, d.kv, key); err != nil {
				return report, err
			}
			continue
		}

		userID, imported, err := d.importLegacy(ctx, legacy)
		if err != nil {
			return report, err
		}
		if imported {
			report.ImportedUsers++
		}

		restored, err := d.restoreSession(ctx, userID)
		if err != nil {
			return report, err
		}
		report.SessionRestored = report.SessionRestored || restored

		if err := removeKey(ctx, d.kv, key); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (d *UserDirectory) rehashPlaintext(ctx context.Context) (int, error) {
	entries, err := d.users.load(ctx)
	if err != nil {
		return 0, err
	}
	hashes := make(map[string]string)
	for _, e := range entries {
		if e.Password == "" {
			continue
		}
		hash, err := d.hashPassword(e.Password)
		if err != nil {
			return 0, err
		}
		hashes[e.ID] = hash
	}
	if len(hashes) == 0 {
		return 0, nil
	}

	count := 0
	err = d.users.update(ctx, func(entries []userEntry) ([]userEntry, error) {
		for i := range entries {
			hash, ok := hashes[entries[i].ID]
			if !ok || entries[i].Password == "" {
				continue
			}
			entries[i].PasswordHash = hash
			entries[i].Password = ""
			count++
		}
		return entries, nil
	})
	return count, err
}

// importLegacy adds a legacy record to the directory and returns the ID the
// username resolves to.
func (d *UserDirectory) importLegacy(ctx context.Context, legacy userEntry) (string, bool, error) {
	var hash string
	switch {
	case legacy.PasswordHash != "":
		hash = legacy.PasswordHash
	case legacy.Password != "":
		h, err := d.hashPassword(legacy.Password)
		if err != nil {
			return "", false, err
		}
		hash = h
	}

	var userID string
	imported := false
	err := d.users.update(ctx, func(entries []userEntry) ([]userEntry, error) {
		if i := indexByUsername(entries, legacy.Username); i >= 0 {
			userID = entries[i].ID
			return entries, nil
		}

		now := time.Now().UTC()
		user := legacy.User
		if user.ID == "" || indexByID(entries, user.ID) >= 0 {
			user.ID = ids.NewFromTime(now)
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = now
		}
		user.UpdatedAt = now
		user = normalizeProfile(user)

		userID = user.ID
		imported = true
		return append(entries, userEntry{User: user, PasswordHash: hash}), nil
	})
	return userID, imported, err
}

// restoreSession points the session at userID unless a session already exists.
func (d *UserDirectory) restoreSession(ctx context.Context, userID string) (bool, error) {
	_, err := d.GetSession(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if err := d.SetSession(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

// HasLegacyData reports whether any legacy key is still present.
func HasLegacyData(ctx context.Context, store kv.Store) (bool, error) {
	for _, key := range []string{keyLegacyUser, keyLegacyCurrentUser} {
		_, err := store.Get(ctx, key)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, kv.ErrNotFound) {
			return false, &StorageError{Op: "get", Key: key, Err: err}
		}
	}
	return false, nil
}
