package core

import (
	"fmt"

	"github.com/shivamkjha23-afk/ATR2026/internal/identity"
	"github.com/shivamkjha23-afk/ATR2026/internal/models"
)

// ErrUserNotFound is returned for approval of an unknown username.
var ErrUserNotFound = fmt.Errorf("user not found")

// GetUser returns the user record for a normalized username, or nil.
func (s *Store) GetUser(username string) models.Record {
	username = identity.NormalizeUsername(username)
	if username == "" {
		return nil
	}
	for _, u := range s.Read().Users {
		if identity.NormalizeUsername(u.String(models.FieldUsername)) == username {
			return u
		}
	}
	return nil
}

// RequestAccess files an access request for a new username. Usernames are
// case-insensitive and unique; the existence check and the insert run under
// one write lock, so concurrent requests for the same username yield one
// record, returned unchanged to the later callers.
func (s *Store) RequestAccess(username, role string) (models.Record, error) {
	username = identity.NormalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if role == "" {
		role = models.RoleInspector
	}

	var result models.Record
	err := s.Update(func(db *models.DB) error {
		for _, u := range db.Users {
			if identity.NormalizeUsername(u.String(models.FieldUsername)) == username {
				result = u
				return errUnchanged
			}
		}
		_, result = upsertRows(db, models.CollectionUsers, []models.Record{{
			models.FieldUsername:   username,
			models.FieldRole:       role,
			models.FieldApproved:   false,
			models.FieldApprovedBy: "",
		}}, username)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApproveUser approves a pending access request. Only the approval fields are
// written, so other fields of the record keep their latest values.
func (s *Store) ApproveUser(username, approvedBy string) (models.Record, error) {
	user := s.GetUser(username)
	if user == nil {
		return nil, fmt.Errorf("approve %q: %w", username, ErrUserNotFound)
	}
	payload := models.Record{
		models.FieldID:         user.ID(),
		models.FieldApproved:   true,
		models.FieldApprovedBy: identity.ActorOrSystem(approvedBy),
	}
	if user.String(models.FieldRole) == "" {
		payload[models.FieldRole] = models.RoleInspector
	}
	return s.Upsert(models.CollectionUsers, payload, approvedBy)
}

// PendingUsers lists access requests that have not been approved.
func (s *Store) PendingUsers() []models.Record {
	pending := []models.Record{}
	for _, u := range s.Read().Users {
		if !u.Bool(models.FieldApproved) {
			pending = append(pending, u)
		}
	}
	return pending
}

// IsAdmin reports whether the username belongs to an approved admin.
func (s *Store) IsAdmin(username string) bool {
	u := s.GetUser(username)
	return u != nil && u.Bool(models.FieldApproved) && u.String(models.FieldRole) == models.RoleAdmin
}
