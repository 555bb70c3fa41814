// package models defines the data cached by the evcs client
package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Profile is the signed-in user as reported by the backend's /auth/me endpoint.
type Profile struct {
	ID        string
	UserID    string
	Email     string
	Name      string
	Role      string
	Raw       json.RawMessage
	FetchedAt time.Time
}

type profilePayload struct {
	ID       any      `json:"id"`
	UserID   any      `json:"userId"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	FullName string   `json:"fullName"`
	Username string   `json:"username"`
	Role     string   `json:"role"`
	Roles    []string `json:"roles"`
}

// ParseProfile builds a [Profile] from a raw /auth/me body.
//
// Backends disagree on field names, so userId/id, name/fullName/username and role/roles[0] are all accepted.
func ParseProfile(raw []byte) (*Profile, error) {
	var p profilePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	profile := &Profile{
		UserID:    idString(p.UserID),
		Email:     p.Email,
		Name:      firstNonEmpty(p.Name, p.FullName, p.Username),
		Role:      p.Role,
		Raw:       json.RawMessage(raw),
		FetchedAt: time.Now(),
	}
	if profile.UserID == "" {
		profile.UserID = idString(p.ID)
	}
	if profile.Role == "" && len(p.Roles) > 0 {
		profile.Role = p.Roles[0]
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

// Validate checks that the profile identifies a user.
func (p *Profile) Validate() error {
	if p.UserID == "" && p.Email == "" {
		return errors.New("profile has neither user id nor email")
	}
	return nil
}

// Key identifies the profile in stores: the user id when known, otherwise the email.
func (p *Profile) Key() string {
	if p.UserID != "" {
		return p.UserID
	}
	return p.Email
}

// ProfileStore caches the current [Profile].
type ProfileStore interface {
	Save(ctx context.Context, profile *Profile) error // Save replaces the cached profile
	Get(ctx context.Context) (*Profile, error)        // Get returns the cached profile or shared.ErrProfileNotFound
	Clear(ctx context.Context) error                  // Clear removes every cached profile
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
