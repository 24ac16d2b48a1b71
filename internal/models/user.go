package models

import (
	"fmt"
	"time"
)

const (
	DefaultNameTemplate        = "{genre} by Organizer"
	DefaultDescriptionTemplate = "Organized by genre on {date}"
)

// User is an account keyed by the provider's user id.
type User struct {
	record
	SpotifyID   string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Product     string `json:"product"`
}

func (u *User) ID() string { return u.SpotifyID }

// Premium reports whether the account is on a paid tier.
func (u *User) Premium() bool { return u.Product == "premium" }

// Username is the display name, falling back to the id.
func (u *User) Username() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.SpotifyID
}

func (u *User) Validate() error {
	if u.SpotifyID == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}

// Session binds an opaque browser/CLI token to a user's OAuth token.
type Session struct {
	record
	SessionID    string
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}

func (s *Session) ID() string { return s.SessionID }

func (s *Session) Validate() error {
	switch {
	case s.SessionID == "":
		return fmt.Errorf("session id is required")
	case s.UserID == "":
		return fmt.Errorf("user id is required")
	case s.AccessToken == "":
		return fmt.Errorf("access token is required")
	}
	return nil
}

// UserSettings are the per-user naming templates plus the account tier.
type UserSettings struct {
	UserID              string `json:"user_id"`
	NameTemplate        string `json:"name_template"`
	DescriptionTemplate string `json:"description_template"`
	IsPremium           bool   `json:"is_premium"`
}

// DefaultSettings returns the settings used before a user saves their own.
func DefaultSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:              userID,
		NameTemplate:        DefaultNameTemplate,
		DescriptionTemplate: DefaultDescriptionTemplate,
	}
}
