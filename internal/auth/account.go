package auth

import (
	"strings"
	"time"
)

type Role int

const (
	RoleCoach  Role = 1
	RoleClient Role = 2
)

// RoleFromSelector resolves the numeric selector sent at registration.
func RoleFromSelector(n int) (Role, bool) {
	switch Role(n) {
	case RoleCoach, RoleClient:
		return Role(n), true
	}
	return 0, false
}

func ParseRole(name string) (Role, bool) {
	switch name {
	case "coach":
		return RoleCoach, true
	case "client":
		return RoleClient, true
	}
	return 0, false
}

func (r Role) String() string {
	switch r {
	case RoleCoach:
		return "coach"
	case RoleClient:
		return "client"
	}
	return ""
}

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// Identity is the contact channel an account is addressed by.
type Identity struct {
	Channel Channel
	Value   string
}

func EmailIdentity(email string) Identity {
	return Identity{Channel: ChannelEmail, Value: strings.ToLower(strings.TrimSpace(email))}
}

func PhoneIdentity(phone string) Identity {
	return Identity{Channel: ChannelPhone, Value: normalizePhone(phone)}
}

func (i Identity) IsZero() bool {
	return i.Value == ""
}

func (i Identity) String() string {
	return string(i.Channel) + ":" + i.Value
}

type Account struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        *string
	Phone        *string
	PasswordHash string
	Role         Role
	City         *string
	State        *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the channel the account registered with.
func (a *Account) Identity() Identity {
	if a.Email != nil && *a.Email != "" {
		return Identity{Channel: ChannelEmail, Value: *a.Email}
	}
	if a.Phone != nil {
		return Identity{Channel: ChannelPhone, Value: *a.Phone}
	}
	return Identity{}
}

type NewAccount struct {
	FirstName    string
	LastName     string
	Identity     Identity
	PasswordHash string
	Role         Role
	City         *string
	State        *string
	Active       bool
}

type Purpose string

const (
	PurposeVerify Purpose = "verify"
	PurposeReset  Purpose = "reset_password"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func normalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}
