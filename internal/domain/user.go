package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 12 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
	ErrInvalidPlan         = errors.New("invalid subscription plan")
)

// Password length bounds. 72 bytes is the bcrypt input limit.
const (
	MinPasswordLength = 12
	MaxPasswordLength = 72
)

// Plan is the subscription tier of a user.
type Plan string

// Supported plans
const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPremium
}

// User represents a registered studykit user.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	Password       string     `json:"-"` // plaintext, only set during registration
	HashedPassword string     `json:"-"`
	Plan           Plan       `json:"plan"`
	PlanExpiresAt  *time.Time `json:"plan_expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewUser creates a free-plan User with the given email and password.
// The password is hashed by the user store on Create.
func NewUser(email, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Email:     strings.TrimSpace(email),
		Password:  password,
		Plan:      PlanFree,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.Email == "" {
		return ErrEmptyEmail
	}

	if !validateEmailFormat(u.Email) {
		return ErrInvalidEmail
	}

	if u.Password != "" {
		switch n := len(u.Password); {
		case n < MinPasswordLength:
			return ErrPasswordTooShort
		case n > MaxPasswordLength:
			return ErrPasswordTooLong
		}
	} else if u.HashedPassword == "" {
		// Stored users carry only the hash.
		return ErrEmptyPassword
	}

	if u.Plan != "" && !u.Plan.Valid() {
		return ErrInvalidPlan
	}

	return nil
}

// IsPremium reports whether the user holds an active premium plan at now.
// A premium plan without an expiry never lapses.
func (u *User) IsPremium(now time.Time) bool {
	if u == nil || u.Plan != PlanPremium {
		return false
	}
	if u.PlanExpiresAt == nil {
		return true
	}
	return u.PlanExpiresAt.After(now)
}

// validateEmailFormat requires a non-empty local part and a domain with an
// inner dot, e.g. "a@b.c".
func validateEmailFormat(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}

	domainPart := email[at+1:]
	if len(domainPart) < 3 {
		return false
	}

	dot := strings.IndexByte(domainPart, '.')
	return dot > 0 && dot < len(domainPart)-1
}
