package models

import "time"

// MinimumAge is the legal purchase age for restricted products.
const MinimumAge = 18

// User is an account holder. AgeVerified is set once by an explicit
// verification action; age itself is always derived from DateOfBirth.
type User struct {
	ID          int64      `db:"id" json:"id"`
	Email       string     `db:"email" json:"email"`
	Name        string     `db:"name" json:"name"`
	Role        string     `db:"role" json:"role"`
	AgeVerified bool       `db:"age_verified" json:"age_verified"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// AgeAt returns the whole-year age at the given instant. The year delta is
// adjusted down when the month/day anniversary has not yet passed, so age
// increments exactly on the birthday, not before.
func AgeAt(dateOfBirth, now time.Time) int {
	age := now.Year() - dateOfBirth.Year()
	if now.Month() < dateOfBirth.Month() ||
		(now.Month() == dateOfBirth.Month() && now.Day() < dateOfBirth.Day()) {
		age--
	}
	return age
}

// IsOfAge reports whether a birth date makes someone at least MinimumAge
// at the given instant. A nil birth date fails closed.
func IsOfAge(dateOfBirth *time.Time, now time.Time) bool {
	if dateOfBirth == nil {
		return false
	}
	return AgeAt(*dateOfBirth, now) >= MinimumAge
}

// CanViewRestricted reports whether restricted products should be visible
// to this user in listings. Visibility is recomputed from the birth date on
// every call and does not consult the persisted AgeVerified flag.
func (u *User) CanViewRestricted(now time.Time) bool {
	return IsOfAge(u.DateOfBirth, now)
}
