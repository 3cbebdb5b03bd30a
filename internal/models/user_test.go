package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAgeAt(t *testing.T) {
	now := date(2026, time.June, 15)

	tests := []struct {
		name        string
		dateOfBirth time.Time
		expected    int
	}{
		{"birthday today", date(2008, time.June, 15), 18},
		{"birthday tomorrow", date(2008, time.June, 16), 17},
		{"birthday yesterday", date(2008, time.June, 14), 18},
		{"earlier month", date(2008, time.January, 1), 18},
		{"later month", date(2008, time.December, 31), 17},
		{"born today", now, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AgeAt(tt.dateOfBirth, now))
		})
	}
}

func TestIsOfAge(t *testing.T) {
	now := date(2026, time.June, 15)

	// Exactly 18 years ago, same month/day: eligible as of today.
	exact := date(2008, time.June, 15)
	assert.True(t, IsOfAge(&exact, now))

	// One day short of the anniversary: not eligible yet.
	short := date(2008, time.June, 16)
	assert.False(t, IsOfAge(&short, now))

	// No birth date on file fails closed.
	assert.False(t, IsOfAge(nil, now))
}

func TestCanViewRestricted(t *testing.T) {
	now := date(2026, time.June, 15)
	adult := date(1990, time.March, 2)
	minor := date(2010, time.March, 2)

	// Visibility ignores the persisted flag and recomputes from the date.
	assert.True(t, (&User{DateOfBirth: &adult, AgeVerified: false}).CanViewRestricted(now))
	assert.False(t, (&User{DateOfBirth: &minor, AgeVerified: true}).CanViewRestricted(now))
	assert.False(t, (&User{}).CanViewRestricted(now))
}

func TestEffectivePrice(t *testing.T) {
	discount := int64(800)
	tooHigh := int64(1500)
	zero := int64(0)

	assert.Equal(t, int64(1000), (&Product{Price: 1000}).EffectivePrice())
	assert.Equal(t, int64(800), (&Product{Price: 1000, DiscountPrice: &discount}).EffectivePrice())
	assert.Equal(t, int64(1000), (&Product{Price: 1000, DiscountPrice: &tooHigh}).EffectivePrice())
	assert.Equal(t, int64(1000), (&Product{Price: 1000, DiscountPrice: &zero}).EffectivePrice())
}
