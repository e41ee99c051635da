package integrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixEmail(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		want  string
		fixed bool
	}{
		{"surrounding whitespace", "  jane@example.com  ", "jane@example.com", true},
		{"internal whitespace", "jane doe@example.com", "janedoe@example.com", true},
		{"spelled out at", "jane[at]example.com", "jane@example.com", true},
		{"parenthesized at", "jane(at)example.com", "jane@example.com", true},
		{"doubled at", "jane@@example.com", "jane@example.com", true},
		{"tld typo con", "jane@example.con", "jane@example.com", true},
		{"tld typo cmo", "jane@example.cmo", "jane@example.com", true},
		{"missing at before provider", "janedoegmail.com", "janedoe@gmail.com", true},
		{"missing at before yahoo", "jdoeyahoo.com", "jdoe@yahoo.com", true},
		{"no local part", "@example.com", "@example.com", false},
		{"no domain", "janedoe", "janedoe", false},
		{"unknown provider without at", "janedoeexample.com", "janedoeexample.com", false},
		{"garbage", "not an email at all!", "not an email at all!", false},
		{"already valid", "jane@example.com", "jane@example.com", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FixEmail(tc.raw)
			assert.Equal(t, tc.fixed, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a.b+tag@sub.example.co.uk"))
	assert.False(t, IsValidEmail("missing-at.example.com"))
	assert.False(t, IsValidEmail("short@tld.x"))
	assert.False(t, IsValidEmail("spaces in@example.com"))
}
