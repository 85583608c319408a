package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Alex Chen", "AC"},
		{"Ops Admin", "OA"},
		{"mary jane watson", "MJ"},
		{"  spaced   out  ", "SO"},
		{"Cher", "C"},
		{"", ""},
		{"élodie durand", "ÉD"},
		{"a\tb\nc", "AB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Initials(tt.name), "Initials(%q)", tt.name)
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range Roles() {
		assert.True(t, r.Valid(), string(r))
	}
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("").Valid())
}
