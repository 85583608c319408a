package auth

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Role is a display label only; nothing authorizes on it.
type Role string

const (
	RoleSREEngineer      Role = "SRE Engineer"
	RoleDevOpsLead       Role = "DevOps Lead"
	RolePlatformEngineer Role = "Platform Engineer"
	RoleSecurityEngineer Role = "Security Engineer"
	RoleOnCallManager    Role = "On-Call Manager"
	RoleSeniorSRE        Role = "Senior SRE"

	DefaultRole = RoleSREEngineer
)

var roles = []Role{
	RoleSREEngineer,
	RoleDevOpsLead,
	RolePlatformEngineer,
	RoleSecurityEngineer,
	RoleOnCallManager,
	RoleSeniorSRE,
}

func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

func (r Role) Valid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Avatar       string    `json:"avatar"`
	CreatedAt    time.Time `json:"-"`
}

// Initials takes the first letter of each whitespace-separated word of name,
// upper-cases them and keeps at most two.
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(r)
	}
	upper := strings.ToUpper(b.String())
	if utf8.RuneCountInString(upper) <= 2 {
		return upper
	}
	runes := []rune(upper)
	return string(runes[:2])
}
