package incidents

import (
	"fmt"
	"strings"
	"time"

	"ira/internal/apierr"
)

type Severity string

const (
	SeverityP0 Severity = "P0"
	SeverityP1 Severity = "P1"
	SeverityP2 Severity = "P2"
	SeverityP3 Severity = "P3"

	DefaultSeverity = SeverityP2
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityP0, SeverityP1, SeverityP2, SeverityP3:
		return true
	}
	return false
}

type Status string

const (
	StatusActive        Status = "active"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"

	DefaultStatus = StatusActive
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInvestigating, StatusResolved:
		return true
	}
	return false
}

var ErrNotFound = apierr.NotFound("Incident not found")

// Creator is the user who opened the incident, with the name resolved.
type Creator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Incident struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Severity  Severity  `json:"severity"`
	Status    Status    `json:"status"`
	Service   string    `json:"service"`
	Message   string    `json:"message"`
	CreatedBy Creator   `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patch is the set of fields a partial update may touch. Nil fields are left
// unchanged. The creator and timestamps are not patchable.
type Patch struct {
	Title    *string   `json:"title,omitempty"`
	Severity *Severity `json:"severity,omitempty"`
	Status   *Status   `json:"status,omitempty"`
	Service  *string   `json:"service,omitempty"`
	Message  *string   `json:"message,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Severity == nil && p.Status == nil && p.Service == nil && p.Message == nil
}

func (p Patch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return apierr.Validation("title must not be empty")
	}
	if p.Severity != nil && !p.Severity.Valid() {
		return apierr.Validation(fmt.Sprintf("invalid severity %q", *p.Severity))
	}
	if p.Status != nil && !p.Status.Valid() {
		return apierr.Validation(fmt.Sprintf("invalid status %q", *p.Status))
	}
	return nil
}

func (p Patch) Apply(inc *Incident) {
	if p.Title != nil {
		inc.Title = *p.Title
	}
	if p.Severity != nil {
		inc.Severity = *p.Severity
	}
	if p.Status != nil {
		inc.Status = *p.Status
	}
	if p.Service != nil {
		inc.Service = *p.Service
	}
	if p.Message != nil {
		inc.Message = *p.Message
	}
}

// normalize fills defaults and checks the enumerations.
func (inc *Incident) normalize() error {
	if strings.TrimSpace(inc.Title) == "" {
		return apierr.Validation("title is required")
	}
	if inc.Severity == "" {
		inc.Severity = DefaultSeverity
	}
	if inc.Status == "" {
		inc.Status = DefaultStatus
	}
	if !inc.Severity.Valid() {
		return apierr.Validation(fmt.Sprintf("invalid severity %q", inc.Severity))
	}
	if !inc.Status.Valid() {
		return apierr.Validation(fmt.Sprintf("invalid status %q", inc.Status))
	}
	return nil
}

type ListFilter struct {
	Status   Status
	Severity Severity
	Limit    int
}

const maxListLimit = 500

// limit is the row cap for f; 0 means the whole list.
func (f ListFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return 0
	case f.Limit > maxListLimit:
		return maxListLimit
	}
	return f.Limit
}
