package dojo

import (
	"time"

	"github.com/d2monteblanco/ki-aikido-system/core"
)

// Dojo is a training location. Dojo-scoped users and events belong to exactly one.
type Dojo struct {
	ID                    int       `json:"id" yaml:"-"`
	Name                  string    `json:"name" yaml:"name"`
	Address               string    `json:"address" yaml:"address"`
	ContactEmail          string    `json:"contact_email" yaml:"contact_email"`
	ContactPhone          string    `json:"contact_phone" yaml:"contact_phone"`
	ResponsibleInstructor string    `json:"responsible_instructor" yaml:"responsible_instructor"`
	RegistrationNumber    string    `json:"registration_number" yaml:"registration_number"`
	IsActive              bool      `json:"is_active" yaml:"is_active"`
	CreatedAt             time.Time `json:"created_at" yaml:"-"`
	UpdatedAt             time.Time `json:"updated_at" yaml:"-"`
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
