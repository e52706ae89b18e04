package types

import "github.com/cartable-app/cartable/pkg/constants"

// AccountVariant is the normalized identity variant.
type AccountVariant string

const (
	VariantStudent AccountVariant = "student"
	VariantTeacher AccountVariant = "teacher"
	VariantParent  AccountVariant = "parent"
)

// Module is one feature entitlement attached to an account.
type Module struct {
	Code    string `json:"code"`
	Label   string `json:"label,omitempty"`
	Enabled bool   `json:"enabled"`
}

// TaughtClass is a class or group a teacher account is attached to.
type TaughtClass struct {
	ID      int    `json:"id"`
	GroupID int    `json:"group_id,omitempty"`
	Code    string `json:"code,omitempty"`
	Label   string `json:"label"`
}

// Child is one student linked to a parent/family account.
type Child struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Photo     string `json:"photo,omitempty"`
	Class     string `json:"class,omitempty"`
	School    string `json:"school,omitempty"`
}

// Account is the authenticated identity. The variant is fixed at login time
// from the upstream discriminator and determines which operations are
// permitted; variant-specific fields are zero-valued on the other variants.
type Account struct {
	ID      int                   `json:"id"`
	Type    constants.AccountType `json:"type"`
	Variant AccountVariant        `json:"variant"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Photo     string `json:"photo,omitempty"`

	School     string `json:"school,omitempty"`
	SchoolID   int    `json:"school_id,omitempty"`
	SchoolYear string `json:"school_year,omitempty"`

	LastConnection string   `json:"last_connection,omitempty"`
	Modules        []Module `json:"modules,omitempty"`

	// Student variant.
	Class     string `json:"class,omitempty"`
	ClassCode string `json:"class_code,omitempty"`
	ClassID   int    `json:"class_id,omitempty"`

	// Teacher variant.
	Classes  []TaughtClass `json:"classes,omitempty"`
	Subjects []string      `json:"subjects,omitempty"`

	// Parent variant.
	FamilyID int     `json:"family_id,omitempty"`
	Children []Child `json:"children,omitempty"`
}

// IsTeacher reports whether the account is the teacher variant.
func (a *Account) IsTeacher() bool {
	return a != nil && a.Variant == VariantTeacher
}

// IsStudent reports whether the account is the student variant.
func (a *Account) IsStudent() bool {
	return a != nil && a.Variant == VariantStudent
}
