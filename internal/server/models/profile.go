package models

import "time"

// Profile holds the personal details of a user. FirstName, LastName, Phone
// and DateOfBirth are stored encrypted; the struct always carries plaintext.
type Profile struct {
	UserID      string    `json:"user_id"`
	FirstName   *string   `json:"first_name"`
	LastName    *string   `json:"last_name"`
	Phone       *string   `json:"phone"`
	DateOfBirth *string   `json:"date_of_birth"`
	HeightCm    *float64  `json:"height_cm"`
	WeightKg    *float64  `json:"weight_kg"`
	AvatarKey   *string   `json:"avatar_key"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Profile column names that are encrypted at rest.
const (
	ProfileFieldFirstName   = "first_name"
	ProfileFieldLastName    = "last_name"
	ProfileFieldPhone       = "phone"
	ProfileFieldDateOfBirth = "date_of_birth"
)

// ProtectedProfileFields lists the encrypted profile columns.
var ProtectedProfileFields = []string{
	ProfileFieldFirstName,
	ProfileFieldLastName,
	ProfileFieldPhone,
	ProfileFieldDateOfBirth,
}

// ProtectedFields returns pointers to the encrypted fields keyed by column
// name, for in-place encryption or decryption.
func (p *Profile) ProtectedFields() map[string]*string {
	return map[string]*string{
		ProfileFieldFirstName:   p.FirstName,
		ProfileFieldLastName:    p.LastName,
		ProfileFieldPhone:       p.Phone,
		ProfileFieldDateOfBirth: p.DateOfBirth,
	}
}

// Clone returns a deep copy so protected fields can be encrypted without
// touching the caller's values.
func (p *Profile) Clone() *Profile {
	c := *p
	c.FirstName = clonePtr(p.FirstName)
	c.LastName = clonePtr(p.LastName)
	c.Phone = clonePtr(p.Phone)
	c.DateOfBirth = clonePtr(p.DateOfBirth)
	c.HeightCm = clonePtr(p.HeightCm)
	c.WeightKg = clonePtr(p.WeightKg)
	c.AvatarKey = clonePtr(p.AvatarKey)
	return &c
}

// ClearProtectedField sets the named encrypted field to nil. Unknown names
// are ignored.
func (p *Profile) ClearProtectedField(name string) {
	switch name {
	case ProfileFieldFirstName:
		p.FirstName = nil
	case ProfileFieldLastName:
		p.LastName = nil
	case ProfileFieldPhone:
		p.Phone = nil
	case ProfileFieldDateOfBirth:
		p.DateOfBirth = nil
	}
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
