package iam

import (
	"encoding/json"
	"strings"
)

// Gender is a profile attribute. Unknown inbound values degrade to NONE
// instead of failing deserialization.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderNone   Gender = "NONE"
)

// ParseGender maps a string onto a Gender, case-insensitively. Empty or
// unrecognized values yield GenderNone.
func ParseGender(value string) Gender {
	switch strings.ToUpper(value) {
	case "MALE":
		return GenderMale
	case "FEMALE":
		return GenderFemale
	default:
		return GenderNone
	}
}

// UnmarshalJSON implements json.Unmarshaler with the NONE fallback.
func (g *Gender) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*g = ParseGender(s)
	return nil
}

// UserProfile carries the optional descriptive attributes of a tenant or
// end-user account.
type UserProfile struct {
	FirstName     string `db:"first_name" json:"first_name,omitempty"`
	LastName      string `db:"last_name" json:"last_name,omitempty"`
	MiddleName    string `db:"middle_name" json:"middle_name,omitempty"`
	NickName      string `db:"nick_name" json:"nick_name,omitempty"`
	MobilePhoneNo string `db:"mobile_phone_no" json:"mobile_phone_no,omitempty"`
	BirthDate     string `db:"birth_date" json:"birth_date,omitempty"`
	Country       string `db:"country" json:"country,omitempty"`
	Locale        string `db:"locale" json:"locale,omitempty"`
	Language      string `db:"language" json:"language,omitempty"`
	Timezone      string `db:"timezone" json:"timezone,omitempty"`
	Gender        Gender `db:"gender" json:"gender,omitempty"`
}

// HasMobile reports whether a mobile number is present.
func (p UserProfile) HasMobile() bool {
	return p.MobilePhoneNo != ""
}

// Equal compares two profiles field by field.
func (p UserProfile) Equal(other UserProfile) bool {
	return p == other
}
