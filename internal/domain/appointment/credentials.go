package appointment

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/Pairs34/CerrahPasaRandevu/internal/internaltypes"
)

var validate = validator.New()

// Credentials is the record kept under the "credentials" key: the bearer
// token plus the profile sent with every reservation.
type Credentials struct {
	Token          string `json:"token" validate:"required"`
	Name           Scalar `json:"name"`
	Surname        Scalar `json:"surname"`
	IdentityNumber Scalar `json:"identity_number"`
	PhoneNumber    Scalar `json:"phone_number"`
	FatherName     Scalar `json:"father_name"`
	BirthYear      Scalar `json:"birth_year"`
	BirthDate      Scalar `json:"birth_date"`
	Gender         Scalar `json:"gender"`
}

// Validate reports ErrMalformed when the record cannot authorize a request.
func (c Credentials) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", internaltypes.ErrMalformed, err)
	}
	return nil
}

// Profile is the user block of a reservation request.
type Profile struct {
	Name           Scalar `json:"name"`
	Surname        Scalar `json:"surname"`
	IdentityNumber Scalar `json:"identity_number"`
	PhoneNumber    Scalar `json:"phone_number"`
	FatherName     Scalar `json:"father_name"`
	BirthYear      Scalar `json:"birth_year"`
	BirthDate      Scalar `json:"birth_date"`
	Gender         Scalar `json:"gender"`
}

func (p Profile) fields() []field {
	return []field{
		{"name", p.Name.raw},
		{"surname", p.Surname.raw},
		{"identity_number", p.IdentityNumber.raw},
		{"phone_number", p.PhoneNumber.raw},
		{"father_name", p.FatherName.raw},
		{"birth_year", p.BirthYear.raw},
		{"birth_date", p.BirthDate.raw},
		{"gender", p.Gender.raw},
	}
}

// MarshalJSON leaves out fields that were never stored.
func (p Profile) MarshalJSON() ([]byte, error) {
	return marshalObject(p.fields()), nil
}

// MarshalJSON writes the record back with every profile field in its
// original JSON type.
func (c Credentials) MarshalJSON() ([]byte, error) {
	var token string
	if c.Token != "" {
		token = quote(c.Token)
	}
	return marshalObject(append([]field{{"token", token}}, c.Profile().fields()...)), nil
}

func (c Credentials) Profile() Profile {
	return Profile{
		Name:           c.Name,
		Surname:        c.Surname,
		IdentityNumber: c.IdentityNumber,
		PhoneNumber:    c.PhoneNumber,
		FatherName:     c.FatherName,
		BirthYear:      c.BirthYear,
		BirthDate:      c.BirthDate,
		Gender:         c.Gender,
	}
}

// Redacted returns a copy safe to print: the token keeps only its last four
// characters.
func (c Credentials) Redacted() Credentials {
	out := c
	if n := len(out.Token); n > 4 {
		out.Token = "****" + out.Token[n-4:]
	} else if n > 0 {
		out.Token = "****"
	}
	return out
}
