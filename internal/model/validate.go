package model

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// DateLayout is the wire format of date-of-birth values.
const DateLayout = "2006-01-02"

var rePhone = regexp.MustCompile(`^[0-9+\-\s()]{8,15}$`)

// UserPayload is the create form body accepted by /user/create.
type UserPayload struct {
	FullName  string   `json:"fullName"`
	Email     string   `json:"email"`
	Password  string   `json:"password,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Dob       string   `json:"dob,omitempty"`
	RoleNames []string `json:"roleNames"`
	Active    bool     `json:"active"`
	Avatar    string   `json:"avatar,omitempty"`
}

// Validate runs the form rules for account creation.
func (p UserPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Email, validation.Required, validation.Length(3, 200), is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(&p.Phone, validation.Match(rePhone)),
		validation.Field(&p.Dob, validation.Date(DateLayout)),
		validation.Field(&p.RoleNames, validation.Required, validation.By(knownRoles)),
	)
}

// Validate runs the form rules for a partial update; absent fields are not checked.
func (u UserUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.FullName, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&u.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&u.Password, validation.NilOrNotEmpty, validation.Length(6, 100)),
		validation.Field(&u.Phone, validation.Match(rePhone)),
		validation.Field(&u.Dob, validation.Date(DateLayout)),
		validation.Field(&u.RoleNames, validation.NilOrNotEmpty, validation.By(knownRoles)),
	)
}

// Validate checks the login request.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Password, validation.Required),
	)
}

// Validate checks the new password; the old one is checked by the directory.
func (p PasswordChange) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.NewPassword, validation.Required, validation.Length(6, 100)),
	)
}

// RegisterRequest is the self-service registration body.
type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// Validate checks the registration form.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(&r.Phone, validation.Match(rePhone)),
	)
}

func knownRoles(value interface{}) error {
	var roles []string
	switch v := value.(type) {
	case []string:
		roles = v
	case *[]string:
		if v == nil {
			return nil
		}
		roles = *v
	}
	for _, r := range roles {
		if !isRole(r) {
			return errors.New("unknown role " + r)
		}
	}
	return nil
}

func isRole(r string) bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}
