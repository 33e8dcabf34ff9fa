package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/markbook/core"
)

type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	if len(pwd) > pwdMaxBytes {
		return core.NewValidationError(bcrypt.ErrPasswordTooLong, core.FieldError{Field: "password", Error: pwdMaxBytesText})
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum_"`
	Password string `json:"password" validate:"required,min=6,pwdmaxbytes"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	return validate.Struct(nu)
}

// NewPassword replaces the password of the user named Username. Same rules as NewUser.
type NewPassword struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6,pwdmaxbytes"`
}

func (np *NewPassword) Validate(validate *validator.Validate) error {
	np.Username = core.CleanString(np.Username, true /* lower */)
	return validate.Struct(np)
}

type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,pwdmaxbytes"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Username = core.CleanString(c.Username, true /* lower */)
	return validate.Struct(c)
}
