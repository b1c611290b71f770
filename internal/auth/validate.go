package auth

import (
	"net/mail"
	"strings"
)

const minPasswordLength = 6

type RegisterRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Password  string  `json:"password"`
	Role      *int    `json:"role"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	City      *string `json:"city"`
	State     *string `json:"state"`
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Password  string
	Role      Role
	Identity  Identity
	City      *string
	State     *string
}

// Validate checks the request before any store is touched. An unknown role
// selector yields KindInvalidRole; every other problem a *ValidationError.
func (r RegisterRequest) Validate() (RegisterInput, error) {
	var verr ValidationError
	in := RegisterInput{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Password:  strings.TrimSpace(r.Password),
		City:      optional(r.City),
		State:     optional(r.State),
	}

	if in.FirstName == "" {
		verr.add("first_name", "validation.required")
	}
	if in.LastName == "" {
		verr.add("last_name", "validation.required")
	}
	checkPassword(&verr, "password", in.Password)
	if r.Role == nil {
		verr.add("role", "validation.required")
	}
	in.Identity = identityFrom(&verr, r.Email, r.Phone)

	if err := verr.orNil(); err != nil {
		return RegisterInput{}, err
	}

	role, ok := RoleFromSelector(*r.Role)
	if !ok {
		return RegisterInput{}, newError(KindInvalidRole, "register.invalid_role")
	}
	in.Role = role
	return in, nil
}

// IdentityRequest carries exactly one of email or phone.
type IdentityRequest struct {
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

func (r IdentityRequest) Validate() (Identity, error) {
	var verr ValidationError
	id := identityFrom(&verr, r.Email, r.Phone)
	if err := verr.orNil(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

type VerifyRequest struct {
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	Code  string  `json:"code"`
}

type VerifyInput struct {
	Identity Identity
	Code     string
}

func (r VerifyRequest) Validate() (VerifyInput, error) {
	var verr ValidationError
	in := VerifyInput{
		Identity: identityFrom(&verr, r.Email, r.Phone),
		Code:     strings.TrimSpace(r.Code),
	}
	checkCode(&verr, in.Code)
	if err := verr.orNil(); err != nil {
		return VerifyInput{}, err
	}
	return in, nil
}

type LoginRequest struct {
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Password string  `json:"password"`
}

type LoginInput struct {
	Identity Identity
	Password string
}

func (r LoginRequest) Validate() (LoginInput, error) {
	var verr ValidationError
	in := LoginInput{
		Identity: identityFrom(&verr, r.Email, r.Phone),
		Password: strings.TrimSpace(r.Password),
	}
	if in.Password == "" {
		verr.add("password", "validation.required")
	}
	if err := verr.orNil(); err != nil {
		return LoginInput{}, err
	}
	return in, nil
}

type ChangePasswordRequest struct {
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Code     string  `json:"code"`
	Password string  `json:"password"`
}

type ChangePasswordInput struct {
	Identity Identity
	Code     string
	Password string
}

func (r ChangePasswordRequest) Validate() (ChangePasswordInput, error) {
	var verr ValidationError
	in := ChangePasswordInput{
		Identity: identityFrom(&verr, r.Email, r.Phone),
		Code:     strings.TrimSpace(r.Code),
		Password: strings.TrimSpace(r.Password),
	}
	checkCode(&verr, in.Code)
	checkPassword(&verr, "password", in.Password)
	if err := verr.orNil(); err != nil {
		return ChangePasswordInput{}, err
	}
	return in, nil
}

// UpdateAccountRequest carries the fields a coach may change on an account.
// Absent fields are left as they are.
type UpdateAccountRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Password  *string `json:"password"`
	Role      *int    `json:"role"`
	City      *string `json:"city"`
	State     *string `json:"state"`
}

type UpdateAccountInput struct {
	FirstName *string
	LastName  *string
	Identity  *Identity
	Password  *string
	Role      *Role
	City      *string
	State     *string
}

func (in UpdateAccountInput) empty() bool {
	return in.FirstName == nil && in.LastName == nil && in.Identity == nil &&
		in.Password == nil && in.Role == nil && in.City == nil && in.State == nil
}

func (r UpdateAccountRequest) Validate() (UpdateAccountInput, error) {
	var verr ValidationError
	in := UpdateAccountInput{
		City:  optional(r.City),
		State: optional(r.State),
	}

	if r.FirstName != nil {
		if in.FirstName = optional(r.FirstName); in.FirstName == nil {
			verr.add("first_name", "validation.required")
		}
	}
	if r.LastName != nil {
		if in.LastName = optional(r.LastName); in.LastName == nil {
			verr.add("last_name", "validation.required")
		}
	}
	if r.Password != nil {
		password := strings.TrimSpace(*r.Password)
		checkPassword(&verr, "password", password)
		in.Password = &password
	}
	if strings.TrimSpace(deref(r.Email)) != "" || strings.TrimSpace(deref(r.Phone)) != "" {
		id := identityFrom(&verr, r.Email, r.Phone)
		in.Identity = &id
	}

	if err := verr.orNil(); err != nil {
		return UpdateAccountInput{}, err
	}

	if r.Role != nil {
		role, ok := RoleFromSelector(*r.Role)
		if !ok {
			return UpdateAccountInput{}, newError(KindInvalidRole, "register.invalid_role")
		}
		in.Role = &role
	}
	if in.empty() {
		verr.add("body", "validation.no_changes")
		return UpdateAccountInput{}, &verr
	}
	return in, nil
}

func identityFrom(verr *ValidationError, email, phone *string) Identity {
	e := strings.TrimSpace(deref(email))
	p := strings.TrimSpace(deref(phone))

	switch {
	case e != "" && p != "":
		verr.add("email", "validation.one_channel")
		return Identity{}
	case e == "" && p == "":
		verr.add("email", "validation.required")
		return Identity{}
	case e != "":
		if !validEmail(e) {
			verr.add("email", "validation.email")
			return Identity{}
		}
		return EmailIdentity(e)
	default:
		id := PhoneIdentity(p)
		if !validPhone(id.Value) {
			verr.add("phone", "validation.phone")
			return Identity{}
		}
		return id
	}
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// validPhone accepts an optional leading + followed by 7 to 15 digits.
func validPhone(phone string) bool {
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}

func checkPassword(verr *ValidationError, field, password string) {
	if password == "" {
		verr.add(field, "validation.required")
	} else if len([]rune(password)) < minPasswordLength {
		verr.add(field, "validation.password_min")
	}
}

func checkCode(verr *ValidationError, code string) {
	if len(code) != codeDigits {
		verr.add("code", "validation.code")
		return
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			verr.add("code", "validation.code")
			return
		}
	}
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
