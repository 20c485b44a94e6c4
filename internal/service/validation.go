package service

import (
	"errors"
	"reflect"
	"strings"

	"staffdesk/internal/apierror"
	"staffdesk/internal/auth"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report field errors under their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the validate tags of an already normalized request.
func validateStruct(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierror.Internal(err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return apierror.ValidationFields(fields)
}

func checkEmail(email string) error {
	if err := validate.Var(email, "email"); err != nil {
		return apierror.ValidationFields(map[string]string{"email": "email"})
	}
	return nil
}

// hashPassword classifies hasher input errors as validation failures.
func hashPassword(h auth.PasswordHasher, plaintext string) (string, error) {
	hash, err := h.Hash(plaintext)
	switch {
	case errors.Is(err, auth.ErrPasswordTooLong):
		return "", apierror.ValidationFields(map[string]string{"password": "max"})
	case err != nil:
		return "", apierror.Internal(err)
	}
	return hash, nil
}
