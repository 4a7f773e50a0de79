package util

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dominicf2001/comfyforum/internal/database"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidField  = errors.New("invalid field")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

type LoginForm struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required,max=1024"`
}

type MessageForm struct {
	Title string `validate:"required,max=200"`
	Body  string `validate:"required,max=20000"`
}

// FormValue returns the trimmed form field.
func FormValue(r *http.Request, field string) string {
	return strings.TrimSpace(r.PostFormValue(field))
}

func ParseLoginForm(r *http.Request) (LoginForm, error) {
	if err := r.ParseForm(); err != nil {
		return LoginForm{}, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	form := LoginForm{
		Username: FormValue(r, "username"),
		Password: FormValue(r, "password"),
	}
	return form, check(form)
}

func ParseMessageForm(r *http.Request) (MessageForm, error) {
	if err := r.ParseForm(); err != nil {
		return MessageForm{}, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	form := MessageForm{
		Title: FormValue(r, "title"),
		Body:  FormValue(r, "body"),
	}
	return form, check(form)
}

// check reports ErrMissingFields when any required field is empty and
// ErrInvalidField for any other rule.
func check(form any) error {
	err := Validator().Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return ErrMissingFields
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidField, strings.ToLower(verrs[0].Field()))
}

func parseDate(value string) (time.Time, error) {
	return time.Parse(database.DateLayout, value)
}
