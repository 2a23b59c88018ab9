package notes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MaxTitleLength   = 200
	MaxContentLength = 10000
)

// CreateInput is the payload for creating a note.
type CreateInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"max=10000"`
}

// UpdateInput is the payload for updating a note. Nil fields are left unchanged.
type UpdateInput struct {
	ID      string  `json:"id" validate:"required"`
	Title   *string `json:"title,omitempty" validate:"omitnil,min=1,max=200"`
	Content *string `json:"content,omitempty" validate:"omitnil,max=10000"`
}

// DeleteInput is the payload for deleting a note.
type DeleteInput struct {
	ID string `json:"id" validate:"required"`
}

func (in *CreateInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
}

func (in *UpdateInput) normalize() {
	in.ID = strings.TrimSpace(in.ID)
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if in.Content != nil {
		c := strings.TrimSpace(*in.Content)
		in.Content = &c
	}
}

func (in *DeleteInput) normalize() {
	in.ID = strings.TrimSpace(in.ID)
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// check runs struct validation and converts failures to a *ValidationError.
func check(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Problems: []string{err.Error()}}
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}
	return &ValidationError{Problems: problems}
}

func describe(fe validator.FieldError) string {
	switch fe.Field() {
	case "ID":
		return "Note ID is required"
	case "Title":
		if fe.Tag() == "max" {
			return fmt.Sprintf("Title must be %d characters or less", MaxTitleLength)
		}
		return "Title is required"
	case "Content":
		return "Content must be 10,000 characters or less"
	}
	return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
}
