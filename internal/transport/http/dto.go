package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type registerRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	Enrollment    string `json:"enrollment" validate:"required,max=40"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6,max=72"`
	InstitutionID *int64 `json:"institutionId" validate:"omitempty,gt=0"`
}

type submitQuizRequest struct {
	PlayerID int64    `json:"playerId" validate:"required,gt=0"`
	Answers  []string `json:"answers" validate:"omitempty,dive,max=1"`
}

type completeChallengeRequest struct {
	PlayerID    int64  `json:"playerId" validate:"required,gt=0"`
	ChallengeID string `json:"challengeId" validate:"required"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=120"`
	Password   string `json:"password" validate:"required,max=72"`
}

type submitChallengeRequest struct {
	PlayerID    int64    `json:"playerId" validate:"required,gt=0"`
	ChallengeID string   `json:"challengeId" validate:"required"`
	Text        string   `json:"text" validate:"max=2000"`
	Photos      []string `json:"photos" validate:"max=5,dive,required,max=500"`
}

type reviewRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  []fieldError `json:"errors,omitempty"`
}

func validationErrors(err error) []fieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "email":
			msg = "must be a valid email"
		case "min":
			msg = "must be at least " + fe.Param() + " characters"
		case "max":
			msg = "must be at most " + fe.Param() + " characters"
		case "gt":
			msg = "must be greater than " + fe.Param()
		case "oneof":
			msg = "must be one of: " + fe.Param()
		default:
			msg = "is invalid"
		}
		out = append(out, fieldError{Field: fe.Field(), Message: msg})
	}
	return out
}
