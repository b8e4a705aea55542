package domain

import "errors"

var (
	// ErrNotFound is the parent of every lookup failure below.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when a required identifier is missing.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAttemptCapExceeded is returned when a player already used every attempt for a quiz.
	ErrAttemptCapExceeded = errors.New("attempt limit reached")
	// ErrDuplicatePlayer is returned when the email or enrollment is already registered.
	ErrDuplicatePlayer = errors.New("email or enrollment already registered")
	// ErrInvalidCredentials is returned when a password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSubmissionPending is returned when the player already has a submission awaiting review.
	ErrSubmissionPending = errors.New("a submission for this challenge is awaiting review")
	// ErrSubmissionReviewed is returned when a submission was already approved or rejected.
	ErrSubmissionReviewed = errors.New("submission already reviewed")
	// ErrChallengeCompleted is returned when submitting for a challenge the player already completed.
	ErrChallengeCompleted = errors.New("challenge already completed")

	ErrPlayerNotFound     = notFound("player not found")
	ErrQuizNotFound       = notFound("quiz not found")
	ErrChallengeNotFound  = notFound("challenge not found")
	ErrSubmissionNotFound = notFound("submission not found")
)

type notFoundError struct{ msg string }

func notFound(msg string) error { return &notFoundError{msg: msg} }

func (e *notFoundError) Error() string { return e.msg }

// Is lets errors.Is(err, ErrNotFound) match every specific lookup error.
func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }
