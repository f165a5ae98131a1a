package resources

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/autoservice/internal/client/api"
)

var (
	ErrClosed   = errors.New("store is closed")
	ErrInvalid  = errors.New("invalid input")
	ErrInUse    = errors.New("cannot delete: resource is in use")
	ErrNotFound = errors.New("not found")
)

func deleteError(err error) error {
	switch {
	case errors.Is(err, api.ErrConflict):
		return fmt.Errorf("%w: %w", ErrInUse, err)
	case errors.Is(err, api.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

// Humanize turns an error from a Store into text fit for a banner.
func Humanize(err error) string {
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return strings.Join(msgs, "; ")
	case errors.Is(err, ErrInUse):
		return ErrInUse.Error()
	case errors.Is(err, ErrNotFound):
		return "not found: it may have been deleted already"
	case errors.Is(err, api.ErrUnavailable):
		return "Unable to reach the server. Check your connection and try again."
	case errors.Is(err, api.ErrMalformedResponse):
		return "Unexpected response from the server."
	case errors.Is(err, api.ErrUnauthorized):
		return "Your session has expired. Please log in again."
	case errors.Is(err, api.ErrForbidden):
		return "You do not have permission to do that."
	}

	if msg := api.MessageOf(err); msg != "" {
		return msg
	}
	if errors.Is(err, api.ErrServer) {
		return "The server failed to process the request."
	}
	return err.Error()
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email address"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", name, fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
}
