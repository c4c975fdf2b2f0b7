package apperr

import (
	"fmt"
	"strings"
)

// Field-level validation codes.
const (
	EmptyFieldCode         = "EMPTY_FIELD"
	InvalidNumberCode      = "INVALID_NUMBER"
	NonPositivePriceCode   = "NON_POSITIVE_PRICE"
	InvalidEmailDomainCode = "INVALID_EMAIL_DOMAIN"
	InvalidImageTypeCode   = "INVALID_IMAGE_TYPE"
)

// FieldError describes a single violated rule on a named input field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("Field=%s, Code=%s, Msg=%s", e.Field, e.Code, e.Message)
}

// FieldErrors accumulates every violated rule of one operation so the caller
// can surface all problems in a single round trip.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Error())
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether any accumulated error on the given field carries code.
func (e FieldErrors) Has(field, code string) bool {
	for _, fe := range e {
		if fe.Field == field && fe.Code == code {
			return true
		}
	}
	return false
}

// Append adds a field error and returns the extended list.
func (e FieldErrors) Append(field, code, message string) FieldErrors {
	return append(e, FieldError{Field: field, Code: code, Message: message})
}
