package parser

import (
	"errors"
	"fmt"
)

var (
	ErrMalformed    = errors.New("malformed record")
	ErrMissingField = errors.New("missing required field")
)

// ParseError describes why one listing entry could not become a card.
// Kind is ErrMalformed or ErrMissingField.
type ParseError struct {
	Kind      error
	CardsetID string
	Field     string
	Text      string
}

func (e *ParseError) Error() string {
	switch {
	case e.Field != "" && e.Text != "":
		return fmt.Sprintf("cardset %s: %v: %s %q", e.CardsetID, e.Kind, e.Field, e.Text)
	case e.Field != "":
		return fmt.Sprintf("cardset %s: %v: %s", e.CardsetID, e.Kind, e.Field)
	default:
		return fmt.Sprintf("cardset %s: %v %q", e.CardsetID, e.Kind, e.Text)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

func malformed(cardsetID, field, text string) *ParseError {
	return &ParseError{Kind: ErrMalformed, CardsetID: cardsetID, Field: field, Text: text}
}

func missing(cardsetID, field string) *ParseError {
	return &ParseError{Kind: ErrMissingField, CardsetID: cardsetID, Field: field}
}
