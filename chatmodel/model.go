// Package chatmodel defines the chat session context and the contracts
// between tools, parsers, and the chat loop.
package chatmodel

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// ErrFailedUnmarshalInput signals that tool or parser input did not match
// the declared schema. Callers turn it into a corrective message for the
// model rather than a hard failure.
var ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")

// ContentProvider is implemented by typed inputs and outputs that can render
// themselves as chat content.
type ContentProvider interface {
	// GetContent gets the content of the message for the chat history
	GetContent() string
}

// InputParser is implemented by typed inputs that parse raw model output
// themselves instead of the default JSON unmarshaling.
type InputParser interface {
	ParseInput(input string) error
}

// OutputParser decodes an LLM response into T.
type OutputParser[T any] interface {
	// Parse decodes the output; schema mismatches should surface as
	// ErrFailedUnmarshalInput.
	Parse(text string) (*T, error)
	// GetFormatInstructions returns the prompt fragment describing the format.
	GetFormatInstructions() string
	// Type uniquely identifies this class of parser.
	Type() string
}

type Stringer interface {
	String() string
}

// Stringify renders a value as chat content: Stringers and ContentProviders
// render themselves, everything else is marshaled to JSON.
func Stringify(s any) string {
	switch v := s.(type) {
	case Stringer:
		return v.String()
	case ContentProvider:
		return v.GetContent()
	}
	bs, _ := json.Marshal(s)
	return string(bs)
}

// ToBytes is Stringify returning bytes.
func ToBytes(s any) []byte {
	switch v := s.(type) {
	case Stringer:
		return []byte(v.String())
	case ContentProvider:
		return []byte(v.GetContent())
	}
	bs, _ := json.Marshal(s)
	return bs
}
