package chatmodel

import "strings"

// String wraps a plain string as a ContentProvider, for tools and parsers
// that deal in raw text.
type String struct {
	value string
}

func NewString(str string) *String {
	return &String{value: str}
}

func (s String) GetContent() string { return s.value }
func (s String) String() string     { return s.value }
func (s String) Bytes() []byte      { return []byte(s.value) }

// Unmarshal accepts raw or JSON-quoted text.
func (s *String) Unmarshal(bs []byte) error {
	s.value = strings.Trim(string(bs), "\"")
	return nil
}
