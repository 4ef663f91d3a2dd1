package tooldef

import (
	"github.com/JoviDeCroock/tanstack-ai/chatmodel"
	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

// Args is the arguments object handed to a tool handler. Values are read by
// property name; absent optional properties report their zero value unless a
// default was declared.
type Args struct {
	raw []byte
}

// Raw returns the raw JSON of the arguments object.
func (a Args) Raw() []byte {
	return a.raw
}

// Exists reports whether the named property is present.
func (a Args) Exists(name string) bool {
	return gjson.GetBytes(a.raw, name).Exists()
}

// Get returns the raw result for the named property. The name may be a
// gjson path for nested objects, e.g. "options.depth".
func (a Args) Get(name string) gjson.Result {
	return gjson.GetBytes(a.raw, name)
}

// String returns the named property as a string.
func (a Args) String(name string) string {
	return gjson.GetBytes(a.raw, name).String()
}

// Int returns the named property as an int64.
func (a Args) Int(name string) int64 {
	return gjson.GetBytes(a.raw, name).Int()
}

// Float returns the named property as a float64.
func (a Args) Float(name string) float64 {
	return gjson.GetBytes(a.raw, name).Float()
}

// Bool returns the named property as a bool.
func (a Args) Bool(name string) bool {
	return gjson.GetBytes(a.raw, name).Bool()
}

// StringSlice returns the named array property as a string slice.
func (a Args) StringSlice(name string) []string {
	res := gjson.GetBytes(a.raw, name)
	if !res.IsArray() {
		return nil
	}
	items := res.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}

// Unmarshal decodes the whole arguments object into the given value.
// Decoding is lenient about truncated model output.
func (a Args) Unmarshal(v any) error {
	if err := ljson.Unmarshal(a.raw, v); err != nil {
		return errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
	}
	return nil
}
