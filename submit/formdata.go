// Package submit normalizes form-like submission targets into canonical
// submission descriptors and carries the ordered, binary-capable field set
// they submit.
package submit

import (
	"fmt"
	"net/url"

	platformerrors "github.com/mamala42/remix/internal/platform/errors"
)

// Value is one field value: textual or binary. Binary values carry the
// original filename when one exists.
type Value struct {
	text     string
	bytes    []byte
	filename string
	binary   bool
}

// Text creates a textual field value.
func Text(s string) Value {
	return Value{text: s}
}

// File creates a binary field value.
func File(filename string, data []byte) Value {
	return Value{filename: filename, bytes: data, binary: true}
}

// IsBinary reports whether the value is binary.
func (v Value) IsBinary() bool {
	return v.binary
}

// Text returns the textual content; empty for binary values.
func (v Value) Text() string {
	return v.text
}

// Bytes returns the binary content; nil for textual values.
func (v Value) Bytes() []byte {
	return v.bytes
}

// Filename returns the binary value's filename.
func (v Value) Filename() string {
	return v.filename
}

// Field is one named entry in a field set.
type Field struct {
	Name  string
	Value Value
}

// FormData is an ordered, multi-valued, binary-capable field set. The zero
// value is empty and ready to use.
type FormData struct {
	fields []Field
}

// Append adds a field, preserving insertion order and existing same-named
// fields.
func (d *FormData) Append(name string, value Value) {
	d.fields = append(d.fields, Field{Name: name, Value: value})
}

// Set overwrites the first same-named field and removes the rest; when the
// name is absent it appends.
func (d *FormData) Set(name string, value Value) {
	replaced := false
	kept := d.fields[:0]
	for _, f := range d.fields {
		if f.Name != name {
			kept = append(kept, f)
			continue
		}
		if !replaced {
			kept = append(kept, Field{Name: name, Value: value})
			replaced = true
		}
	}
	d.fields = kept
	if !replaced {
		d.Append(name, value)
	}
}

// Get returns the first value for name.
func (d *FormData) Get(name string) (Value, bool) {
	for _, f := range d.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether any field has the given name.
func (d *FormData) Has(name string) bool {
	_, ok := d.Get(name)
	return ok
}

// Len returns the number of fields.
func (d *FormData) Len() int {
	return len(d.fields)
}

// Entries returns a copy of the fields in order.
func (d *FormData) Entries() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Clone returns an independent copy of the field set.
func (d *FormData) Clone() FormData {
	return FormData{fields: d.Entries()}
}

// EncodeQuery folds every field into a URL query string. It fails before
// producing anything when a field is binary: a GET request cannot carry
// binary payloads, and dropping data silently is worse than refusing.
func (d *FormData) EncodeQuery() (string, error) {
	for _, f := range d.fields {
		if f.Value.IsBinary() {
			return "", platformerrors.WithMetadata(
				platformerrors.CodeSubmissionBinaryQueryField,
				fmt.Sprintf("field %q is binary and cannot be encoded into a query string", f.Name),
				map[string]string{"field": f.Name},
			)
		}
	}
	return encodeOrdered(d.fields), nil
}

// encodeOrdered url-encodes textual fields preserving insertion order.
// url.Values.Encode sorts by key, which would reorder multi-field forms.
func encodeOrdered(fields []Field) string {
	var out []byte
	for _, f := range fields {
		if len(out) > 0 {
			out = append(out, '&')
		}
		out = append(out, url.QueryEscape(f.Name)...)
		out = append(out, '=')
		out = append(out, url.QueryEscape(f.Value.Text())...)
	}
	return string(out)
}
