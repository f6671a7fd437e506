// Package codec maps file-extension suffixes to serializers.
//
// A Registry is an ordered list of (predicate, Codec) pairs; Lookup returns
// the first codec whose predicate accepts the last segment of a key. The
// default registry holds, in order, the ".pkl", ".json" and ".csv" codecs.
package codec

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/passwordkeyorg/s3s/storage"
)

var (
	ErrDecode = errors.New("decode failed")
	ErrEncode = errors.New("encode failed")
)

// Error wraps a failure raised by a codec's decode or encode function.
type Error struct {
	Op     string // "decode" or "encode"
	Suffix string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Suffix, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrDecode:
		return e.Op == "decode"
	case ErrEncode:
		return e.Op == "encode"
	}
	return false
}

// DecodeFunc reads one value from r into dst, a non-nil pointer.
type DecodeFunc func(r io.Reader, dst any) error

// EncodeFunc writes v to w.
type EncodeFunc func(w io.Writer, v any) error

// Codec describes how objects with a given suffix are stored.
type Codec struct {
	Suffix      string
	ContentType string
	ReadMode    storage.Mode
	WriteMode   storage.Mode
	DecodeFunc  DecodeFunc
	EncodeFunc  EncodeFunc
}

// Decode decodes r into dst. Failures are returned as *Error.
func (c *Codec) Decode(r io.Reader, dst any) error {
	if err := c.DecodeFunc(r, dst); err != nil {
		return &Error{Op: "decode", Suffix: c.Suffix, Err: err}
	}
	return nil
}

// DecodeValue decodes r into the codec's natural Go representation.
func (c *Codec) DecodeValue(r io.Reader) (any, error) {
	var v any
	if err := c.Decode(r, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Encode writes v to w. Failures are returned as *Error.
func (c *Codec) Encode(w io.Writer, v any) error {
	if err := c.EncodeFunc(w, v); err != nil {
		return &Error{Op: "encode", Suffix: c.Suffix, Err: err}
	}
	return nil
}

// assign stores v into the pointer dst, dereferencing v when that makes the
// types line up (a *Table decoded value into a *Table destination's Table).
func assign(dst, v any) error {
	if p, ok := dst.(*any); ok {
		*p = v
		return nil
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("destination must be a non-nil pointer, got %T", dst)
	}
	target := rv.Elem()
	src := reflect.ValueOf(v)
	if !src.IsValid() {
		target.SetZero()
		return nil
	}
	for {
		if src.Type().AssignableTo(target.Type()) {
			target.Set(src)
			return nil
		}
		if src.Kind() != reflect.Pointer || src.IsNil() {
			break
		}
		src = src.Elem()
	}
	return fmt.Errorf("cannot assign %T to %s", v, target.Type())
}
