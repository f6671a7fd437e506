package codec

import (
	"encoding/gob"
	"io"

	"github.com/passwordkeyorg/s3s/storage"
)

func init() {
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register(map[string]string{})
	gob.Register(&Table{})
}

// RegisterType makes a concrete type known to the .pkl codec so values of
// that type survive a round trip through an interface.
func RegisterType(v any) { gob.Register(v) }

// Pickle stores arbitrary Go values with encoding/gob. The value is sent as
// an interface, so non-builtin concrete types must be passed to RegisterType
// first. Never load .pkl objects from an untrusted bucket.
var Pickle = &Codec{
	Suffix:      ".pkl",
	ContentType: "application/octet-stream",
	ReadMode:    storage.Binary,
	WriteMode:   storage.Binary,
	DecodeFunc: func(r io.Reader, dst any) error {
		var v any
		if err := gob.NewDecoder(r).Decode(&v); err != nil {
			return err
		}
		return assign(dst, v)
	},
	EncodeFunc: func(w io.Writer, v any) error {
		return gob.NewEncoder(w).Encode(&v)
	},
}
