package codec

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/passwordkeyorg/s3s/storage"
)

// JSON stores values as compact JSON text. Objects decode to
// map[string]any, arrays to []any and numbers to float64.
var JSON = &Codec{
	Suffix:      ".json",
	ContentType: "application/json",
	ReadMode:    storage.Text,
	WriteMode:   storage.Text,
	// One value per object; anything but whitespace after it is an error.
	DecodeFunc: func(r io.Reader, dst any) error {
		b, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	},
	EncodeFunc: func(w io.Writer, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	},
}
