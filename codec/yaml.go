package codec

import (
	"io"

	"github.com/goccy/go-yaml"

	"github.com/passwordkeyorg/s3s/storage"
)

// YAML and YML are not part of the default registry; binaries add them with
// Register.
var (
	YAML = newYAML(".yaml")
	YML  = newYAML(".yml")
)

func newYAML(suffix string) *Codec {
	return &Codec{
		Suffix:      suffix,
		ContentType: "application/yaml",
		ReadMode:    storage.Text,
		WriteMode:   storage.Text,
		DecodeFunc: func(r io.Reader, dst any) error {
			return yaml.NewDecoder(r).Decode(dst)
		},
		EncodeFunc: func(w io.Writer, v any) error {
			b, err := yaml.Marshal(v)
			if err != nil {
				return err
			}
			_, err = w.Write(b)
			return err
		},
	}
}
