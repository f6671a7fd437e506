package scope

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported format")

// errInterrupted aborts a write whose encoder never returned.
var errInterrupted = errors.New("write interrupted")

// UnsupportedFormatError is returned when a key's last segment matches no
// registered codec on a write.
type UnsupportedFormatError struct {
	Key   []string
	Known []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("key %q does not end with any known extension: [%s]",
		strings.Join(e.Key, "/"), strings.Join(e.Known, " "))
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }
