package storage

import (
	"errors"
	"fmt"
)

// Error codes attached to StorageError.
const (
	CodeObjectNotFound  = "ObjectNotFound"
	CodeInvalidPath     = "InvalidPath"
	CodeBucketNotFound  = "BucketNotFound"
	CodeAccessDenied    = "AccessDenied"
	CodeOperationFailed = "OperationFailed"
)

// StorageError carries a code plus the bucket/key it concerns.
type StorageError struct {
	Code   string
	Bucket string
	Key    string
	Cause  error
}

func (e *StorageError) Error() string {
	msg := e.Code
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	switch {
	case e.Bucket != "" && e.Key != "":
		return fmt.Sprintf("storage %s (bucket=%s, key=%s)", msg, e.Bucket, e.Key)
	case e.Bucket != "":
		return fmt.Sprintf("storage %s (bucket=%s)", msg, e.Bucket)
	}
	return "storage " + msg
}

func (e *StorageError) Unwrap() error { return e.Cause }

// Is matches on code, so errors.Is(err, ErrNotFound) holds for any
// StorageError coded ObjectNotFound or BucketNotFound.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	if t.Code == CodeObjectNotFound {
		return e.Code == CodeObjectNotFound || e.Code == CodeBucketNotFound
	}
	return e.Code == t.Code
}

var (
	ErrNotFound    = &StorageError{Code: CodeObjectNotFound}
	ErrInvalidPath = &StorageError{Code: CodeInvalidPath}
	ErrAccess      = &StorageError{Code: CodeAccessDenied}
)

// NotFound builds an ObjectNotFound error for path.
func NotFound(path string, cause error) error {
	bucket, key := SplitPath(path)
	return &StorageError{Code: CodeObjectNotFound, Bucket: bucket, Key: key, Cause: cause}
}

// IsNotFound reports whether err means the addressed object does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
