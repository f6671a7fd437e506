package objectstore

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/passwordkeyorg/s3s/storage"
)

// MinIO is the S3 storage.Store. The first path segment is the bucket.
type MinIO struct {
	Client *minio.Client
	Bucket string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	Secure    bool
	// Transport overrides the HTTP transport, e.g. for a private CA.
	Transport http.RoundTripper
}

// partSize bounds the buffer PutObject allocates for uploads of unknown
// length.
const partSize = 16 << 20

func NewMinIO(cfg MinIOConfig) (*MinIO, error) {
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.Secure,
		Region:    cfg.Region,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, err
	}
	return &MinIO{Client: c, Bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the configured bucket when it is missing.
func (m *MinIO) EnsureBucket(ctx context.Context) error {
	exists, err := m.Client.BucketExists(ctx, m.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.Client.MakeBucket(ctx, m.Bucket, minio.MakeBucketOptions{})
}

func (m *MinIO) Scheme() string { return "s3" }

func split(p string) (string, string, string, error) {
	p, err := storage.CleanPath(p)
	if err != nil {
		return "", "", "", err
	}
	bucket, key := storage.SplitPath(p)
	return p, bucket, key, nil
}

func (m *MinIO) List(ctx context.Context, p string) ([]string, error) {
	p, bucket, key, err := split(p)
	if err != nil {
		return nil, err
	}
	prefix := dirPrefix(key)
	var out []string
	for obj := range m.Client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, mapErr(p, obj.Err)
		}
		if obj.Key == prefix {
			continue // directory marker
		}
		out = append(out, bucket+"/"+strings.TrimSuffix(obj.Key, "/"))
	}
	if len(out) > 0 {
		return out, nil
	}
	if key == "" {
		ok, err := m.Client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, mapErr(p, err)
		}
		if !ok {
			return nil, &storage.StorageError{Code: storage.CodeBucketNotFound, Bucket: bucket}
		}
		return []string{}, nil
	}
	if _, err := m.Client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, mapErr(p, err)
	}
	return []string{p}, nil
}

func (m *MinIO) Exists(ctx context.Context, p string) (bool, error) {
	p, bucket, key, err := split(p)
	if err != nil {
		return false, err
	}
	if key == "" {
		return m.Client.BucketExists(ctx, bucket)
	}
	_, err = m.Client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if err = mapErr(p, err); !storage.IsNotFound(err) {
		return false, err
	}
	// Stop the lister goroutine once the first entry is seen.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for obj := range m.Client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: dirPrefix(key), MaxKeys: 1}) {
		if obj.Err != nil {
			err = mapErr(p, obj.Err)
			if storage.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (m *MinIO) Size(ctx context.Context, p string) (int64, error) {
	p, bucket, key, err := split(p)
	if err != nil {
		return 0, err
	}
	info, err := m.Client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, mapErr(p, err)
	}
	return info.Size, nil
}

// RemoveAll deletes the object at p and every object under p + "/".
func (m *MinIO) RemoveAll(ctx context.Context, p string) error {
	p, bucket, key, err := split(p)
	if err != nil {
		return err
	}
	objs := make(chan minio.ObjectInfo)
	var listErr error
	go func() {
		defer close(objs)
		if key != "" {
			objs <- minio.ObjectInfo{Key: key}
		}
		for obj := range m.Client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: dirPrefix(key), Recursive: true}) {
			if obj.Err != nil {
				listErr = obj.Err
				return
			}
			objs <- obj
		}
	}()
	var firstErr error
	for e := range m.Client.RemoveObjects(ctx, bucket, objs, minio.RemoveObjectsOptions{}) {
		if e.Err != nil && firstErr == nil && !storage.IsNotFound(mapErr(p, e.Err)) {
			firstErr = mapErr(p, e.Err)
		}
	}
	if listErr != nil && !storage.IsNotFound(mapErr(p, listErr)) {
		return mapErr(p, listErr)
	}
	return firstErr
}

func (m *MinIO) Open(ctx context.Context, p string, _ storage.Mode) (io.ReadCloser, error) {
	p, bucket, key, err := split(p)
	if err != nil {
		return nil, err
	}
	obj, err := m.Client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapErr(p, err)
	}
	// validate early
	if _, err = obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapErr(p, err)
	}
	return obj, nil
}

// Create streams writes into a PutObject call of unknown size; Close waits
// for the upload to finish and returns its error.
func (m *MinIO) Create(ctx context.Context, p string, mode storage.Mode) (io.WriteCloser, error) {
	p, bucket, key, err := split(p)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, &storage.StorageError{Code: storage.CodeInvalidPath, Bucket: bucket}
	}
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := m.Client.PutObject(ctx, bucket, key, pr, -1, minio.PutObjectOptions{ContentType: contentType(mode), PartSize: partSize})
		_ = pr.CloseWithError(err)
		done <- err
	}()
	return &uploadWriter{pw: pw, done: done, path: p}, nil
}

type uploadWriter struct {
	pw     *io.PipeWriter
	done   chan error
	path   string
	closed bool
}

func (w *uploadWriter) Write(b []byte) (int, error) { return w.pw.Write(b) }

func (w *uploadWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.pw.Close()
	if err := <-w.done; err != nil {
		return mapErr(w.path, err)
	}
	return nil
}

// Abort fails the upload with cause so no object is completed.
func (w *uploadWriter) Abort(cause error) error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.pw.CloseWithError(cause)
	<-w.done
	return nil
}

func dirPrefix(key string) string {
	if key == "" {
		return ""
	}
	return key + "/"
}

func contentType(mode storage.Mode) string {
	if mode == storage.Text {
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}

func mapErr(p string, err error) error {
	bucket, key := storage.SplitPath(p)
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return storage.NotFound(p, err)
	case "NoSuchBucket":
		return &storage.StorageError{Code: storage.CodeBucketNotFound, Bucket: bucket, Key: key, Cause: err}
	case "AccessDenied":
		return &storage.StorageError{Code: storage.CodeAccessDenied, Bucket: bucket, Key: key, Cause: err}
	}
	return err
}
