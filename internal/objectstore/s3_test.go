package objectstore

import (
	"crypto/md5"
	"encoding/xml"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// s3Server is an in-memory S3 endpoint covering the calls MinIO makes:
// bucket head/create, ListObjectsV2, multi-object delete, object
// head/get/put/delete and multipart uploads.
type s3Server struct {
	mu       sync.Mutex
	buckets  map[string]map[string][]byte
	uploads  map[string]*s3Upload
	seq      int
	modified time.Time

	// aborted counts multipart uploads dropped by the client.
	aborted int
}

type s3Upload struct {
	bucket string
	key    string
	parts  map[int][]byte
}

type s3ListEntry struct {
	Key          string
	LastModified time.Time
	ETag         string
	Size         int64
}

type s3Prefix struct {
	Prefix string
}

type s3ListResult struct {
	XMLName               xml.Name `xml:"ListBucketResult"`
	Name                  string
	Prefix                string
	Delimiter             string `xml:",omitempty"`
	MaxKeys               int
	KeyCount              int
	IsTruncated           bool
	NextContinuationToken string `xml:",omitempty"`
	Contents              []s3ListEntry
	CommonPrefixes        []s3Prefix
}

func newS3Server() *s3Server {
	return &s3Server{
		buckets:  map[string]map[string][]byte{},
		uploads:  map[string]*s3Upload{},
		modified: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func (s *s3Server) openUploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

func (s *s3Server) abortedUploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

func (s *s3Server) putRaw(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[bucket][key] = data
}

func (s *s3Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	q := r.URL.Query()

	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		s.serveBucket(w, r, bucket, q)
		return
	}
	objs, ok := s.buckets[bucket]
	if !ok {
		s3Error(w, r, http.StatusNotFound, "NoSuchBucket")
		return
	}

	switch {
	case r.Method == http.MethodPost && q.Has("uploads"):
		s.seq++
		id := fmt.Sprintf("upload-%d", s.seq)
		s.uploads[id] = &s3Upload{bucket: bucket, key: key, parts: map[int][]byte{}}
		writeXML(w, struct {
			XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
			Bucket   string
			Key      string
			UploadId string
		}{Bucket: bucket, Key: key, UploadId: id})
	case r.Method == http.MethodPut && q.Has("uploadId"):
		up, ok := s.uploads[q.Get("uploadId")]
		if !ok {
			s3Error(w, r, http.StatusNotFound, "NoSuchUpload")
			return
		}
		n, _ := strconv.Atoi(q.Get("partNumber"))
		body, _ := io.ReadAll(r.Body)
		up.parts[n] = body
		w.Header().Set("ETag", etag(body))
	case r.Method == http.MethodPost && q.Has("uploadId"):
		id := q.Get("uploadId")
		up, ok := s.uploads[id]
		if !ok {
			s3Error(w, r, http.StatusNotFound, "NoSuchUpload")
			return
		}
		_, _ = io.Copy(io.Discard, r.Body)
		var data []byte
		for _, n := range slices.Sorted(maps.Keys(up.parts)) {
			data = append(data, up.parts[n]...)
		}
		if data == nil {
			data = []byte{}
		}
		objs[key] = data
		delete(s.uploads, id)
		writeXML(w, struct {
			XMLName  xml.Name `xml:"CompleteMultipartUploadResult"`
			Location string
			Bucket   string
			Key      string
			ETag     string
		}{Location: "/" + bucket + "/" + key, Bucket: bucket, Key: key, ETag: etag(data)})
	case r.Method == http.MethodDelete && q.Has("uploadId"):
		if _, ok := s.uploads[q.Get("uploadId")]; ok {
			delete(s.uploads, q.Get("uploadId"))
			s.aborted++
		}
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		objs[key] = body
		w.Header().Set("ETag", etag(body))
	case r.Method == http.MethodHead, r.Method == http.MethodGet:
		data, ok := objs[key]
		if !ok {
			s3Error(w, r, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Last-Modified", s.modified.Format(http.TimeFormat))
		w.Header().Set("ETag", etag(data))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(data)
		}
	case r.Method == http.MethodDelete:
		delete(objs, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		s3Error(w, r, http.StatusNotImplemented, "NotImplemented")
	}
}

func (s *s3Server) serveBucket(w http.ResponseWriter, r *http.Request, bucket string, q url.Values) {
	objs, ok := s.buckets[bucket]
	switch {
	case r.Method == http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		if !ok {
			s.buckets[bucket] = map[string][]byte{}
		}
		w.WriteHeader(http.StatusOK)
	case !ok:
		s3Error(w, r, http.StatusNotFound, "NoSuchBucket")
	case r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPost && q.Has("delete"):
		var req struct {
			Objects []struct{ Key string } `xml:"Object"`
		}
		if err := xml.NewDecoder(r.Body).Decode(&req); err != nil {
			s3Error(w, r, http.StatusBadRequest, "MalformedXML")
			return
		}
		res := struct {
			XMLName xml.Name `xml:"DeleteResult"`
			Deleted []struct{ Key string }
		}{}
		for _, o := range req.Objects {
			delete(objs, o.Key)
			res.Deleted = append(res.Deleted, struct{ Key string }{o.Key})
		}
		writeXML(w, res)
	case r.Method == http.MethodGet && q.Get("list-type") == "2":
		writeXML(w, s.list(bucket, objs, q))
	default:
		s3Error(w, r, http.StatusNotImplemented, "NotImplemented")
	}
}

func (s *s3Server) list(bucket string, objs map[string][]byte, q url.Values) s3ListResult {
	prefix, delim := q.Get("prefix"), q.Get("delimiter")
	maxKeys, _ := strconv.Atoi(q.Get("max-keys"))
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	after := q.Get("continuation-token")
	if after == "" {
		after = q.Get("start-after")
	}
	res := s3ListResult{Name: bucket, Prefix: prefix, Delimiter: delim, MaxKeys: maxKeys}
	seen := map[string]bool{}
	for _, k := range slices.Sorted(maps.Keys(objs)) {
		if !strings.HasPrefix(k, prefix) || k <= after {
			continue
		}
		// a common prefix handed out as the token covers every key below it
		if delim != "" && strings.HasSuffix(after, delim) && strings.HasPrefix(k, after) {
			continue
		}
		entry, isPrefix := k, false
		if delim != "" {
			if i := strings.Index(k[len(prefix):], delim); i >= 0 {
				entry, isPrefix = k[:len(prefix)+i+len(delim)], true
			}
		}
		if seen[entry] {
			continue
		}
		if res.KeyCount == maxKeys {
			res.IsTruncated = true
			break
		}
		seen[entry] = true
		res.KeyCount++
		res.NextContinuationToken = entry
		if isPrefix {
			res.CommonPrefixes = append(res.CommonPrefixes, s3Prefix{Prefix: entry})
			continue
		}
		res.Contents = append(res.Contents, s3ListEntry{Key: k, LastModified: s.modified, ETag: etag(objs[k]), Size: int64(len(objs[k]))})
	}
	if !res.IsTruncated {
		res.NextContinuationToken = ""
	}
	return res
}

func s3Error(w http.ResponseWriter, r *http.Request, status int, code string) {
	if r.Method == http.MethodHead {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_ = xml.NewEncoder(w).Encode(struct {
		XMLName xml.Name `xml:"Error"`
		Code    string
		Message string
	}{Code: code, Message: code})
}

func writeXML(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, xml.Header)
	_ = xml.NewEncoder(w).Encode(v)
}

func etag(b []byte) string { return fmt.Sprintf("%q", fmt.Sprintf("%x", md5.Sum(b))) }
