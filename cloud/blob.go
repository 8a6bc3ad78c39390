/*
Copyright © 2026 the gridcompare authors.
This file is part of gridcompare.

gridcompare is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridcompare is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridcompare.  If not, see <http://www.gnu.org/licenses/>.*/

package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = errors.New("cloud: blob not found")

// ErrMemURL is returned by Download and Create for mem:// URLs. Each
// opening of a mem:// URL is a new empty bucket, so in-memory buckets are
// only usable through a BlobStore.
var ErrMemURL = errors.New("cloud: mem:// buckets can only be used through a BlobStore")

// readBlob reads the given blob from the given bucket.
func readBlob(ctx context.Context, bucket *blob.Bucket, key string) ([]byte, error) {
	var b bytes.Buffer
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	defer r.Close()
	if _, err = io.Copy(&b, r); err != nil {
		return nil, fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	return b.Bytes(), nil
}

// writeBlob writes the given data to the given bucket.
func writeBlob(ctx context.Context, bucket *blob.Bucket, key string, data []byte, contentType string) error {
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %v", key, err)
	}
	if _, err = io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return fmt.Errorf("cloud: copying blob %s: %v", key, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %v", key, err)
	}
	return nil
}

// deleteBlobDir deletes all blobs whose keys start with dir.
func deleteBlobDir(ctx context.Context, bucket *blob.Bucket, dir string) (int, error) {
	iter := bucket.List(&blob.ListOptions{Prefix: strings.TrimSuffix(dir, "/") + "/"})
	var n int
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("cloud: listing blobs in %s to delete: %v", dir, err)
		}
		if err = bucket.Delete(ctx, obj.Key); err != nil {
			return n, fmt.Errorf("cloud: deleting blob %s: %v", obj.Key, err)
		}
		n++
	}
	return n, nil
}

// BlobStore keeps comparison previews in a blob storage bucket.
type BlobStore struct {
	bucket    *blob.Bucket
	prefix    string
	urlPrefix string
}

// NewBlobStore opens the bucket at bucketURL (see OpenBucket). The
// location returned by Put is urlPrefix followed by the key; when
// urlPrefix is empty, it is the blob URL.
func NewBlobStore(ctx context.Context, bucketURL, urlPrefix string) (*BlobStore, error) {
	bucket, prefix, err := OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	if urlPrefix == "" {
		urlPrefix = strings.TrimSuffix(bucketURL, "/") + "/"
	}
	return &BlobStore{bucket: bucket, prefix: prefix, urlPrefix: urlPrefix}, nil
}

func (s *BlobStore) key(k string) string {
	return path.Join(s.prefix, k)
}

// Put stores data under key and returns its location.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := writeBlob(ctx, s.bucket, s.key(key), data, contentType); err != nil {
		return "", err
	}
	return s.urlPrefix + key, nil
}

// Get returns the data stored under key, or an error wrapping
// ErrNotFound.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	return readBlob(ctx, s.bucket, s.key(key))
}

// DeleteDir deletes every blob stored under the directory dir and
// returns how many were deleted.
func (s *BlobStore) DeleteDir(ctx context.Context, dir string) (int, error) {
	return deleteBlobDir(ctx, s.bucket, s.key(dir))
}

// Close releases the bucket.
func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

// expandShp returns the given file + associated [.dbf, .shx, .prj]
// files if the given file has the .shp extension, and returns the given
// file otherwise
func expandShp(filename string) []string {
	o := []string{filename}
	ext := filepath.Ext(filename)
	if ext != ".shp" {
		return o
	}
	for _, newExt := range []string{".dbf", ".shx", ".prj"} {
		o = append(o, filename[0:len(filename)-4]+newExt)
	}
	return o
}

// Download copies the file at fileURL, which is a blob URL in the format
// accepted by OpenBucket followed by the file key, into dir and returns
// the local path. The .dbf, .shx and .prj files accompanying a shapefile
// are copied too; a missing .prj is not an error. Files given as local
// paths or file:// URLs are returned without copying; mem:// URLs are
// rejected with ErrMemURL.
func Download(ctx context.Context, fileURL, dir string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("cloud.Download: %v", err)
	}
	switch u.Scheme {
	case "":
		return fileURL, nil
	case "file":
		return filepath.FromSlash(u.Host + u.Path), nil
	case "mem":
		return "", ErrMemURL
	}
	key := strings.TrimLeft(u.Path, "/")
	u.Path = ""
	bucket, _, err := OpenBucket(ctx, u.String())
	if err != nil {
		return "", err
	}
	defer bucket.Close()
	return download(ctx, bucket, key, dir)
}

func download(ctx context.Context, bucket *blob.Bucket, key, dir string) (string, error) {
	var local string
	for i, k := range expandShp(key) {
		b, err := readBlobRetry(ctx, bucket, k)
		if errors.Is(err, ErrNotFound) && strings.HasSuffix(k, ".prj") {
			continue
		} else if err != nil {
			return "", fmt.Errorf("cloud.Download: %w", err)
		}
		f := filepath.Join(dir, path.Base(k))
		if err := os.WriteFile(f, b, 0644); err != nil {
			return "", fmt.Errorf("cloud.Download: %v", err)
		}
		if i == 0 {
			local = f
		}
	}
	return local, nil
}

// readBlobRetry reads the given blob, retrying transient failures with
// exponential backoff. Missing blobs are not retried.
func readBlobRetry(ctx context.Context, bucket *blob.Bucket, key string) ([]byte, error) {
	var b []byte
	var notFound error
	err := backoff.Retry(func() error {
		var err error
		b, err = readBlob(ctx, bucket, key)
		if errors.Is(err, ErrNotFound) {
			notFound = err
			return nil
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx))
	if notFound != nil {
		return nil, notFound
	}
	return b, err
}

// Create returns a writer for the file at fileURL, which is either a
// local path or a blob URL as accepted by Download. mem:// URLs are
// rejected with ErrMemURL. Local directories
// are created as needed. The file is only complete once the writer
// has been closed without error.
func Create(ctx context.Context, fileURL string) (io.WriteCloser, error) {
	u, err := url.Parse(fileURL)
	if err != nil || u.Scheme == "" || u.Scheme == "file" {
		local := fileURL
		if err == nil && u.Scheme == "file" {
			local = filepath.FromSlash(u.Host + u.Path)
		}
		if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
			return nil, err
		}
		return os.Create(local)
	}
	if u.Scheme == "mem" {
		return nil, ErrMemURL
	}
	key := strings.TrimLeft(u.Path, "/")
	u.Path = ""
	bucket, _, err := OpenBucket(ctx, u.String())
	if err != nil {
		return nil, err
	}
	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		bucket.Close()
		return nil, fmt.Errorf("cloud.Create: opening writer for '%s': %v", fileURL, err)
	}
	return &blobWriter{Writer: w, bucket: bucket}, nil
}

type blobWriter struct {
	*blob.Writer
	bucket *blob.Bucket
}

func (w *blobWriter) Close() error {
	err := w.Writer.Close()
	if cerr := w.bucket.Close(); err == nil {
		err = cerr
	}
	return err
}
