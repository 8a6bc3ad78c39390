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

// Package cloud stores comparison artifacts and fetches input files in
// blob storage.
package cloud

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob" // registers the s3:// URL opener
	"gocloud.dev/gcp"
)

// OpenBucket returns the blob storage bucket specified by bucketURL,
// which must be in the format 'provider://name/prefix' where provider
// is the name of the storage provider, name is the name of the bucket
// and the optional prefix is a directory within the bucket. The prefix
// is returned without leading or trailing slashes.
// The currently accepted storage providers are "file" for the local
// filesystem, "mem" for in-memory storage (e.g., for testing), "gs" for
// Google Cloud Storage, and "s3" for AWS S3.
//
// For "file", the host and path together form the directory holding the
// blobs, which is created if it does not exist, and the prefix is empty.
func OpenBucket(ctx context.Context, bucketURL string) (*blob.Bucket, string, error) {
	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, "", fmt.Errorf("cloud.OpenBucket: %v", err)
	}
	prefix := strings.Trim(u.Path, "/")
	switch u.Scheme {
	case "file":
		dir := filepath.FromSlash(u.Host + u.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, "", fmt.Errorf("cloud.OpenBucket: %v", err)
		}
		b, err := fileblob.OpenBucket(dir, nil)
		return b, "", err
	case "mem":
		return memblob.OpenBucket(nil), prefix, nil
	case "gs":
		b, err := gsBucket(ctx, u.Hostname())
		return b, prefix, err
	case "s3":
		// Credentials and region are taken from the AWS environment
		// variables and configuration files.
		b, err := blob.OpenBucket(ctx, "s3://"+u.Host+"?"+u.RawQuery)
		return b, prefix, err
	default:
		return nil, "", fmt.Errorf("cloud.OpenBucket: invalid provider %q", u.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, c, name, nil)
}

// IsBucketURL reports whether name refers to blob storage rather than
// the local filesystem.
func IsBucketURL(name string) bool {
	u, err := url.Parse(name)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "file", "mem", "gs", "s3":
		return true
	}
	return false
}
