/*
Copyright © 2021 the nc2atmodat authors.
This file is part of nc2atmodat.

nc2atmodat is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

nc2atmodat is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with nc2atmodat.  If not, see <http://www.gnu.org/licenses/>.
*/

package nc2atmodatutil

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cenkalti/backoff"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
	"github.com/google/go-cloud/gcp"
	"github.com/sirupsen/logrus"
)

// maxRetries is the number of times a failed download is retried.
const maxRetries = 3

// downloader fetches remote input files into a temporary directory.
type downloader struct {
	log logrus.FieldLogger
	dir string // created on first download
}

// maybeDownload checks if the input is an existing file locally.
// If not, it checks if the file is a URL or a blob.
// If it is, it downloads the file and returns the path to the
// downloaded file. Otherwise path is returned unchanged.
func (d *downloader) maybeDownload(ctx context.Context, path string) (string, error) {
	// Check if local file exists. If it does, return the given path.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path, nil
	}

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return d.download(ctx, path, d.fetchHTTP)
	}
	if IsBlob(path) {
		return d.download(ctx, path, d.fetchBlob)
	}
	return path, nil
}

// download retrieves src with fetch, retrying with exponential backoff.
func (d *downloader) download(ctx context.Context, src string, fetch func(context.Context, string, io.Writer) error) (string, error) {
	if d.dir == "" {
		var err error
		d.dir, err = ioutil.TempDir("", "nc2atmodat")
		if err != nil {
			return "", fmt.Errorf("nc2atmodatutil: creating temporary download directory: %v", err)
		}
	}
	u, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("nc2atmodatutil: parsing %s: %v", src, err)
	}
	// Each download gets its own directory so that files with the same
	// name from different locations do not overwrite each other.
	sub, err := ioutil.TempDir(d.dir, "")
	if err != nil {
		return "", fmt.Errorf("nc2atmodatutil: creating temporary download directory: %v", err)
	}
	dst := filepath.Join(sub, path.Base(u.Path))

	// perm holds an error that retrying will not fix.
	var perm error
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	err = backoff.RetryNotify(
		func() error {
			w, err := os.Create(dst)
			if err != nil {
				perm = err
				return nil
			}
			err = fetch(ctx, src, w)
			w.Close()
			if p, ok := err.(permanent); ok {
				perm = p.error
				return nil
			}
			return err
		},
		b,
		func(err error, wait time.Duration) {
			d.log.WithFields(logrus.Fields{
				"file":  src,
				"error": err,
				"wait":  wait,
			}).Warn("nc2atmodat download failed; retrying")
		},
	)
	if err == nil {
		err = perm
	}
	if err != nil {
		return "", fmt.Errorf("nc2atmodatutil: downloading %s: %v", src, err)
	}
	d.log.WithFields(logrus.Fields{
		"file": src,
		"dest": dst,
	}).Info("nc2atmodat downloaded input")
	return dst, nil
}

// permanent marks a download error that retrying will not fix.
type permanent struct{ error }

func (d *downloader) fetchHTTP(ctx context.Context, src string, w io.Writer) error {
	req, err := http.NewRequest("GET", src, nil)
	if err != nil {
		return permanent{err}
	}
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("%s: %s", src, resp.Status)
		if resp.StatusCode < 500 {
			return permanent{err}
		}
		return err
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (d *downloader) fetchBlob(ctx context.Context, src string, w io.Writer) error {
	u, err := url.Parse(src)
	if err != nil {
		return permanent{err}
	}
	bucket, err := OpenBucket(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return permanent{err}
	}
	r, err := bucket.NewReader(ctx, strings.TrimPrefix(u.Path, "/"))
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.Copy(w, r)
	return err
}

// cleanup removes the downloaded files.
func (d *downloader) cleanup() error {
	if d.dir == "" {
		return nil
	}
	return os.RemoveAll(d.dir)
}

// IsBlob returns whether the given filename represents a blob.
// (i.e., if it starts with `gs://`, 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// The currently accepted storage providers are "file" for the local filesystem
// (where name is a directory relative to the working directory), "gs" for
// Google Cloud Storage, and "s3" for AWS S3.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("nc2atmodatutil.OpenBucket: %v", err)
	}
	switch u.Scheme {
	case "file":
		return fileblob.NewBucket(u.Hostname())
	case "gs":
		return gsBucket(ctx, u.Hostname())
	case "s3":
		return s3Bucket(ctx, u.Hostname())
	default:
		return nil, fmt.Errorf("nc2atmodatutil.OpenBucket: invalid provider %s", u.Scheme)
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
	return gcsblob.OpenBucket(ctx, name, c)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "eu-central-1"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s := session.Must(session.NewSession(c))
	return s3blob.OpenBucket(ctx, s, name)
}
