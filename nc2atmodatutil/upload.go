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
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-cloud/blob"
	"github.com/sirupsen/logrus"
)

type uploader struct {
	log logrus.FieldLogger

	// files is a set of file path pairs. The first of each pair
	// is a local file path and the second is a blob storage
	// path where it should be uploaded to.
	files [][2]string

	// remote is the blob storage directory that converted
	// files are uploaded to.
	remote string

	err error
	dir string
}

// maybeUpload checks whether the given output directory refers to
// a blob storage location. If it does, then a temporary local directory
// is returned. Files written there will be uploaded to blob storage when
// the uploadOutput method is run.
func (u *uploader) maybeUpload(dir string) string {
	if u.err != nil {
		return ""
	}
	if !IsBlob(dir) {
		return dir
	}
	if u.dir == "" {
		u.dir, u.err = ioutil.TempDir("", "nc2atmodat")
		if u.err != nil {
			return ""
		}
	}
	u.remote = strings.TrimSuffix(dir, "/")
	return u.dir
}

// add registers a local output file for upload. It has no
// effect if the output directory is not in blob storage.
func (u *uploader) add(local string) {
	if u.remote == "" || local == "" {
		return
	}
	u.files = append(u.files, [2]string{
		local,
		u.remote + "/" + filepath.Base(local),
	})
}

func (u *uploader) uploadOutput(ctx context.Context) error {
	if u.err != nil {
		return u.err
	}
	for _, files := range u.files {
		if err := u.upload(ctx, files[0], files[1]); err != nil {
			return err
		}
		u.log.WithFields(logrus.Fields{
			"file": files[0],
			"dest": files[1],
		}).Info("nc2atmodat uploaded output")
	}
	return nil
}

func (u *uploader) upload(ctx context.Context, local, remote string) error {
	r, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("nc2atmodatutil: opening file '%s' for upload: %s", local, err)
	}
	defer r.Close()
	url, err := url.Parse(remote)
	if err != nil {
		return fmt.Errorf("nc2atmodatutil: parsing url '%s' for upload: %s", remote, err)
	}
	bucket, err := OpenBucket(ctx, url.Scheme+"://"+url.Host)
	if err != nil {
		return fmt.Errorf("nc2atmodatutil: opening bucket to upload file '%s': %s", remote, err)
	}
	w, err := bucket.NewWriter(ctx, strings.TrimPrefix(url.Path, "/"), &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("nc2atmodatutil: opening writer to upload file '%s': %s", remote, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("nc2atmodatutil: uploading file '%s' to '%s': %s", local, remote, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("nc2atmodatutil: finishing upload of '%s': %s", remote, err)
	}
	return nil
}

// cleanup removes the local copies of uploaded files.
func (u *uploader) cleanup() error {
	if u.dir == "" {
		return nil
	}
	return os.RemoveAll(u.dir)
}
