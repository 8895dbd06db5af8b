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
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atmodat/nc2atmodat"
	"github.com/sirupsen/logrus"
)

func TestVersion(t *testing.T) {
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	Root.SetArgs([]string{"version"})
	defer Root.SetArgs(nil)
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "nc2atmodat v" + nc2atmodat.Version; !strings.Contains(buf.String(), want) {
		t.Errorf("have %q, want %q", buf.String(), want)
	}
}

func TestDefaultOptions(t *testing.T) {
	cfg, err := ConvertConfig(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := nc2atmodat.DefaultConfig()
	if cfg.Sheet != want.Sheet || cfg.UTMZone != want.UTMZone ||
		cfg.ChunkX != want.ChunkX || cfg.ChunkY != want.ChunkY {
		t.Errorf("flag defaults do not match the library defaults: %+v", cfg)
	}
	if cfg.Crop != nil || cfg.TimeCrop != nil || cfg.Reference != nil {
		t.Errorf("optional settings enabled by default: %+v", cfg)
	}
}

func TestConvertNoInput(t *testing.T) {
	Root.SetArgs([]string{"convert", "--OutputDir=" + t.TempDir()})
	defer Root.SetArgs(nil)
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	if err := Root.Execute(); err == nil {
		t.Error("expected an error without input files")
	}
}

func TestConvertInvalidConfig(t *testing.T) {
	cfg := nc2atmodat.DefaultConfig()
	cfg.InputFiles = []string{"/dev/null"}
	cfg.UTMZone = 0
	err := Convert(context.Background(), cfg, testLogger())
	if !errors.Is(err, nc2atmodat.ErrInvalidConfig) {
		t.Errorf("have %v, want %v", err, nc2atmodat.ErrInvalidConfig)
	}
}

func TestConvertDownloadFailureContinues(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	dir := t.TempDir()
	local := filepath.Join(dir, "local.nc")
	if err := ioutil.WriteFile(local, []byte("not netcdf"), 0644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	log := logrus.New()
	log.Out = &buf

	cfg := nc2atmodat.DefaultConfig()
	cfg.InputFiles = []string{srv.URL + "/absent.nc", local}
	cfg.OutputDir = t.TempDir()
	err := Convert(context.Background(), cfg, log)
	// The second file is reached, and fails, even though the first could
	// not be downloaded.
	if err == nil || !strings.Contains(err.Error(), "2 of 2 files failed") {
		t.Fatalf("have %v", err)
	}
	for _, f := range cfg.InputFiles {
		if !strings.Contains(buf.String(), f) {
			t.Errorf("no log entry for %s", f)
		}
	}
}

func TestConvertOutputClash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not netcdf"))
	}))
	defer srv.Close()
	var buf bytes.Buffer
	log := logrus.New()
	log.Out = &buf

	cfg := nc2atmodat.DefaultConfig()
	cfg.InputFiles = []string{srv.URL + "/a/mitras.nc", srv.URL + "/b/mitras.nc"}
	cfg.OutputDir = t.TempDir()
	err := Convert(context.Background(), cfg, log)
	if err == nil || !strings.Contains(err.Error(), "2 of 2 files failed") {
		t.Fatalf("have %v", err)
	}
	if !strings.Contains(buf.String(), "would overwrite") {
		t.Errorf("the clashing output name was not reported:\n%s", buf.String())
	}
}
