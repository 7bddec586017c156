// Copyright 2018-2024 CERN
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// In applying this license, CERN does not waive the privileges and immunities
// granted to it by virtue of its status as an Intergovernmental Organization
// or submit itself to any jurisdiction.

// Package local provides a storage driver serving documents from a
// single local directory. Ids resolve against directory entries
// case-insensitively, uploads are atomic rename-into-place writes.
package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cs3org/wopihost/pkg/errtypes"
	"github.com/cs3org/wopihost/pkg/storage"
	"github.com/cs3org/wopihost/pkg/storage/fs/registry"
	"github.com/cs3org/wopihost/pkg/utils/cfg"
	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

func init() {
	registry.Register("local", New)
}

type config struct {
	Root string `mapstructure:"root" validate:"required"`
}

// New returns a storage driver rooted at the configured directory.
func New(m map[string]interface{}) (storage.FS, error) {
	var c config
	if err := cfg.Decode(m, &c); err != nil {
		return nil, errors.Wrap(err, "local: error decoding config")
	}

	root, err := filepath.Abs(c.Root)
	if err != nil {
		return nil, errors.Wrapf(err, "local: invalid root %q", c.Root)
	}
	fi, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "local: error accessing root %q", root)
	}
	if !fi.IsDir() {
		return nil, errors.Errorf("local: root %q is not a directory", root)
	}

	return &localFS{root: root}, nil
}

type localFS struct {
	root string
}

// checkName rejects names that would escape the root directory.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return errtypes.BadRequest("invalid document name " + strconv.Quote(name))
	}
	return nil
}

// resolve maps an id to the on-disk name, matching case-insensitively.
func (fs *localFS) resolve(id string) (string, error) {
	if err := checkName(id); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		return "", wrapOSError(err, fs.root)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.EqualFold(e.Name(), id) {
			return e.Name(), nil
		}
	}
	return "", errtypes.NotFound(id)
}

func wrapOSError(err error, name string) error {
	switch {
	case os.IsNotExist(err):
		return errtypes.NotFound(name)
	case os.IsPermission(err):
		return errtypes.PermissionDenied(name)
	default:
		return errors.Wrap(err, "local: i/o error")
	}
}

func mdFromFileInfo(name string, fi os.FileInfo) *storage.MD {
	return &storage.MD{
		Name:     name,
		Size:     fi.Size(),
		ReadOnly: fi.Mode().Perm()&0200 == 0,
		Version:  strconv.FormatInt(fi.ModTime().UTC().UnixNano(), 10),
	}
}

func (fs *localFS) GetMD(ctx context.Context, id string) (*storage.MD, error) {
	name, err := fs.resolve(id)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(filepath.Join(fs.root, name))
	if err != nil {
		return nil, wrapOSError(err, id)
	}
	return mdFromFileInfo(name, fi), nil
}

func (fs *localFS) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	name, err := fs.resolve(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(fs.root, name))
	if err != nil {
		return nil, wrapOSError(err, id)
	}
	return f, nil
}

func (fs *localFS) Upload(ctx context.Context, id string, content io.Reader) (int64, error) {
	name, err := fs.resolve(id)
	if err != nil {
		return 0, err
	}
	return fs.write(name, content)
}

func (fs *localFS) CreateOrOverwrite(ctx context.Context, name string, content io.Reader) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	// reuse the on-disk casing when the document already exists
	if existing, err := fs.resolve(name); err == nil {
		name = existing
	}
	return fs.write(name, content)
}

// write streams content into a temp file and renames it into place, so
// readers never observe partial content.
func (fs *localFS) write(name string, content io.Reader) (int64, error) {
	t, err := renameio.TempFile("", filepath.Join(fs.root, name))
	if err != nil {
		return 0, wrapOSError(err, name)
	}
	defer t.Cleanup() //nolint:errcheck

	n, err := io.Copy(t, content)
	if err != nil {
		return 0, errors.Wrapf(err, "local: error writing %s", name)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return 0, wrapOSError(err, name)
	}
	return n, nil
}

func (fs *localFS) Delete(ctx context.Context, id string) error {
	name, err := fs.resolve(id)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(fs.root, name)); err != nil {
		return wrapOSError(err, id)
	}
	return nil
}

func (fs *localFS) Rename(ctx context.Context, id, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	src, err := fs.resolve(id)
	if err != nil {
		return "", err
	}
	if tgt, err := fs.resolve(name); err == nil && !strings.EqualFold(tgt, src) {
		return "", errtypes.AlreadyExists(name)
	}
	if err := os.Rename(filepath.Join(fs.root, src), filepath.Join(fs.root, name)); err != nil {
		return "", wrapOSError(err, name)
	}
	return name, nil
}

func (fs *localFS) GetRoot(ctx context.Context) (*storage.Root, error) {
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		return nil, wrapOSError(err, fs.root)
	}
	root := &storage.Root{Name: filepath.Base(fs.root)}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		root.Children = append(root.Children, mdFromFileInfo(e.Name(), fi))
	}
	return root, nil
}
