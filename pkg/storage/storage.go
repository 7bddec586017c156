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

// Package storage defines the file store a WOPI host serves from.
//
// The host addresses documents by an opaque file id which doubles as
// the document name inside a flat root directory. Drivers resolve ids
// case-insensitively: WOPI file ids are lower-cased on the wire while
// the backing store may preserve the original casing.
package storage

import (
	"context"
	"io"
)

// MD holds the metadata of a stored document.
type MD struct {
	// Name is the document name with its on-disk casing.
	Name string
	// Size is the document size in bytes.
	Size int64
	// ReadOnly reports whether the backing store forbids writes.
	ReadOnly bool
	// Version changes whenever the document content changes.
	Version string
}

// Root describes the root directory of the store.
type Root struct {
	// Name is the directory name, compared case-insensitively by the host.
	Name string
	// Children are the documents in the root, in directory order.
	Children []*MD
}

// FS is the interface a storage driver implements. Absent documents are
// reported with an errtypes.NotFound error; stores that cannot reveal
// whether a document exists return errtypes.PermissionDenied, which the
// host maps to the same response as not-found.
type FS interface {
	// GetMD returns the metadata of the document with the given id.
	GetMD(ctx context.Context, id string) (*MD, error)

	// Download returns a reader over the document content.
	// The caller closes it.
	Download(ctx context.Context, id string) (io.ReadCloser, error)

	// Upload replaces the content of an existing document atomically
	// and returns the number of bytes written.
	Upload(ctx context.Context, id string, content io.Reader) (int64, error)

	// CreateOrOverwrite writes a document under the given name,
	// creating it if needed, and returns the number of bytes written.
	CreateOrOverwrite(ctx context.Context, name string, content io.Reader) (int64, error)

	// Delete removes the document.
	Delete(ctx context.Context, id string) error

	// Rename gives the document a new name and returns the name the
	// store settled on. A name collision yields errtypes.AlreadyExists.
	Rename(ctx context.Context, id, name string) (string, error)

	// GetRoot returns the root directory and its children.
	GetRoot(ctx context.Context) (*Root, error)
}
