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

package wopi

import (
	"io"
	"net/http"

	"github.com/cs3org/wopihost/pkg/appctx"
)

// handleGetFile streams the document bytes to the editor.
func (s *svc) handleGetFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := fileID(r)

	if _, err := s.checkAccess(ctx, r, id, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	md, err := s.statFile(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rc, err := s.fs.Download(ctx, id)
	if err != nil {
		// a read failure answers 404, same as an absent file
		appctx.GetLogger(ctx).Debug().Err(err).Str("file", id).Msg("wopi: download failed")
		s.writeStatus(w, http.StatusNotFound)
		return
	}
	defer rc.Close()

	s.addHostHeaders(w)
	w.Header().Set(hdrItemVersion, md.Version)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		// client went away mid-stream; nothing to roll back
		appctx.GetLogger(ctx).Debug().Err(err).Str("file", id).Msg("wopi: error streaming file")
	}
}

// handlePutFile replaces the document content. The write is admitted
// under the lock-table mutex (unlocked file, or lock strings match),
// then the bytes stream to storage outside of it: an overlapping PutFile
// with the same valid lock may interleave at the storage layer, where
// the atomic rename-into-place write keeps either content whole. Holding
// the table mutex across the upload would close that window at the cost
// of serializing all writes behind storage I/O.
func (s *svc) handlePutFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := fileID(r)

	if _, err := s.checkAccess(ctx, r, id, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.statFile(ctx, id); err != nil {
		s.writeError(w, r, err)
		return
	}

	if res := s.locks.Check(id, r.Header.Get(hdrLock)); !res.OK {
		s.writeLockMismatch(w, res.Lock, "")
		return
	}

	if _, err := s.fs.Upload(ctx, id, r.Body); err != nil {
		s.writeError(w, r, err)
		return
	}

	md, err := s.statFile(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.addHostHeaders(w)
	w.Header().Set(hdrItemVersion, md.Version)
	w.WriteHeader(http.StatusOK)
}
