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
	"net/http"
	"strconv"
	"strings"

	"github.com/cs3org/wopihost/pkg/appctx"
	"github.com/cs3org/wopihost/pkg/errtypes"
	"github.com/cs3org/wopihost/pkg/token"
	"github.com/google/uuid"
)

// putRelativeResponse is the PutRelativeFile wire document.
type putRelativeResponse struct {
	Name        string `json:"Name"`
	Url         string `json:"Url"`
	HostViewUrl string `json:"HostViewUrl"`
	HostEditUrl string `json:"HostEditUrl"`
}

// handlePutRelativeFile creates a sibling document from the request
// body. The two target headers are mutually exclusive: a suggested
// target may be adjusted to avoid collisions, a relative target is
// binding and collides unless overwrite is requested and the target is
// unlocked.
func (s *svc) handlePutRelativeFile(w http.ResponseWriter, r *http.Request, id string, scope *token.Scope) {
	ctx := r.Context()

	suggested := decodeHeader(r.Header, hdrSuggestedTarget)
	relative := decodeHeader(r.Header, hdrRelativeTarget)
	if (suggested == "") == (relative == "") {
		s.writeStatus(w, http.StatusNotImplemented)
		return
	}

	// X-WOPI-Size declares the body size; it is advisory, but a value
	// that is not a non-negative integer is a malformed request.
	declared := int64(-1)
	if v := r.Header.Get(hdrSize); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			s.writeError(w, r, errtypes.BadRequest("malformed "+hdrSize+" header"))
			return
		}
		declared = n
	}

	target := suggested
	if target == "" {
		target = relative
	}

	// a target of the form ".ext" swaps the extension of the source
	if strings.HasPrefix(target, ".") && !strings.Contains(target[1:], ".") {
		target = stem(id) + target
	}

	if suggested != "" {
		// suggested targets are free to change: dodge collisions by
		// prefixing a fresh guid
		if _, err := s.fs.GetMD(ctx, strings.ToLower(target)); err == nil {
			target = uuid.New().String() + target
		}
	} else {
		if _, err := s.fs.GetMD(ctx, strings.ToLower(target)); err == nil {
			overwrite := truthy(r.Header.Get(hdrOverwriteRelative))
			lck, held := s.locks.Get(strings.ToLower(target))
			if !overwrite || held {
				s.writeLockMismatch(w, lck, "")
				return
			}
		}
	}

	written, err := s.fs.CreateOrOverwrite(ctx, target, r.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if declared >= 0 && written != declared {
		appctx.GetLogger(ctx).Warn().Int64("declared", declared).Int64("written", written).
			Str("file", target).Msg("wopi: size header does not match body")
	}

	fileURL, err := s.fileURL(ctx, r, target, scope.User, token.PermissionWrite)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	viewURL, err := s.fileURL(ctx, r, target, scope.User, token.PermissionRead)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	editURL, err := s.fileURL(ctx, r, target, scope.User, token.PermissionWrite)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, &putRelativeResponse{
		Name:        target,
		Url:         fileURL,
		HostViewUrl: viewURL,
		HostEditUrl: editURL,
	})
}

// stem strips the extension: "doc.docx" -> "doc".
func stem(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}
