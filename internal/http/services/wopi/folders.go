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
	"strings"

	"github.com/cs3org/wopihost/pkg/appctx"
	"github.com/cs3org/wopihost/pkg/errtypes"
)

// handleCheckFolderInfo describes the root folder. The host serves a
// single flat directory, so any other folder id is unknown.
func (s *svc) handleCheckFolderInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := folderID(r)

	if _, err := s.checkAccess(ctx, r, id, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	root, err := s.fs.GetRoot(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !strings.EqualFold(id, root.Name) {
		s.writeError(w, r, errtypes.NotFound(id))
		return
	}

	s.writeJSON(w, r, struct {
		FolderName string `json:"FolderName"`
		OwnerId    string `json:"OwnerId"`
	}{FolderName: root.Name, OwnerId: s.conf.OwnerID})
}

type childFile struct {
	Name    string `json:"Name"`
	Version string `json:"Version"`
	Url     string `json:"Url"`
}

// handleEnumerateChildren lists the documents in the root folder, each
// with a WOPI src URL carrying a freshly minted token.
func (s *svc) handleEnumerateChildren(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := folderID(r)

	scope, err := s.checkAccess(ctx, r, id, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	root, err := s.fs.GetRoot(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !strings.EqualFold(id, root.Name) {
		s.writeError(w, r, errtypes.NotFound(id))
		return
	}

	children := make([]childFile, 0, len(root.Children))
	for _, md := range root.Children {
		u, err := s.fileURL(ctx, r, md.Name, scope.User, scope.Permission)
		if err != nil {
			appctx.GetLogger(ctx).Error().Err(err).Str("file", md.Name).Msg("wopi: error minting child token")
			continue
		}
		children = append(children, childFile{Name: md.Name, Version: md.Version, Url: u})
	}

	s.writeJSON(w, r, struct {
		Children []childFile `json:"Children"`
	}{Children: children})
}

type ancestor struct {
	Name string `json:"Name"`
	Url  string `json:"Url"`
}

// handleEnumerateAncestors reports the chain of folders above a file.
// With a flat namespace that is exactly the root, and the enumeration
// is always flagged incomplete.
func (s *svc) handleEnumerateAncestors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := fileID(r)

	if _, err := s.checkAccess(ctx, r, id, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.statFile(ctx, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	root, err := s.fs.GetRoot(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set(hdrEnumerationIncomplete, "true")
	s.writeJSON(w, r, struct {
		AncestorsWithRootFirst []ancestor `json:"AncestorsWithRootFirst"`
	}{
		AncestorsWithRootFirst: []ancestor{
			{Name: root.Name, Url: s.folderURL(ctx, r, root.Name)},
		},
	})
}
