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
	"path/filepath"
)

// checkFileInfoResponse is the CheckFileInfo document. Field names are
// part of the WOPI wire contract and must not change.
type checkFileInfoResponse struct {
	BaseFileName string `json:"BaseFileName"`
	OwnerId      string `json:"OwnerId"`
	Size         int32  `json:"Size"`
	UserId       string `json:"UserId"`
	Version      string `json:"Version"`

	UserFriendlyName  string `json:"UserFriendlyName"`
	UserPrincipalName string `json:"UserPrincipalName"`
	FileExtension     string `json:"FileExtension"`

	ReadOnly                bool `json:"ReadOnly"`
	UserCanWrite            bool `json:"UserCanWrite"`
	UserCanRename           bool `json:"UserCanRename"`
	UserCanNotWriteRelative bool `json:"UserCanNotWriteRelative"`

	SupportsLocks              bool `json:"SupportsLocks"`
	SupportsGetLock            bool `json:"SupportsGetLock"`
	SupportsExtendedLockLength bool `json:"SupportsExtendedLockLength"`
	SupportsUpdate             bool `json:"SupportsUpdate"`
	SupportsRename             bool `json:"SupportsRename"`
	SupportsFolders            bool `json:"SupportsFolders"`
	SupportsSecureStore        bool `json:"SupportsSecureStore"`
	SupportsScenarioLinks      bool `json:"SupportsScenarioLinks"`
	SupportsUserInfo           bool `json:"SupportsUserInfo"`
	SupportsAddActivities      bool `json:"SupportsAddActivities"`

	SupportedShareUrlTypes []string `json:"SupportedShareUrlTypes"`

	BreadcrumbBrandName  string `json:"BreadcrumbBrandName"`
	BreadcrumbBrandUrl   string `json:"BreadcrumbBrandUrl"`
	BreadcrumbDocName    string `json:"BreadcrumbDocName"`
	BreadcrumbFolderName string `json:"BreadcrumbFolderName"`
	BreadcrumbFolderUrl  string `json:"BreadcrumbFolderUrl"`

	UserInfo string `json:"UserInfo"`
}

func (s *svc) handleCheckFileInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := fileID(r)

	scope, err := s.checkAccess(ctx, r, id, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	md, err := s.statFile(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	readOnly := md.ReadOnly || !scope.Permission.Grants(true)
	user := scope.User

	info := &checkFileInfoResponse{
		BaseFileName: md.Name,
		OwnerId:      s.conf.OwnerID,
		Size:         int32(md.Size),
		UserId:       user.ID,
		Version:      md.Version,

		UserFriendlyName:  user.DisplayName,
		UserPrincipalName: user.Username,
		FileExtension:     filepath.Ext(md.Name),

		ReadOnly:                readOnly,
		UserCanWrite:            !readOnly,
		UserCanRename:           !readOnly,
		UserCanNotWriteRelative: false,

		SupportsLocks:              true,
		SupportsGetLock:            true,
		SupportsExtendedLockLength: true,
		SupportsUpdate:             true,
		SupportsRename:             true,
		SupportsFolders:            true,
		SupportsSecureStore:        true,
		SupportsScenarioLinks:      true,
		SupportsUserInfo:           true,
		SupportsAddActivities:      true,

		SupportedShareUrlTypes: []string{shareURLTypeReadOnly, shareURLTypeReadWrite},

		BreadcrumbBrandName: s.conf.BrandName,
		BreadcrumbBrandUrl:  s.conf.BrandURL,
		BreadcrumbDocName:   md.Name,

		UserInfo: s.userInfoFor(user.Username),
	}

	if root, err := s.fs.GetRoot(ctx); err == nil {
		info.BreadcrumbFolderName = root.Name
		info.BreadcrumbFolderUrl = s.folderURL(ctx, r, root.Name)
	}

	s.writeJSON(w, r, info)
}
