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
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// operation classifies a WOPI request. POST requests to /files/{id}
// carry the actual operation in the X-WOPI-Override header; the parser
// resolves them to a typed value so handlers never compare strings.
type operation int

const (
	opNone operation = iota
	opCheckFileInfo
	opGetFile
	opPutFile
	opLock
	opUnlockAndRelock
	opUnlock
	opRefreshLock
	opGetLock
	opPutRelativeFile
	opDeleteFile
	opRenameFile
	opReadSecureStore
	opGetRestrictedLink
	opRevokeRestrictedLink
	opGetShareURL
	opPutUserInfo
	opAddActivities
	opExecuteCobalt
	opCheckFolderInfo
	opEnumerateChildren
	opEnumerateAncestors
	opMintToken
)

var operationNames = map[operation]string{
	opNone:                 "None",
	opCheckFileInfo:        "CheckFileInfo",
	opGetFile:              "GetFile",
	opPutFile:              "PutFile",
	opLock:                 "Lock",
	opUnlockAndRelock:      "UnlockAndRelock",
	opUnlock:               "Unlock",
	opRefreshLock:          "RefreshLock",
	opGetLock:              "GetLock",
	opPutRelativeFile:      "PutRelativeFile",
	opDeleteFile:           "DeleteFile",
	opRenameFile:           "RenameFile",
	opReadSecureStore:      "ReadSecureStore",
	opGetRestrictedLink:    "GetRestrictedLink",
	opRevokeRestrictedLink: "RevokeRestrictedLink",
	opGetShareURL:          "GetShareUrl",
	opPutUserInfo:          "PutUserInfo",
	opAddActivities:        "AddActivities",
	opExecuteCobalt:        "ExecuteCobaltRequest",
	opCheckFolderInfo:      "CheckFolderInfo",
	opEnumerateChildren:    "EnumerateChildren",
	opEnumerateAncestors:   "EnumerateAncestors",
	opMintToken:            "MintToken",
}

func (o operation) String() string {
	if n, ok := operationNames[o]; ok {
		return n
	}
	return "None"
}

// parseOverride resolves the X-WOPI-Override header of a POST to
// /files/{id}. LOCK doubles as UnlockAndRelock when X-WOPI-OldLock is
// present. Unknown or absent values map to opNone, which answers 500.
func parseOverride(h http.Header) operation {
	switch h.Get(hdrOverride) {
	case "LOCK":
		if h.Get(hdrOldLock) != "" {
			return opUnlockAndRelock
		}
		return opLock
	case "UNLOCK":
		return opUnlock
	case "REFRESH_LOCK":
		return opRefreshLock
	case "GET_LOCK":
		return opGetLock
	case "PUT_RELATIVE":
		return opPutRelativeFile
	case "DELETE":
		return opDeleteFile
	case "RENAME_FILE":
		return opRenameFile
	case "READ_SECURE_STORE":
		return opReadSecureStore
	case "GET_RESTRICTED_LINK":
		return opGetRestrictedLink
	case "REVOKE_RESTRICTED_LINK":
		return opRevokeRestrictedLink
	case "GET_SHARE_URL":
		return opGetShareURL
	case "PUT_USER_INFO":
		return opPutUserInfo
	case "ADD_ACTIVITIES":
		return opAddActivities
	case "COBALT":
		return opExecuteCobalt
	default:
		return opNone
	}
}

// fileID extracts the file id from the URL. WOPI file ids are
// case-insensitive; they normalize to lower case at parse time and
// everything downstream (storage key, lock key, token binding) uses the
// normalized form. Ids are percent-decoded exactly once, so a document
// name containing a literal %xx sequence stays addressable.
func fileID(r *http.Request) string {
	return strings.ToLower(pathSegment(r, "fileid"))
}

// folderID extracts the folder id, preserving its casing. It is
// compared case-insensitively against the storage root downstream.
func folderID(r *http.Request) string {
	return pathSegment(r, "folderid")
}

// pathSegment returns a URL parameter, decoded exactly once. net/http
// stores the decoded path in URL.Path and keeps the raw form in RawPath
// only when the two differ under canonical escaping; chi routes on
// RawPath in that case, handing back a still-encoded segment.
func pathSegment(r *http.Request, key string) string {
	seg := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return seg
	}
	if d, err := url.PathUnescape(seg); err == nil {
		return d
	}
	return seg
}

// decodeHeader percent-decodes a WOPI header value carrying a file name.
func decodeHeader(h http.Header, name string) string {
	v := h.Get(name)
	if d, err := url.QueryUnescape(v); err == nil {
		return d
	}
	return v
}

// truthy interprets WOPI boolean headers.
func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	}
	return false
}
