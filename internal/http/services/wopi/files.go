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
	"encoding/json"
	"io"
	"net/http"

	"github.com/cs3org/wopihost/pkg/appctx"
	"github.com/cs3org/wopihost/pkg/errtypes"
	"github.com/cs3org/wopihost/pkg/token"
)

const (
	shareURLTypeReadOnly  = "ReadOnly"
	shareURLTypeReadWrite = "ReadWrite"

	// restrictedUseLinkForms is the only restricted-link flavor the
	// host understands.
	restrictedUseLinkForms = "FORMS"

	// maxUserInfoLen caps the opaque user-info blob; larger bodies are
	// rejected, not truncated.
	maxUserInfoLen = 1 << 20
)

// writeRequired lists the override operations that need write access.
var writeRequired = map[operation]bool{
	opLock:            true,
	opUnlock:          true,
	opRefreshLock:     true,
	opUnlockAndRelock: true,
	opPutRelativeFile: true,
	opDeleteFile:      true,
	opRenameFile:      true,
}

// handleFileOverride dispatches POST /files/{id} on the X-WOPI-Override
// header. Every operation passes the access gate and the existence
// check before executing.
func (s *svc) handleFileOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := fileID(r)

	op := parseOverride(r.Header)
	if op == opNone {
		appctx.GetLogger(ctx).Error().Str("override", r.Header.Get(hdrOverride)).Msg("wopi: unknown override operation")
		s.writeStatus(w, http.StatusInternalServerError)
		return
	}

	scope, err := s.checkAccess(ctx, r, id, writeRequired[op])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.statFile(ctx, id); err != nil {
		s.writeError(w, r, err)
		return
	}

	switch op {
	case opLock:
		s.handleLock(w, r, id)
	case opUnlock:
		s.handleUnlock(w, r, id)
	case opRefreshLock:
		s.handleRefreshLock(w, r, id)
	case opUnlockAndRelock:
		s.handleUnlockAndRelock(w, r, id)
	case opGetLock:
		s.handleGetLock(w, r, id)
	case opPutRelativeFile:
		s.handlePutRelativeFile(w, r, id, scope)
	case opDeleteFile:
		s.handleDeleteFile(w, r, id)
	case opRenameFile:
		s.handleRenameFile(w, r, id)
	case opGetShareURL:
		s.handleGetShareURL(w, r, id, scope)
	case opPutUserInfo:
		s.handlePutUserInfo(w, r, scope)
	case opGetRestrictedLink:
		s.handleGetRestrictedLink(w, r, id)
	case opRevokeRestrictedLink:
		s.handleRevokeRestrictedLink(w, r, id)
	case opReadSecureStore:
		s.handleReadSecureStore(w, r)
	case opAddActivities:
		s.handleAddActivities(w, r)
	case opExecuteCobalt:
		// cobalt (incremental editing) is not implemented
		s.writeStatus(w, http.StatusNotImplemented)
	default:
		s.writeStatus(w, http.StatusInternalServerError)
	}
}

// DeleteFile removes the document unless somebody holds a lock on it.
func (s *svc) handleDeleteFile(w http.ResponseWriter, r *http.Request, id string) {
	if lck, held := s.locks.Get(id); held {
		s.writeLockMismatch(w, lck, "")
		return
	}
	if err := s.fs.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeStatus(w, http.StatusOK)
}

// RenameFile gives the document a new name. A name collision answers
// 400 with X-WOPI-InvalidFileNameError.
func (s *svc) handleRenameFile(w http.ResponseWriter, r *http.Request, id string) {
	if res := s.locks.Check(id, r.Header.Get(hdrLock)); !res.OK {
		s.writeLockMismatch(w, res.Lock, "")
		return
	}

	requested := decodeHeader(r.Header, hdrRequestedName)
	final, err := s.fs.Rename(r.Context(), id, requested)
	if err != nil {
		switch err.(type) {
		case errtypes.IsAlreadyExists, errtypes.IsBadRequest:
			s.addHostHeaders(w)
			w.Header().Set(hdrInvalidFileNameError, err.Error())
			w.WriteHeader(http.StatusBadRequest)
		default:
			s.writeError(w, r, err)
		}
		return
	}

	s.writeJSON(w, r, struct {
		Name string `json:"Name"`
	}{Name: final})
}

// GetShareUrl returns a sharing URL of the requested type, carrying a
// token minted with the matching permission.
func (s *svc) handleGetShareURL(w http.ResponseWriter, r *http.Request, id string, scope *token.Scope) {
	var perm token.Permission
	switch r.Header.Get(hdrURLType) {
	case shareURLTypeReadOnly:
		perm = token.PermissionRead
	case shareURLTypeReadWrite:
		perm = token.PermissionWrite
	default:
		s.writeStatus(w, http.StatusNotImplemented)
		return
	}

	u, err := s.fileURL(r.Context(), r, id, scope.User, perm)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, struct {
		ShareUrl string `json:"ShareUrl"`
	}{ShareUrl: u})
}

// PutUserInfo stores the request body verbatim for the token's user.
func (s *svc) handlePutUserInfo(w http.ResponseWriter, r *http.Request, scope *token.Scope) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUserInfoLen+1))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(body) > maxUserInfoLen {
		s.writeError(w, r, errtypes.BadRequest("user info exceeds the size limit"))
		return
	}
	s.setUserInfo(scope.User.Username, string(body))
	s.writeStatus(w, http.StatusOK)
}

// GetRestrictedLink answers a forms-only link for the document, or an
// empty one once the link has been revoked.
func (s *svc) handleGetRestrictedLink(w http.ResponseWriter, r *http.Request, id string) {
	if r.Header.Get(hdrRestrictedUseLink) != restrictedUseLinkForms {
		s.writeStatus(w, http.StatusNotImplemented)
		return
	}
	link := ""
	if !s.isRevoked(id) {
		link = "http://officeserver4/restricted/" + id
	}
	s.addHostHeaders(w)
	w.Header().Set(hdrRestrictedUseLink, link)
	w.WriteHeader(http.StatusOK)
}

// RevokeRestrictedLink marks the document's restricted link as revoked.
// Revoking twice is fine.
func (s *svc) handleRevokeRestrictedLink(w http.ResponseWriter, r *http.Request, id string) {
	if r.Header.Get(hdrRestrictedUseLink) != restrictedUseLinkForms {
		s.writeStatus(w, http.StatusNotImplemented)
		return
	}
	s.revoke(id)
	s.writeStatus(w, http.StatusOK)
}

// ReadSecureStore hands out the placeholder credential set used by
// test suites exercising the secure-store scenario.
func (s *svc) handleReadSecureStore(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(hdrApplicationID) == "" {
		s.writeStatus(w, http.StatusNotImplemented)
		return
	}
	if truthy(r.Header.Get(hdrPerfTraceRequested)) {
		w.Header().Set(hdrPerfTrace, "WOPI perf trace enabled")
	}
	s.writeJSON(w, r, struct {
		UserName             string `json:"UserName"`
		Password             string `json:"Password"`
		IsWindowsCredentials bool   `json:"IsWindowsCredentials"`
		IsGroup              bool   `json:"IsGroup"`
	}{
		UserName: "WopiTestUser",
		Password: "WopiTestPassword",
	})
}

type activity struct {
	Type      string `json:"Type"`
	Id        string `json:"Id"`
	Timestamp string `json:"Timestamp"`
	Data      struct {
		ContentId     string `json:"ContentId"`
		ContentAction string `json:"ContentAction"`
	} `json:"Data"`
}

type activityResponse struct {
	Id      string `json:"Id"`
	Status  int    `json:"Status"`
	Message string `json:"Message"`
}

// AddActivities acknowledges every submitted activity in order.
func (s *svc) handleAddActivities(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Activities []activity `json:"Activities"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, errtypes.BadRequest("malformed activities payload"))
		return
	}

	resps := make([]activityResponse, 0, len(req.Activities))
	for _, a := range req.Activities {
		resps = append(resps, activityResponse{Id: a.Id})
	}
	s.writeJSON(w, r, struct {
		ActivityResponses []activityResponse `json:"ActivityResponses"`
	}{ActivityResponses: resps})
}
