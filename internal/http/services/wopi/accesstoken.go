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
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/cs3org/wopihost/pkg/appctx"
	"github.com/cs3org/wopihost/pkg/errtypes"
	"github.com/cs3org/wopihost/pkg/token"
)

// baseURL reconstructs the external authority of the request.
func (s *svc) baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}

// fileURL builds the WOPI src URL for a document, minting a fresh
// access token bound to it.
func (s *svc) fileURL(ctx context.Context, r *http.Request, name string, user token.User, perm token.Permission) (string, error) {
	tkn, err := s.tokens.MintToken(ctx, &token.Scope{
		User:       user,
		FileID:     strings.ToLower(name),
		Permission: perm,
	})
	if err != nil {
		return "", err
	}
	return s.baseURL(r) + "/" + s.conf.Prefix + "/files/" + url.PathEscape(name) +
		"?" + token.QueryParam + "=" + url.QueryEscape(tkn), nil
}

// folderURL builds the WOPI URL of a folder with a read token bound to
// its name. Errors degrade to an empty URL.
func (s *svc) folderURL(ctx context.Context, r *http.Request, name string) string {
	tkn, err := s.tokens.MintToken(ctx, &token.Scope{
		User:       token.User{ID: s.conf.OwnerID, Username: s.conf.OwnerID},
		FileID:     strings.ToLower(name),
		Permission: token.PermissionRead,
	})
	if err != nil {
		appctx.GetLogger(ctx).Debug().Err(err).Msg("wopi: error minting folder token")
		return ""
	}
	return s.baseURL(r) + "/" + s.conf.Prefix + "/folders/" + url.PathEscape(name) +
		"?" + token.QueryParam + "=" + url.QueryEscape(tkn)
}

// handleMintToken hands out access tokens for wiring an editor against
// this host. The permission comes from the per-user table, capped by an
// explicit permission parameter when narrower.
func (s *svc) handleMintToken(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	user := q.Get("user")
	id := q.Get("fileid")
	if user == "" || id == "" {
		s.writeError(w, r, errtypes.BadRequest("user and fileid are required"))
		return
	}

	perm := s.permissionFor(user)
	if p := token.Permission(q.Get("permission")); p != "" {
		if !p.Valid() {
			s.writeError(w, r, errtypes.BadRequest("unknown permission"))
			return
		}
		if perm == token.PermissionWrite || p == token.PermissionNone {
			perm = p
		}
	}

	tkn, err := s.tokens.MintToken(r.Context(), &token.Scope{
		User:       token.User{ID: user, Username: user, DisplayName: user},
		FileID:     strings.ToLower(id),
		Permission: perm,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, struct {
		AccessToken string `json:"AccessToken"`
		Permission  string `json:"Permission"`
	}{AccessToken: tkn, Permission: string(perm)})
}
