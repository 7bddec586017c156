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

// Package token defines the WOPI access token manager.
//
// A WOPI access token is an opaque credential carried in the
// access_token query parameter of every request an editor makes. The
// host mints it bound to a (user, file id, permission) triple; the file
// binding prevents a token handed out for one document from being
// replayed against another.
package token

import (
	"context"
)

// QueryParam is the query parameter WOPI clients use to forward the
// access token.
const QueryParam = "access_token"

// Permission is the access level a token grants on its bound file.
type Permission string

const (
	// PermissionNone grants no access.
	PermissionNone Permission = "none"
	// PermissionRead grants read-only access.
	PermissionRead Permission = "read"
	// PermissionWrite grants read and write access.
	PermissionWrite Permission = "write"
)

// Valid reports whether p is one of the known permission levels.
func (p Permission) Valid() bool {
	switch p {
	case PermissionNone, PermissionRead, PermissionWrite:
		return true
	}
	return false
}

// Grants reports whether p satisfies a request. Write access requires
// PermissionWrite, read access is satisfied by read or write.
func (p Permission) Grants(write bool) bool {
	switch p {
	case PermissionWrite:
		return true
	case PermissionRead:
		return !write
	}
	return false
}

// User identifies the editor-side user a token was minted for.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

// Scope is the payload bound into an access token.
type Scope struct {
	User       User
	FileID     string
	Permission Permission
}

// Manager is the interface to implement to mint and verify access tokens.
type Manager interface {
	MintToken(ctx context.Context, s *Scope) (string, error)
	DismantleToken(ctx context.Context, tkn string) (*Scope, error)
}
