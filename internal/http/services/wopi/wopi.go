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

// Package wopi implements a WOPI host: the HTTP surface Office
// Online-class editors talk to in order to view and edit documents
// stored on this server.
//
// The protocol carries almost all of its semantics in X-WOPI-* headers
// and narrow status codes. Routes follow MS-WOPI:
//
//	/files/{id}            CheckFileInfo (GET), header-dispatched ops (POST)
//	/files/{id}/contents   GetFile (GET), PutFile (POST)
//	/files/{id}/ancestry   EnumerateAncestors (GET)
//	/folders/{id}          CheckFolderInfo (GET)
//	/folders/{id}/children EnumerateChildren (GET)
package wopi

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/cs3org/wopihost/pkg/appctx"
	"github.com/cs3org/wopihost/pkg/errtypes"
	"github.com/cs3org/wopihost/pkg/lock"
	"github.com/cs3org/wopihost/pkg/proofkey"
	proofregistry "github.com/cs3org/wopihost/pkg/proofkey/registry"
	"github.com/cs3org/wopihost/pkg/rhttp/global"
	"github.com/cs3org/wopihost/pkg/storage"
	storageregistry "github.com/cs3org/wopihost/pkg/storage/fs/registry"
	"github.com/cs3org/wopihost/pkg/token"
	tokenregistry "github.com/cs3org/wopihost/pkg/token/manager/registry"
	"github.com/cs3org/wopihost/pkg/utils/cfg"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

func init() {
	global.Register("wopi", New)
}

type config struct {
	Prefix string `mapstructure:"prefix"`

	Driver  string                            `mapstructure:"driver"`
	Drivers map[string]map[string]interface{} `mapstructure:"drivers"`
	// StorageRoot is a shorthand for drivers.local.root, the single
	// required value for the default setup.
	StorageRoot string `mapstructure:"storage_root"`

	TokenManager  string                            `mapstructure:"token_manager"`
	TokenManagers map[string]map[string]interface{} `mapstructure:"token_managers"`
	// JWTSecret is a shorthand for token_managers.jwt.secret.
	JWTSecret string `mapstructure:"jwt_secret"`

	ProofValidator  string                            `mapstructure:"proof_validator"`
	ProofValidators map[string]map[string]interface{} `mapstructure:"proof_validators"`

	OwnerID   string `mapstructure:"owner_id"`
	BrandName string `mapstructure:"brand_name"`
	BrandURL  string `mapstructure:"brand_url"`

	// Users maps user names to their permission (none, read, write)
	// used when minting tokens; DefaultPermission applies to everybody
	// else.
	Users             map[string]string `mapstructure:"users"`
	DefaultPermission string            `mapstructure:"default_permission"`
}

func (c *config) ApplyDefaults() {
	if c.Prefix == "" {
		c.Prefix = "wopi"
	}
	if c.Driver == "" {
		c.Driver = "local"
	}
	if c.TokenManager == "" {
		c.TokenManager = "jwt"
	}
	if c.ProofValidator == "" {
		c.ProofValidator = "insecure"
	}
	if c.OwnerID == "" {
		c.OwnerID = "admin"
	}
	if c.BrandName == "" {
		c.BrandName = "WOPI Host"
	}
	if c.DefaultPermission == "" {
		c.DefaultPermission = string(token.PermissionWrite)
	}

	if c.Drivers == nil {
		c.Drivers = map[string]map[string]interface{}{}
	}
	if c.StorageRoot != "" {
		if c.Drivers["local"] == nil {
			c.Drivers["local"] = map[string]interface{}{}
		}
		c.Drivers["local"]["root"] = c.StorageRoot
	}

	if c.TokenManagers == nil {
		c.TokenManagers = map[string]map[string]interface{}{}
	}
	if c.JWTSecret != "" {
		if c.TokenManagers["jwt"] == nil {
			c.TokenManagers["jwt"] = map[string]interface{}{}
		}
		c.TokenManagers["jwt"]["secret"] = c.JWTSecret
	}
}

// New returns a new wopi service.
func New(ctx context.Context, m map[string]interface{}) (global.Service, error) {
	var c config
	if err := cfg.Decode(m, &c); err != nil {
		return nil, err
	}

	fs, err := getStorage(&c)
	if err != nil {
		return nil, err
	}
	tokens, err := getTokenManager(&c)
	if err != nil {
		return nil, err
	}
	proof, err := getProofValidator(&c)
	if err != nil {
		return nil, err
	}

	machine, err := os.Hostname()
	if err != nil {
		machine = "localhost"
	}

	s := &svc{
		conf:     &c,
		fs:       fs,
		tokens:   tokens,
		proof:    proof,
		locks:    lock.NewTable(),
		machine:  machine,
		userInfo: map[string]string{},
		revoked:  map[string]struct{}{},
	}
	s.routerInit()
	return s, nil
}

func getStorage(c *config) (storage.FS, error) {
	f, ok := storageregistry.NewFuncs[c.Driver]
	if !ok {
		return nil, errors.Errorf("wopi: storage driver %q not found", c.Driver)
	}
	return f(c.Drivers[c.Driver])
}

func getTokenManager(c *config) (token.Manager, error) {
	f, ok := tokenregistry.NewFuncs[c.TokenManager]
	if !ok {
		return nil, errors.Errorf("wopi: token manager %q not found", c.TokenManager)
	}
	return f(c.TokenManagers[c.TokenManager])
}

func getProofValidator(c *config) (proofkey.Validator, error) {
	f, ok := proofregistry.NewFuncs[c.ProofValidator]
	if !ok {
		return nil, errors.Errorf("wopi: proof validator %q not found", c.ProofValidator)
	}
	return f(c.ProofValidators[c.ProofValidator])
}

type svc struct {
	conf    *config
	router  chi.Router
	fs      storage.FS
	tokens  token.Manager
	proof   proofkey.Validator
	locks   *lock.Table
	machine string

	// userInfo holds the opaque per-user blob stored via PutUserInfo,
	// surfaced again in CheckFileInfo. Keyed by user name.
	userInfoMu sync.Mutex
	userInfo   map[string]string

	// revoked holds the file ids whose restricted link was revoked.
	revokedMu sync.Mutex
	revoked   map[string]struct{}
}

// Prefix returns the path prefix the service is mounted under.
func (s *svc) Prefix() string {
	return s.conf.Prefix
}

// Close performs cleanup.
func (s *svc) Close() error {
	return nil
}

// Handler runs the proof-key origin check, then dispatches to the router.
func (s *svc) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.proof.Verify(r); err != nil {
			log := appctx.GetLogger(r.Context())
			log.Error().Err(err).Msg("wopi: proof-key validation failed")
			s.writeStatus(w, http.StatusInternalServerError)
			return
		}
		s.router.ServeHTTP(w, r)
	})
}

func (s *svc) routerInit() {
	r := chi.NewRouter()
	r.Use(s.metricsMiddleware)

	r.Get("/accesstoken", s.handleMintToken)

	r.Route("/files/{fileid}", func(r chi.Router) {
		r.Get("/", s.handleCheckFileInfo)
		r.Post("/", s.handleFileOverride)
		r.Get("/contents", s.handleGetFile)
		r.Post("/contents", s.handlePutFile)
		r.Get("/ancestry", s.handleEnumerateAncestors)
	})
	r.Route("/folders/{folderid}", func(r chi.Router) {
		r.Get("/", s.handleCheckFolderInfo)
		r.Get("/children", s.handleEnumerateChildren)
	})

	s.router = r
}

// checkAccess validates the access token carried in the request and
// checks it grants enough access to the given id. All failures collapse
// into an invalid-credentials error so callers answer 401 uniformly.
func (s *svc) checkAccess(ctx context.Context, r *http.Request, id string, write bool) (*token.Scope, error) {
	tkn := r.URL.Query().Get(token.QueryParam)
	if tkn == "" {
		return nil, errtypes.InvalidCredentials("missing access token")
	}
	scope, err := s.tokens.DismantleToken(ctx, tkn)
	if err != nil {
		return nil, errtypes.InvalidCredentials(err.Error())
	}
	if !strings.EqualFold(scope.FileID, id) {
		return nil, errtypes.InvalidCredentials("token not bound to " + id)
	}
	if !scope.Permission.Grants(write) {
		return nil, errtypes.InvalidCredentials("insufficient permission")
	}
	return scope, nil
}

// statFile confirms the file exists; absent files answer 404.
func (s *svc) statFile(ctx context.Context, id string) (*storage.MD, error) {
	md, err := s.fs.GetMD(ctx, id)
	if err != nil {
		return nil, err
	}
	return md, nil
}

// permissionFor resolves the permission the host mints into tokens for
// the given user.
func (s *svc) permissionFor(user string) token.Permission {
	if p, ok := s.conf.Users[user]; ok {
		return token.Permission(p)
	}
	return token.Permission(s.conf.DefaultPermission)
}

// userInfoFor returns the stored opaque user-info blob, if any.
func (s *svc) userInfoFor(user string) string {
	s.userInfoMu.Lock()
	defer s.userInfoMu.Unlock()
	return s.userInfo[user]
}

func (s *svc) setUserInfo(user, info string) {
	s.userInfoMu.Lock()
	defer s.userInfoMu.Unlock()
	s.userInfo[user] = info
}

func (s *svc) isRevoked(id string) bool {
	s.revokedMu.Lock()
	defer s.revokedMu.Unlock()
	_, ok := s.revoked[id]
	return ok
}

func (s *svc) revoke(id string) {
	s.revokedMu.Lock()
	defer s.revokedMu.Unlock()
	s.revoked[id] = struct{}{}
}
