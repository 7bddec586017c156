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

package jwt

import (
	"context"
	"time"

	"github.com/cs3org/wopihost/pkg/errtypes"
	"github.com/cs3org/wopihost/pkg/token"
	"github.com/cs3org/wopihost/pkg/token/manager/registry"
	"github.com/cs3org/wopihost/pkg/utils/cfg"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const defaultExpiration int64 = 86400 // 1 day, WOPI tokens outlive editing sessions

func init() {
	registry.Register("jwt", New)
}

type config struct {
	Secret  string `mapstructure:"secret" validate:"required"`
	Expires int64  `mapstructure:"expires"`
}

func (c *config) ApplyDefaults() {
	if c.Expires == 0 {
		c.Expires = defaultExpiration
	}
}

// New returns an implementation of the token manager that uses JWT as tokens.
func New(m map[string]interface{}) (token.Manager, error) {
	var c config
	if err := cfg.Decode(m, &c); err != nil {
		return nil, errors.Wrap(err, "jwt: error decoding config")
	}
	return &manager{conf: &c}, nil
}

type manager struct {
	conf *config
}

// claims are the custom claims for the access token.
type claims struct {
	jwt.RegisteredClaims
	User       token.User       `json:"user"`
	FileID     string           `json:"file_id"`
	Permission token.Permission `json:"permission"`
}

func (m *manager) MintToken(ctx context.Context, s *token.Scope) (string, error) {
	ttl := time.Duration(m.conf.Expires) * time.Second
	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Audience:  jwt.ClaimStrings{"wopihost"},
		},
		User:       s.User,
		FileID:     s.FileID,
		Permission: s.Permission,
	}

	t := jwt.NewWithClaims(jwt.GetSigningMethod("HS256"), cl)
	tkn, err := t.SignedString([]byte(m.conf.Secret))
	if err != nil {
		return "", errors.Wrapf(err, "jwt: error signing token for file %s", s.FileID)
	}
	return tkn, nil
}

func (m *manager) DismantleToken(ctx context.Context, tkn string) (*token.Scope, error) {
	t, err := jwt.ParseWithClaims(tkn, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(m.conf.Secret), nil
	})
	if err != nil {
		return nil, errtypes.InvalidCredentials(err.Error())
	}

	cl, ok := t.Claims.(*claims)
	if !ok || !t.Valid {
		return nil, errtypes.InvalidCredentials("token invalid")
	}
	if !cl.Permission.Valid() {
		return nil, errtypes.InvalidCredentials("unknown permission in token")
	}

	return &token.Scope{
		User:       cl.User,
		FileID:     cl.FileID,
		Permission: cl.Permission,
	}, nil
}
