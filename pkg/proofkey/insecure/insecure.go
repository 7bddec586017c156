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

// Package insecure provides a proof-key validator that accepts every
// request. It is the default so that development setups work without a
// client discovery document. Do not use in production.
package insecure

import (
	"net/http"

	"github.com/cs3org/wopihost/pkg/proofkey"
	"github.com/cs3org/wopihost/pkg/proofkey/registry"
)

func init() {
	registry.Register("insecure", New)
}

// New returns a validator that never rejects.
func New(m map[string]interface{}) (proofkey.Validator, error) {
	return &validator{}, nil
}

type validator struct{}

func (v *validator) Verify(r *http.Request) error {
	return nil
}
