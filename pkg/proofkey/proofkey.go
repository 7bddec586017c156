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

// Package proofkey defines the WOPI proof-key request validator.
//
// WOPI clients sign every request with a key pair they publish through
// their discovery document; a host verifies the X-WOPI-Proof headers to
// ensure the request really originates from the client it trusts.
// Production deployments must configure a verifying driver, the default
// driver accepts everything.
package proofkey

import "net/http"

// Validator checks the origin of an inbound WOPI request.
type Validator interface {
	// Verify returns a non-nil error if the request fails the
	// proof-key check. The request must not be consumed.
	Verify(r *http.Request) error
}
