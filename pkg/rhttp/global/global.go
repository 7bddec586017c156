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

// Package global keeps the registry of HTTP services the daemon can host.
package global

import (
	"context"
	"net/http"
)

// Service is an HTTP service mounted under its prefix.
type Service interface {
	Handler() http.Handler
	Prefix() string
	Close() error
}

// NewFunc is the function HTTP services register at init time.
type NewFunc func(ctx context.Context, m map[string]interface{}) (Service, error)

// Services is a map of registered HTTP services.
var Services = map[string]NewFunc{}

// Register registers a new HTTP service with name and new function.
// Not safe for concurrent use. Safe for use from package init.
func Register(name string, f NewFunc) {
	Services[name] = f
}
