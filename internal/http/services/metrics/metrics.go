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

// Package metrics exposes the Prometheus metrics endpoint.
package metrics

import (
	"context"
	"net/http"

	"github.com/cs3org/wopihost/pkg/rhttp/global"
	"github.com/cs3org/wopihost/pkg/utils/cfg"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	global.Register("metrics", New)
}

type config struct {
	Prefix string `mapstructure:"prefix"`
}

func (c *config) ApplyDefaults() {
	if c.Prefix == "" {
		c.Prefix = "metrics"
	}
}

// New returns a new metrics service.
func New(ctx context.Context, m map[string]interface{}) (global.Service, error) {
	var c config
	if err := cfg.Decode(m, &c); err != nil {
		return nil, err
	}
	return &svc{conf: &c, h: promhttp.Handler()}, nil
}

type svc struct {
	conf *config
	h    http.Handler
}

func (s *svc) Prefix() string {
	return s.conf.Prefix
}

func (s *svc) Handler() http.Handler {
	return s.h
}

// Close performs cleanup.
func (s *svc) Close() error {
	return nil
}
