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

package rhttp

import (
	"net/http"
	"time"

	"github.com/cs3org/wopihost/pkg/appctx"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// traceMiddleware assigns each request a trace id, honoring one already
// set by a reverse proxy, and stores a request-scoped logger in the
// context.
func traceMiddleware(log zerolog.Logger, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trace := r.Header.Get("X-Request-Id")
		if trace == "" {
			trace = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", trace)

		sub := log.With().Str("traceid", trace).Logger()
		ctx := appctx.WithLogger(r.Context(), &sub)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder remembers the status code written to the client.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logMiddleware writes one access-log line per request.
func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)

		log := appctx.GetLogger(r.Context())
		var ev *zerolog.Event
		if rec.status >= http.StatusInternalServerError {
			ev = log.Error()
		} else {
			ev = log.Info()
		}
		ev.Str("method", r.Method).
			Str("uri", r.RequestURI).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http")
	})
}
