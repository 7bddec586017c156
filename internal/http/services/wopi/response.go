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
	"net/http"
	"strconv"

	"github.com/cs3org/wopihost/pkg/appctx"
	"github.com/cs3org/wopihost/pkg/errtypes"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// serverVersion is advertised in X-WOPI-ServerVersion on every response.
const serverVersion = "1.0.0"

// Request headers consumed.
const (
	hdrOverride           = "X-WOPI-Override"
	hdrLock               = "X-WOPI-Lock"
	hdrOldLock            = "X-WOPI-OldLock"
	hdrRelativeTarget     = "X-WOPI-RelativeTarget"
	hdrSuggestedTarget    = "X-WOPI-SuggestedTarget"
	hdrOverwriteRelative  = "X-WOPI-OverwriteRelativeTarget"
	hdrSize               = "X-WOPI-Size"
	hdrRequestedName      = "X-WOPI-RequestedName"
	hdrURLType            = "X-WOPI-UrlType"
	hdrRestrictedUseLink  = "X-WOPI-RestrictedUseLink"
	hdrApplicationID      = "X-WOPI-ApplicationId"
	hdrPerfTraceRequested = "X-WOPI-PerfTraceRequested"
)

// Response headers emitted.
const (
	hdrServerVersion         = "X-WOPI-ServerVersion"
	hdrMachineName           = "X-WOPI-MachineName"
	hdrLockFailureReason     = "X-WOPI-LockFailureReason"
	hdrItemVersion           = "X-WOPI-ItemVersion"
	hdrInvalidFileNameError  = "X-WOPI-InvalidFileNameError"
	hdrEnumerationIncomplete = "X-WOPI-EnumerationIncomplete"
	hdrPerfTrace             = "X-WOPI-PerfTrace"
)

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wopihost_requests_total",
		Help: "WOPI requests by route and status code.",
	},
	[]string{"route", "override", "code"},
)

func init() {
	prometheus.MustRegister(requestsTotal)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *svc) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		requestsTotal.WithLabelValues(route, r.Header.Get(hdrOverride), strconv.Itoa(rec.status)).Inc()
	})
}

// addHostHeaders stamps the headers every WOPI response carries.
func (s *svc) addHostHeaders(w http.ResponseWriter) {
	w.Header().Set(hdrServerVersion, serverVersion)
	w.Header().Set(hdrMachineName, s.machine)
}

func (s *svc) writeStatus(w http.ResponseWriter, code int) {
	s.addHostHeaders(w)
	w.WriteHeader(code)
}

func (s *svc) writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	s.addHostHeaders(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appctx.GetLogger(r.Context()).Error().Err(err).Msg("wopi: error writing response body")
	}
}

// writeLockMismatch answers 409. X-WOPI-Lock always carries the lock
// currently held on the file, possibly empty; the optional reason goes
// into X-WOPI-LockFailureReason.
func (s *svc) writeLockMismatch(w http.ResponseWriter, current, reason string) {
	s.addHostHeaders(w)
	w.Header().Set(hdrLock, current)
	if reason != "" {
		w.Header().Set(hdrLockFailureReason, reason)
	}
	w.WriteHeader(http.StatusConflict)
}

// writeError maps the error taxonomy to WOPI status codes. Permission
// denied deliberately collapses into 404 so the host does not reveal
// whether an inaccessible file exists.
func (s *svc) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := appctx.GetLogger(r.Context())
	switch err.(type) {
	case errtypes.IsInvalidCredentials:
		log.Debug().Err(err).Msg("wopi: invalid token")
		s.writeStatus(w, http.StatusUnauthorized)
	case errtypes.IsNotFound, errtypes.IsPermissionDenied:
		log.Debug().Err(err).Msg("wopi: file unknown")
		s.writeStatus(w, http.StatusNotFound)
	case errtypes.IsBadRequest:
		log.Debug().Err(err).Msg("wopi: bad request")
		s.writeStatus(w, http.StatusBadRequest)
	case errtypes.IsNotSupported:
		log.Debug().Err(err).Msg("wopi: unsupported")
		s.writeStatus(w, http.StatusNotImplemented)
	default:
		log.Error().Err(err).Msg("wopi: internal error")
		s.writeStatus(w, http.StatusInternalServerError)
	}
}
