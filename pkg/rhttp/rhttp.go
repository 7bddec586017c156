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

// Package rhttp hosts the registered HTTP services under one listener.
package rhttp

import (
	"context"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cs3org/wopihost/pkg/appctx"
	"github.com/cs3org/wopihost/pkg/rhttp/global"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Option configures the server.
type Option func(*Server)

// WithServices sets the services to host, keyed by name.
func WithServices(services map[string]global.Service) Option {
	return func(s *Server) {
		s.services = services
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// InitServices instantiates the configured services from the registry.
func InitServices(ctx context.Context, services map[string]map[string]interface{}) (map[string]global.Service, error) {
	log := appctx.GetLogger(ctx)
	s := make(map[string]global.Service)
	for name, m := range services {
		newFunc, ok := global.Services[name]
		if !ok {
			return nil, errors.Errorf("rhttp: http service %s does not exist", name)
		}
		svcLog := log.With().Str("service", name).Logger()
		svc, err := newFunc(appctx.WithLogger(ctx, &svcLog), m)
		if err != nil {
			return nil, errors.Wrapf(err, "rhttp: http service %s could not be started", name)
		}
		s[name] = svc
		log.Info().Str("service", name).Str("prefix", svc.Prefix()).Msg("http service enabled")
	}
	return s, nil
}

// New returns a new server hosting the given services.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		log:      zerolog.Nop(),
		services: map[string]global.Service{},
		handlers: map[string]http.Handler{},
	}
	for _, o := range opts {
		o(s)
	}
	for _, svc := range s.services {
		prefix := strings.Trim(svc.Prefix(), "/")
		if _, ok := s.handlers[prefix]; ok {
			return nil, errors.Errorf("rhttp: duplicated prefix %q", prefix)
		}
		s.handlers[prefix] = svc.Handler()
	}
	s.httpServer = &http.Server{
		Handler:           s.getHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Server hosts the registered HTTP services.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	services   map[string]global.Service
	handlers   map[string]http.Handler // key is the service prefix
	log        zerolog.Logger
}

// Start accepts connections on the given listener. It blocks until the
// server stops.
func (s *Server) Start(ln net.Listener) error {
	s.listener = ln
	s.log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
	err := s.httpServer.Serve(s.listener)
	if err == nil || err == http.ErrServerClosed {
		return nil
	}
	return err
}

// GracefulStop drains in-flight requests, then closes the services.
func (s *Server) GracefulStop(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	for name, svc := range s.services {
		if cerr := svc.Close(); cerr != nil {
			s.log.Error().Err(cerr).Str("service", name).Msg("error closing service")
		}
	}
	return err
}

// shiftPath splits off the first path segment: "/a/b/c" -> ("a", "/b/c").
func shiftPath(p string) (head, tail string) {
	p = path.Clean("/" + p)
	i := strings.Index(p[1:], "/") + 1
	if i <= 0 {
		return p[1:], "/"
	}
	return p[1:i], p[i:]
}

func (s *Server) getHandler() http.Handler {
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		head, tail := shiftPath(r.URL.Path)
		h, ok := s.handlers[head]
		if !ok {
			s.log.Debug().Str("path", r.URL.Path).Msg("no service registered for prefix")
			w.WriteHeader(http.StatusNotFound)
			return
		}
		r.URL.Path = tail
		if r.URL.RawPath != "" {
			_, r.URL.RawPath = shiftPath(r.URL.RawPath)
		}
		h.ServeHTTP(w, r)
	})

	chain := traceMiddleware(s.log, logMiddleware(root))
	return cors.AllowAll().Handler(chain)
}
