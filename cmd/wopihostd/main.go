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

// wopihostd is the WOPI host daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cs3org/wopihost/cmd/wopihostd/config"
	_ "github.com/cs3org/wopihost/internal/http/services/loader"
	"github.com/cs3org/wopihost/pkg/appctx"
	"github.com/cs3org/wopihost/pkg/logger"
	"github.com/cs3org/wopihost/pkg/rhttp"
	"github.com/cs3org/wopihost/pkg/utils/cfg"
)

var (
	versionFlag = flag.Bool("version", false, "show version and exit")
	configFlag  = flag.String("c", "/etc/wopihost/wopihost.toml", "set configuration file")

	// Compile time variables initialized with ldflags.
	gitCommit, buildDate, version string
)

type coreConfig struct {
	Address string `mapstructure:"address"`
}

func (c *coreConfig) ApplyDefaults() {
	if c.Address == "" {
		c.Address = "0.0.0.0:9300"
	}
}

type logConfig struct {
	Level string `mapstructure:"level"`
	Mode  string `mapstructure:"mode"`
}

func (c *logConfig) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Mode == "" {
		c.Mode = "dev"
	}
}

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("version=%s commit=%s date=%s\n", version, gitCommit, buildDate)
		os.Exit(0)
	}

	conf, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading config file %s: %v\n", *configFlag, err)
		os.Exit(1)
	}

	var logConf logConfig
	if err := cfg.Decode(conf.Section("log"), &logConf); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing log config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.WithLevel(logConf.Level), logger.WithMode(logConf.Mode))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %v\n", err)
		os.Exit(1)
	}

	var coreConf coreConfig
	if err := cfg.Decode(conf.Section("http"), &coreConf); err != nil {
		log.Fatal().Err(err).Msg("error parsing http config")
	}

	ctx := appctx.WithLogger(context.Background(), log)

	services, err := rhttp.InitServices(ctx, conf.Services("http.services"))
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing http services")
	}

	server, err := rhttp.New(
		rhttp.WithServices(services),
		rhttp.WithLogger(log.With().Str("pkg", "rhttp").Logger()),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating http server")
	}

	ln, err := net.Listen("tcp", coreConf.Address)
	if err != nil {
		log.Fatal().Err(err).Str("addr", coreConf.Address).Msg("error listening")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ln)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("http server exited")
		}
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.GracefulStop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error during shutdown")
		}
	}
}
