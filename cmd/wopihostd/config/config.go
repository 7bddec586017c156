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

// Package config loads the daemon configuration file and layers
// WOPIHOST_* environment variables on top of it, so any leaf value can
// be overridden without touching the file (WOPIHOST_LOG_LEVEL overrides
// log.level, and so on).
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the parsed daemon configuration.
type Config struct {
	v *viper.Viper
}

// Load reads the given configuration file.
func Load(fn string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(fn)
	v.SetEnvPrefix("wopihost")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "config: error reading %s", fn)
	}
	return &Config{v: v}, nil
}

// Section returns the configuration map under the given key with
// environment overrides applied to every leaf.
func (c *Config) Section(key string) map[string]interface{} {
	m := c.v.GetStringMap(key)
	c.applyEnv(key, m)
	return m
}

// Services returns the per-service sections under the given key, shaped
// the way the service registry consumes them. A bare section with no
// settings yields an empty map.
func (c *Config) Services(key string) map[string]map[string]interface{} {
	services := map[string]map[string]interface{}{}
	for name, val := range c.Section(key) {
		sc, ok := val.(map[string]interface{})
		if !ok {
			sc = map[string]interface{}{}
		}
		services[name] = sc
	}
	return services
}

func (c *Config) applyEnv(prefix string, m map[string]interface{}) {
	for k, val := range m {
		if sub, ok := val.(map[string]interface{}); ok {
			c.applyEnv(prefix+"."+k, sub)
			continue
		}
		m[k] = c.v.Get(prefix + "." + k)
	}
}
