/*
 * Copyright 2026 Enigma Bridge Ltd.
 *
 * This file is part of the EnigmaBridge Go client.
 *
 * Licensed under the Apache License, Version 2.0 (the "License").
 * You may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES, CONDITIONS, OR OTHER LICENSES OF ANY KIND, either
 * express or implied. See the License for the specific language governing
 * permissions and limitations under the License.
 */

// Package config holds the client configuration: the service endpoint, the retry policy and the user object
// used for the process data calls.
//
// Configuration files are TOML (.toml) or YAML (.yaml, .yml). Keys missing from the file keep the values of
// DefaultConfig().
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/enigmabridge/goeb/cbc"
	"github.com/enigmabridge/goeb/codec"
	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/log"
	"github.com/enigmabridge/goeb/net"
	"github.com/enigmabridge/goeb/pdu"
	"github.com/enigmabridge/goeb/retry"
)

// Config is the client configuration.
type Config struct {
	// Endpoint is the service base URI, eg. https://site2.enigmabridge.com:11180.
	Endpoint   string
	APIKey     string
	APIVersion string
	// RequestTimeout of a single HTTP request.
	RequestTimeout time.Duration
	Retry          Retry
	UO             UserObject
	// LogLevel is one of the log.Priority names, eg. "DEBUG" or "NONE".
	LogLevel string
}

// Retry is the retry policy of the service calls.
type Retry struct {
	StartInterval time.Duration
	MaxInterval   time.Duration
	// MaxAttempts of -1 retries forever.
	MaxAttempts int
}

// UserObject describes the user object the process data calls are made with.
type UserObject struct {
	ID uint32
	// Type is the request type, see pdu.RequestType.
	Type   string
	AESKey string
	MACKey string
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() Config {
	return Config{
		APIVersion:     "1.0",
		RequestTimeout: net.DefaultRequestTimeout,
		Retry: Retry{
			StartInterval: retry.DefaultStartInterval,
			MaxInterval:   retry.DefaultMaxInterval,
			MaxAttempts:   retry.DefaultMaxAttempts,
		},
		UO: UserObject{
			Type: string(pdu.TypePlainAES),
		},
		LogLevel: "NONE",
	}
}

type fileConfig struct {
	Endpoint       string          `toml:"endpoint" yaml:"endpoint"`
	APIKey         string          `toml:"api_key" yaml:"api_key"`
	APIVersion     string          `toml:"api_version" yaml:"api_version"`
	RequestTimeout string          `toml:"request_timeout" yaml:"request_timeout"`
	LogLevel       string          `toml:"log_level" yaml:"log_level"`
	Retry          *fileRetry      `toml:"retry" yaml:"retry"`
	UO             *fileUserObject `toml:"uo" yaml:"uo"`
}

type fileRetry struct {
	StartInterval string `toml:"start_interval" yaml:"start_interval"`
	MaxInterval   string `toml:"max_interval" yaml:"max_interval"`
	MaxAttempts   *int   `toml:"max_attempts" yaml:"max_attempts"`
}

type fileUserObject struct {
	ID     string `toml:"id" yaml:"id"`
	Type   string `toml:"type" yaml:"type"`
	AESKey string `toml:"aes_key" yaml:"aes_key"`
	MACKey string `toml:"mac_key" yaml:"mac_key"`
}

// Load reads and validates the configuration file. The format is selected by the file extension.
func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.New(errors.EbConfigError).SetExtError(err).AppendMessage("Unable to read config.")
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		cfg, err = ParseTOML(content)
	case ".yaml", ".yml":
		cfg, err = ParseYAML(content)
	default:
		return Config{}, errors.New(errors.EbConfigError).AppendMessage(fmt.Sprintf("Unsupported config format: %q.", ext))
	}
	if err != nil {
		return Config{}, errors.EbErr(err).AppendMessage(fmt.Sprintf("Unable to load config %s.", path))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	log.Debug(fmt.Sprintf("Config loaded: %s", path))
	return cfg, nil
}

// ParseTOML overlays the TOML document onto the defaults. Validation is left to the caller.
func ParseTOML(content []byte) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(string(content), &raw)
	if err != nil {
		return Config{}, errors.New(errors.EbConfigError).SetExtError(err).AppendMessage("Invalid TOML config.")
	}
	if undecoded := meta.Undecoded(); len(undecoded) != 0 {
		return Config{}, errors.New(errors.EbConfigError).AppendMessage(fmt.Sprintf("Unknown config key: %s.", undecoded[0]))
	}

	defined := func(key ...string) bool { return meta.IsDefined(key...) }
	return raw.overlay(DefaultConfig(), defined)
}

// ParseYAML overlays the YAML document onto the defaults. Validation is left to the caller.
func ParseYAML(content []byte) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var raw fileConfig
	if err := dec.Decode(&raw); err != nil {
		return Config{}, errors.New(errors.EbConfigError).SetExtError(err).AppendMessage("Invalid YAML config.")
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return Config{}, errors.New(errors.EbConfigError).SetExtError(err).AppendMessage("Invalid YAML config.")
	}
	defined := func(key ...string) bool {
		var cur interface{} = doc
		for _, k := range key {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return false
			}
			if cur, ok = m[k]; !ok {
				return false
			}
		}
		return true
	}
	return raw.overlay(DefaultConfig(), defined)
}

func (raw *fileConfig) overlay(cfg Config, defined func(key ...string) bool) (Config, error) {
	var err error
	if defined("endpoint") {
		cfg.Endpoint = strings.TrimSpace(raw.Endpoint)
	}
	if defined("api_key") {
		cfg.APIKey = strings.TrimSpace(raw.APIKey)
	}
	if defined("api_version") {
		cfg.APIVersion = strings.TrimSpace(raw.APIVersion)
	}
	if defined("request_timeout") {
		if cfg.RequestTimeout, err = parseDuration("request_timeout", raw.RequestTimeout); err != nil {
			return Config{}, err
		}
	}
	if defined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if r := raw.Retry; r != nil {
		if defined("retry", "start_interval") {
			if cfg.Retry.StartInterval, err = parseDuration("retry.start_interval", r.StartInterval); err != nil {
				return Config{}, err
			}
		}
		if defined("retry", "max_interval") {
			if cfg.Retry.MaxInterval, err = parseDuration("retry.max_interval", r.MaxInterval); err != nil {
				return Config{}, err
			}
		}
		if defined("retry", "max_attempts") && r.MaxAttempts != nil {
			cfg.Retry.MaxAttempts = *r.MaxAttempts
		}
	}

	if uo := raw.UO; uo != nil {
		if defined("uo", "id") {
			id, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(uo.ID), "0x"), 16, 32)
			if err != nil {
				return Config{}, errors.New(errors.EbConfigError).SetExtError(err).
					AppendMessage(fmt.Sprintf("Invalid uo.id: %q.", uo.ID))
			}
			cfg.UO.ID = uint32(id)
		}
		if defined("uo", "type") {
			cfg.UO.Type = strings.TrimSpace(uo.Type)
		}
		if defined("uo", "aes_key") {
			cfg.UO.AESKey = strings.TrimSpace(uo.AESKey)
		}
		if defined("uo", "mac_key") {
			cfg.UO.MACKey = strings.TrimSpace(uo.MACKey)
		}
	}
	return cfg, nil
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.New(errors.EbConfigError).SetExtError(err).AppendMessage(fmt.Sprintf("Invalid %s: %q.", key, s))
	}
	if d < 0 {
		return 0, errors.New(errors.EbConfigError).AppendMessage(fmt.Sprintf("Negative %s.", key))
	}
	return d, nil
}

// Validate checks the configuration values. The user object keys are optional, if set they must be 32 bytes hex.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New(errors.EbInvalidArgumentError)
	}
	if c.Endpoint == "" {
		return errInvalid("endpoint is required")
	}
	if c.APIKey == "" {
		return errInvalid("api_key is required")
	}
	if c.APIVersion == "" {
		return errInvalid("api_version is required")
	}
	if c.Retry.MaxInterval < c.Retry.StartInterval {
		return errInvalid("retry.max_interval is less than retry.start_interval")
	}
	if _, err := log.ParsePriority(c.LogLevel); err != nil {
		return errors.EbErr(err).AppendMessage("Invalid config: log_level.")
	}
	if c.UO.Type != "" {
		if _, err := pdu.ParseRequestType(c.UO.Type); err != nil {
			return errors.EbErr(err).AppendMessage("Invalid config: uo.type.")
		}
	}
	for key, v := range map[string]string{"uo.aes_key": c.UO.AESKey, "uo.mac_key": c.UO.MACKey} {
		if v == "" {
			continue
		}
		if k, err := codec.DecodeHex(v); err != nil || len(k) != cbc.KeySize {
			return errInvalid(fmt.Sprintf("%s must be %d bytes hex", key, cbc.KeySize))
		}
	}
	return nil
}

// Keys returns the decoded user object communication keys.
func (c *Config) Keys() (aesKey, macKey []byte, err error) {
	if c == nil {
		return nil, nil, errors.New(errors.EbInvalidArgumentError)
	}
	if aesKey, err = codec.DecodeHex(c.UO.AESKey); err != nil || len(aesKey) != cbc.KeySize {
		return nil, nil, errInvalid("uo.aes_key is required")
	}
	if macKey, err = codec.DecodeHex(c.UO.MACKey); err != nil || len(macKey) != cbc.KeySize {
		return nil, nil, errInvalid("uo.mac_key is required")
	}
	return aesKey, macKey, nil
}

func errInvalid(msg string) error {
	return errors.New(errors.EbConfigError).AppendMessage("Invalid config: " + msg + ".")
}
