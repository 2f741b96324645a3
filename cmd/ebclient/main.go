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

// Command ebclient is a command line front end of the EB service client.
//
//	ebclient --config eb.toml process-data 6bc1bee22e409f96e93d7e117393172a
//	ebclient --endpoint https://site2.enigmabridge.com:11180 --api-key TEST_API create-uo --uo-type 4
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/enigmabridge/goeb/codec"
	"github.com/enigmabridge/goeb/config"
	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/log"
	"github.com/enigmabridge/goeb/service"
	"github.com/enigmabridge/goeb/uo"
)

var flagConfig = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "Path to a .toml or .yaml configuration file",
}
var flagEndpoint = &cli.StringFlag{
	Name:  "endpoint",
	Usage: "Service endpoint, eg. https://site2.enigmabridge.com:11180",
}
var flagAPIKey = &cli.StringFlag{
	Name:  "api-key",
	Usage: "Service API key",
}
var flagLogLevel = &cli.StringFlag{
	Name:  "log-level",
	Usage: "Log level: debug, info, notice, warning, error or none",
}
var flagMaxAttempts = &cli.IntFlag{
	Name:  "max-attempts",
	Value: -1,
	Usage: "Maximum number of retries, -1 retries forever",
}
var flagUOID = &cli.StringFlag{
	Name:  "uoid",
	Usage: "User object ID (hex)",
}
var flagReqType = &cli.StringFlag{
	Name:  "type",
	Usage: "Request type: PLAINAES, PLAINAESDECRYPT, RSA1024, RSA2048 or RANDOMDATA",
}
var flagAESKey = &cli.StringFlag{
	Name:  "aes-key",
	Usage: "User object communication encryption key (hex)",
}
var flagMACKey = &cli.StringFlag{
	Name:  "mac-key",
	Usage: "User object communication MAC key (hex)",
}
var flagPlain = &cli.StringFlag{
	Name:  "plain",
	Usage: "Authenticated plain data sent along the input (hex)",
}
var flagUOType = &cli.UintFlag{
	Name:  "uo-type",
	Value: 4,
	Usage: "User object function type",
}
var flagAppKey = &cli.StringFlag{
	Name:  "app-key",
	Usage: "Application key written into the user object (hex), generated by the server if omitted",
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:  "ebclient",
		Usage: "EB service client",
		Flags: []cli.Flag{
			flagConfig,
			flagEndpoint,
			flagAPIKey,
			flagLogLevel,
			flagMaxAttempts,
		},
		Commands: []*cli.Command{
			{
				Name:      "process-data",
				Usage:     "Process the hex input with the user object",
				ArgsUsage: "<hex input>",
				Flags: []cli.Flag{
					flagUOID,
					flagReqType,
					flagAESKey,
					flagMACKey,
					flagPlain,
				},
				Action: func(cCtx *cli.Context) error {
					client, err := newClient(cCtx)
					if err != nil {
						return err
					}
					input, err := codec.DecodeHex(cCtx.Args().First())
					if err != nil {
						return err
					}
					plain, err := codec.DecodeHex(cCtx.String(flagPlain.Name))
					if err != nil {
						return err
					}

					resp, err := client.ProcessData(context.Background(), plain, input)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, hex.EncodeToString(resp.Payload))
					return nil
				},
			},
			{
				Name:  "get-template",
				Usage: "Print the user object template",
				Flags: []cli.Flag{
					flagUOType,
				},
				Action: func(cCtx *cli.Context) error {
					client, err := newClient(cCtx)
					if err != nil {
						return err
					}
					tpl, err := client.GetTemplate(context.Background(),
						service.DefaultTemplateRequest(uint32(cCtx.Uint(flagUOType.Name))))
					if err != nil {
						return err
					}
					return printJSON(out, tpl)
				},
			},
			{
				Name:  "create-uo",
				Usage: "Create a new user object, prints its handle and keys",
				Flags: []cli.Flag{
					flagUOType,
					flagAppKey,
				},
				Action: func(cCtx *cli.Context) error {
					client, err := newClient(cCtx)
					if err != nil {
						return err
					}
					keys := uo.Keys{}
					if s := cCtx.String(flagAppKey.Name); s != "" {
						if keys[uo.KeyApp], err = codec.DecodeHex(s); err != nil {
							return err
						}
					}

					res, err := client.CreateUO(context.Background(),
						service.DefaultTemplateRequest(uint32(cCtx.Uint(flagUOType.Name))), keys)
					if err != nil {
						return err
					}
					hexKeys := make(map[string]string, len(res.Keys))
					for k, v := range res.Keys {
						hexKeys[string(k)] = hex.EncodeToString(v)
					}
					return printJSON(out, map[string]interface{}{
						"handle": res.Handle,
						"uoid":   fmt.Sprintf("%08x", res.UserObjectID),
						"type":   res.Type,
						"keys":   hexKeys,
					})
				},
			},
		},
	}
}

// loadConfig resolves the configuration: the file, if any, overridden by the command line flags.
func loadConfig(cCtx *cli.Context) (config.Config, error) {
	cfg := config.DefaultConfig()
	if path := cCtx.String(flagConfig.Name); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if cCtx.IsSet(flagEndpoint.Name) {
		cfg.Endpoint = cCtx.String(flagEndpoint.Name)
	}
	if cCtx.IsSet(flagAPIKey.Name) {
		cfg.APIKey = cCtx.String(flagAPIKey.Name)
	}
	if cCtx.IsSet(flagLogLevel.Name) {
		cfg.LogLevel = cCtx.String(flagLogLevel.Name)
	}
	if cCtx.IsSet(flagMaxAttempts.Name) {
		cfg.Retry.MaxAttempts = cCtx.Int(flagMaxAttempts.Name)
	}
	if cCtx.IsSet(flagUOID.Name) {
		id, err := strconv.ParseUint(cCtx.String(flagUOID.Name), 16, 32)
		if err != nil {
			return config.Config{}, errors.New(errors.EbConfigError).SetExtError(err).AppendMessage("Invalid user object ID.")
		}
		cfg.UO.ID = uint32(id)
	}
	if cCtx.IsSet(flagReqType.Name) {
		cfg.UO.Type = cCtx.String(flagReqType.Name)
	}
	if cCtx.IsSet(flagAESKey.Name) {
		cfg.UO.AESKey = cCtx.String(flagAESKey.Name)
	}
	if cCtx.IsSet(flagMACKey.Name) {
		cfg.UO.MACKey = cCtx.String(flagMACKey.Name)
	}
	return cfg, cfg.Validate()
}

func newClient(cCtx *cli.Context) (*service.Client, error) {
	cfg, err := loadConfig(cCtx)
	if err != nil {
		return nil, err
	}
	prio, err := log.ParsePriority(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if prio != log.NONE {
		logger, err := log.New(prio, os.Stderr)
		if err != nil {
			return nil, err
		}
		log.SetLogger(logger)
	}
	return service.New(service.OptConfig(cfg), service.OptTrace(prio == log.DEBUG))
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
