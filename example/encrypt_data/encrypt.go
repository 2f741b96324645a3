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

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/enigmabridge/goeb/config"
	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/log"
	"github.com/enigmabridge/goeb/service"
)

type argVal int

const (
	argProgName argVal = iota
	argConfFile
	argInData
	nofArgs
)

func main() {
	// Handle exit code.
	exit := 0
	defer func() { os.Exit(exit) }()

	/* Handle command line parameters. */
	if len(os.Args) != int(nofArgs) {
		fmt.Printf("Usage:\n")
		fmt.Printf("  %s <conf-file> <hex-input>\n", os.Args[argProgName])
		exit = 1
		return
	}

	// Create log file.
	logFile, err := os.Create(strings.Join([]string{filepath.Base(os.Args[argProgName]), "log"}, "."))
	if err != nil {
		fmt.Println("Failed to create log file: ", err)
		exit = 1
		return
	}
	defer logFile.Close()
	// Initialize logger.
	logger, err := log.New(log.DEBUG, logFile)
	if err != nil {
		fmt.Println("Failed to initialize logger: ", err)
		exit = 1
		return
	}
	// Apply logger.
	log.SetLogger(logger)

	input, err := hex.DecodeString(os.Args[argInData])
	if err != nil {
		fmt.Println("Failed to decode input: ", err)
		exit = 1
		return
	}

	// The configuration provides the endpoint and the default user object.
	cfg, err := config.Load(os.Args[argConfFile])
	if err != nil {
		fmt.Println("Failed to load configuration: ", err)
		exit = int(errors.EbErr(err).Code())
		return
	}

	client, err := service.New(service.OptConfig(cfg))
	if err != nil {
		fmt.Println("Failed to initialize client: ", err)
		exit = int(errors.EbErr(err).Code())
		return
	}

	resp, err := client.ProcessData(context.Background(), nil, input)
	if err != nil {
		fmt.Println("Failed to process data: ", err)
		exit = int(errors.EbErr(err).Code())
		return
	}

	fmt.Println(hex.EncodeToString(resp.Payload))
}
