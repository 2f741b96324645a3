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
	"strconv"

	"github.com/enigmabridge/goeb/errors"
	"github.com/enigmabridge/goeb/log"
	"github.com/enigmabridge/goeb/pdu"
	"github.com/enigmabridge/goeb/service"
	"github.com/enigmabridge/goeb/uo"
)

type argVal int

const (
	argProgName argVal = iota
	argEndpoint
	argAPIKey
	argObjType
	nofArgs
)

func main() {
	// Handle exit code.
	exit := 0
	defer func() { os.Exit(exit) }()

	/* Handle command line parameters. */
	if len(os.Args) != int(nofArgs) {
		fmt.Printf("Usage:\n")
		fmt.Printf("  %s <endpoint-uri> <api-key> <object-type>\n", os.Args[argProgName])
		exit = 1
		return
	}

	// Log to stdout.
	logger, err := log.New(log.INFO, nil)
	if err != nil {
		fmt.Println("Failed to initialize logger: ", err)
		exit = 1
		return
	}
	log.SetLogger(logger)

	objType, err := strconv.ParseUint(os.Args[argObjType], 0, 32)
	if err != nil {
		fmt.Println("Invalid object type: ", err)
		exit = 1
		return
	}

	client, err := service.New(service.OptEndpoint(os.Args[argEndpoint], os.Args[argAPIKey]))
	if err != nil {
		fmt.Println("Failed to initialize client: ", err)
		exit = int(errors.EbErr(err).Code())
		return
	}

	// Let the client generate every communication key.
	ctx := context.Background()
	res, err := client.CreateUO(ctx, service.DefaultTemplateRequest(uint32(objType)), uo.Keys{})
	if err != nil {
		fmt.Println("Failed to create user object: ", err)
		exit = int(errors.EbErr(err).Code())
		return
	}
	fmt.Printf("handle: %s\n", res.Handle)
	fmt.Printf("uoid:   %08x\n", res.UserObjectID)
	fmt.Printf("enc:    %s\n", hex.EncodeToString(res.Keys[uo.KeyCommEnc]))
	fmt.Printf("mac:    %s\n", hex.EncodeToString(res.Keys[uo.KeyCommMAC]))

	// Use the new object right away.
	desc := res.Descriptor(pdu.TypePlainAES)
	resp, err := client.ProcessData(ctx, nil, make([]byte, 16),
		service.ReqOptUserObject(desc.UserObjectID, desc.Type, desc.AESKey, desc.MACKey),
	)
	if err != nil {
		fmt.Println("Failed to process data: ", err)
		exit = int(errors.EbErr(err).Code())
		return
	}
	fmt.Printf("output: %s\n", hex.EncodeToString(resp.Payload))
}
