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

/*

Package goeb implements the client side of the EnigmaBridge remote HSM protocol: building authenticated and
encrypted ProcessData requests, verifying and decrypting their responses, and provisioning new user objects
from server supplied templates.

Note that the following tutorial is incremental, meaning the parameter names used in example code blocks are defined
in previous example blocks.


Logging

The subpackage log defines logging interface type log.Logger and a basic logger implementation for writing lines
to file.

By default logging is disabled. In order to enable logging of the API internals, an implementation to a logger has
to be registered in the log package, e.g. setting default logger:

	// Create an instance of default logger. Write log output to stdout.
	logger, err = log.New(log.INFO, nil)
	if err != nil {
		return
	}
	// Register the logger
	log.SetLogger(logger)

In order to disable logging, set logger to nil.



Errors

Almost every method of the API returns an error parameter alongside with a value (if applicable). All returned errors
are of type errors.EbError. For troubleshooting, the EbError provides following information:
	error code     - for error verification and recovery logic;
	error message  - a stack of human readable descriptive messages;
	stack trace    - the stack trace of the error registration;
	extended error - an error code (e.g. HTTP status), or error from e.g. std library.

Example usage of the EbError:
	if _, err := client.ProcessData(ctx, nil, input); err != nil {
		err := errors.EbErr(err)

		// Add additional message to the error.
		err.AppendMessage("Fatal error in main.")

		// Push the received error into the log.
		log.Error(err)

		// Exit with the error code set in the EbError.
		os.Exit(int(err.Code()))
	}

Integrity failures of a response (errors.EbCorruptMac, errors.EbCorruptPadding, errors.EbCorruptFlag,
errors.EbNonceMismatch) are never retried. A non-OK status reported by the service is returned as
errors.EbServiceError with the status code available via (EbError).ExtCode().

For simplicity reasons, the error handling in this tutorial is mostly omitted.



Configuration

A client is most easily constructed from a configuration file. Both TOML and YAML files are supported, the format is
selected by the file extension:

	endpoint = "https://site1.enigmabridge.com:11180"
	api_key = "TEST_API"
	log_level = "info"

	[retry]
	max_attempts = 5

	[uo]
	id = "0xee01"
	type = "PLAINAES"
	aes_key = "e134567890123456789012345678901234567890123456789012345678901234"
	mac_key = "e224262820223456789012345678901234567890123456789012345678901234"

Load the file and hand it over to the service package:

	cfg, err := config.Load("eb.toml")
	if err != nil {
		return
	}
	client, err := service.New(service.OptConfig(cfg))



Processing data

A ProcessData call encrypts the input under the user object communication keys, authenticates it with CBC-MAC and
sends it to the service. The response is verified and decrypted before it is returned:

	resp, err := client.ProcessData(ctx, nil, input)
	if err != nil {
		return
	}
	fmt.Printf("%x\n", resp.Payload)

A request can also be driven step by step, e.g. in order to inspect the request nonce:

	req, err := client.NewProcessData(service.ReqOptInput(nil, input))
	if err != nil {
		return
	}
	if err := req.Build(); err != nil {
		return
	}
	if err := req.Send(ctx); err != nil {
		return
	}
	resp := req.Response()



Creating user objects

A new user object is created in two steps. First the template of the requested object type is fetched, then the
template is filled with the communication keys, encrypted and wrapped under the import key of the service:

	res, err := client.CreateUO(ctx, service.DefaultTemplateRequest(4), uo.Keys{})
	if err != nil {
		return
	}
	desc := res.Descriptor(pdu.TypePlainAES)

Keys missing from uo.Keys are generated locally. The returned result carries every key written into the object.



Retries

Transport failures and HTTP errors are retried with exponential back-off and random jitter, see package retry. The
back-off is configured with service.OptRetry:

	client, err := service.New(
		service.OptEndpoint("https://site1.enigmabridge.com:11180", "TEST_API"),
		service.OptRetry(retry.OptStartInterval(time.Second), retry.OptMaxAttempts(3)),
	)

A canceled context stops the back-off immediately.



HTTP Proxy Configuration

To use a proxy, you need to configure the proxy on your operating system.

Set the system environment variable: `https_proxy=user:pass@server:port`

In Linux, add the system variable to `/etc/bashrc`:
	export https_proxy=user:pass@server:port

*/
package goeb

import (
	_ "github.com/enigmabridge/goeb/config"
	_ "github.com/enigmabridge/goeb/errors"
	_ "github.com/enigmabridge/goeb/log"
	_ "github.com/enigmabridge/goeb/net"
	_ "github.com/enigmabridge/goeb/pdu"
	_ "github.com/enigmabridge/goeb/retry"
	_ "github.com/enigmabridge/goeb/service"
	_ "github.com/enigmabridge/goeb/uo"
)
