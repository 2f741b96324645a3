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

// Package test contains helpers shared by the package tests.
package test

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/enigmabridge/goeb/log"
)

// Case is a test case.
type Case struct {
	// Name of the sub-test. If empty, the function name is used.
	Name string
	Func func(t *testing.T, opts ...interface{})
}

// Suite is a collection of test cases.
type Suite []Case

// Runner runs every test case in the receiver test suite.
func (ts Suite) Runner(t *testing.T, opts ...interface{}) {
	t.Helper()

	for _, tc := range ts {
		tc := tc
		name := tc.Name
		if name == "" {
			name = runtime.FuncForPC(reflect.ValueOf(tc.Func).Pointer()).Name()
			name = name[strings.LastIndex(name, ".")+1:]
		}
		log.Debug("---- :::: Run test case: ", name, " :::: ----")
		t.Run(name, func(t *testing.T) { tc.Func(t, opts...) })
	}
}

// InitLogger registers a file logger for the duration of the test. The log file is created in the test temporary
// directory, its path is returned. The previous logger is restored on cleanup.
func InitLogger(t *testing.T, level log.Priority) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), strings.Join([]string{strings.ReplaceAll(t.Name(), "/", "_"), "log"}, "."))
	logFile, err := os.Create(path)
	if err != nil {
		t.Fatal("Failed to create log file: ", err)
	}
	logger, err := log.New(level, logFile)
	if err != nil {
		_ = logFile.Close()
		t.Fatal("Failed to initialize logger: ", err)
	}

	prev := log.Current()
	log.SetLogger(logger)
	t.Cleanup(func() {
		log.SetLogger(prev)
		_ = logFile.Close()
	})
	return path
}
