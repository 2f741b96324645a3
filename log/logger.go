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

package log

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/enigmabridge/goeb/errors"
)

// Priority is the logging priority level.
type Priority int8

// Logging priorities in ascending order of severity. NONE is only a marker for disabled output.
const (
	DEBUG Priority = iota
	INFO
	NOTICE
	WARNING
	ERROR
	NONE
)

var priorityMarkers = map[Priority]string{
	DEBUG:   "[D]",
	INFO:    "[I]",
	NOTICE:  "[N]",
	WARNING: "[W]",
	ERROR:   "[E]",
}

// WriterLogger is the basic Logger implementation that generates lines of output to an io.Writer.
// Lines are structured (JSON) records produced by zerolog, the message field is prefixed with the priority marker.
type WriterLogger struct {
	level Priority
	zl    zerolog.Logger
}

// New returns a new logger that writes all records with priority equal or above the level into w. In case w is nil,
// the output is written to stdout.
func New(level Priority, w io.Writer) (*WriterLogger, error) {
	if level < DEBUG || level >= NONE {
		return nil, errors.New(errors.EbInvalidArgumentError).AppendMessage("Unsupported log priority.")
	}
	if w == nil {
		w = os.Stdout
	}
	return &WriterLogger{
		level: level,
		zl:    zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger(),
	}, nil
}

func (l *WriterLogger) log(p Priority, v ...interface{}) {
	if l == nil || p < l.level {
		return
	}

	msg := priorityMarkers[p] + " " + fmt.Sprint(v...)
	switch p {
	case DEBUG:
		l.zl.Debug().Msg(msg)
	case INFO, NOTICE:
		l.zl.Info().Msg(msg)
	case WARNING:
		l.zl.Warn().Msg(msg)
	default:
		l.zl.Error().Msg(msg)
	}
}

// Debug implements Logger interface.
func (l *WriterLogger) Debug(v ...interface{}) { l.log(DEBUG, v...) }

// Info implements Logger interface.
func (l *WriterLogger) Info(v ...interface{}) { l.log(INFO, v...) }

// Notice implements Logger interface.
func (l *WriterLogger) Notice(v ...interface{}) { l.log(NOTICE, v...) }

// Warning implements Logger interface.
func (l *WriterLogger) Warning(v ...interface{}) { l.log(WARNING, v...) }

// Error implements Logger interface.
func (l *WriterLogger) Error(v ...interface{}) { l.log(ERROR, v...) }

// ParsePriority maps the textual priority names used in configuration files onto Priority values.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "debug", "DEBUG":
		return DEBUG, nil
	case "info", "INFO", "":
		return INFO, nil
	case "notice", "NOTICE":
		return NOTICE, nil
	case "warning", "WARNING", "warn":
		return WARNING, nil
	case "error", "ERROR":
		return ERROR, nil
	case "none", "NONE", "off":
		return NONE, nil
	}
	return NONE, errors.New(errors.EbConfigError).AppendMessage(fmt.Sprintf("Unknown log priority: %q.", s))
}
