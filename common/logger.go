// Copyright © 2017 Microsoft <wastore@microsoft.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package common

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"
)

var CurrentEngineLogger ILoggerResetable

// LogToEngineLogWithPrefix logs a message with a prefix so readers can find
// serious entries while informational ones still look uncluttered.
func LogToEngineLogWithPrefix(msg string, level LogLevel) {
	if CurrentEngineLogger != nil {
		prefix := ""
		if level <= ELogLevel.Warning() {
			prefix = fmt.Sprintf("%s: ", level)
		}
		CurrentEngineLogger.Log(level, prefix+msg)
	}
}

type ILogger interface {
	ShouldLog(level LogLevel) bool
	Log(level LogLevel, msg string)
	Panic(err error)
}

type ILoggerCloser interface {
	ILogger
	CloseLog()
}

type ILoggerResetable interface {
	OpenLog()
	MinimumLogLevel() LogLevel
	ILoggerCloser
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type LogLevelOverrideLogger struct {
	ILoggerResetable
	MinimumLevelToLog LogLevel
}

func (l LogLevelOverrideLogger) MinimumLogLevel() LogLevel {
	return l.MinimumLevelToLog
}

func (l LogLevelOverrideLogger) ShouldLog(level LogLevel) bool {
	if level == ELogLevel.None() {
		return false
	}
	return level <= l.MinimumLevelToLog
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

const maxLogSize = 500 * 1024 * 1024

// engineLogger is the file-backed logger used by the ingest engine and any
// subsystem it wires up. One instance is normally shared across the whole
// process; the name just picks the log file, it is not a job identity.
type engineLogger struct {
	name              string
	minimumLevelToLog LogLevel
	file              io.WriteCloser
	logFileFolder     string
	logger            *log.Logger
}

func NewEngineLogger(name string, minimumLevelToLog LogLevel, logFileFolder string) ILoggerResetable {
	return &engineLogger{
		name:              name,
		minimumLevelToLog: minimumLevelToLog,
		logFileFolder:     logFileFolder,
	}
}

func (el *engineLogger) OpenLog() {
	if el.minimumLevelToLog == ELogLevel.None() {
		return
	}

	file, err := NewRotatingWriter(filepath.Join(el.logFileFolder, el.name+".log"), maxLogSize)
	if err != nil {
		panic(errors.Wrap(err, "opening log file"))
	}

	el.file = file

	flags := log.LstdFlags | log.LUTC
	el.logger = log.New(el.file, "", flags)
	el.logger.Println("Log times are in UTC. Local time is", time.Now().Format("2 Jan 2006 15:04:05"))
	el.logger.Println("OS-Environment", runtime.GOOS)
	el.logger.Println("OS-Architecture", runtime.GOARCH)
}

func (el *engineLogger) MinimumLogLevel() LogLevel {
	return el.minimumLevelToLog
}

func (el *engineLogger) ShouldLog(level LogLevel) bool {
	if level == ELogLevel.None() {
		return false
	}
	return level <= el.minimumLevelToLog
}

func (el *engineLogger) CloseLog() {
	if el.minimumLevelToLog == ELogLevel.None() {
		return
	}

	el.logger.Println("Closing Log")
	_ = el.file.Close() // If it was already closed, that's alright. We wanted to close it, anyway.
}

func (el engineLogger) Log(loglevel LogLevel, msg string) {
	if el.ShouldLog(loglevel) {
		el.logger.Println(msg)
	}
}

func (el engineLogger) Panic(err error) {
	el.logger.Println(err) // log the error first, then panic with it
	panic(err)
}

// Cause walks all the preceding errors via pkg/errors and returns the
// originating error.
func Cause(err error) error {
	type causer interface {
		Cause() error
	}
	for err != nil {
		cause, ok := err.(causer)
		if !ok {
			break
		}
		err = cause.Cause()
	}
	return err
}
