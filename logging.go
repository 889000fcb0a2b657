package main

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Package-level leveled loggers. SetLogLevel redirects the writers of the
// levels below the configured one to io.Discard rather than gating each
// call site with an if, matching the cheap on/off switch this style of
// logger is built around.
var (
	debugWriter io.Writer = os.Stderr
	infoWriter  io.Writer = os.Stderr
	warnWriter  io.Writer = os.Stderr
	errWriter   io.Writer = os.Stderr
)

var (
	debugLog = log.New(debugWriter, "[DEBUG] ", log.LstdFlags)
	infoLog  = log.New(infoWriter, "[INFO]  ", log.LstdFlags)
	warnLog  = log.New(warnWriter, "[WARN]  ", log.LstdFlags)
	errLog   = log.New(errWriter, "[ERROR] ", log.LstdFlags|log.Lshortfile)
)

// SetLogLevel discards output below the named level. Unrecognized levels
// fall back to "info".
func SetLogLevel(level string) {
	switch level {
	case "debug":
		debugLog.SetOutput(os.Stderr)
	case "warn":
		debugLog.SetOutput(io.Discard)
		infoLog.SetOutput(io.Discard)
	case "error":
		debugLog.SetOutput(io.Discard)
		infoLog.SetOutput(io.Discard)
		warnLog.SetOutput(io.Discard)
	case "info", "":
		debugLog.SetOutput(io.Discard)
	default:
		infoLog.Printf("unknown log level %q, defaulting to info", level)
		debugLog.SetOutput(io.Discard)
	}
}

func logDebugf(format string, v ...interface{}) { debugLog.Printf(format, v...) }
func logInfof(format string, v ...interface{})  { infoLog.Printf(format, v...) }
func logWarnf(format string, v ...interface{})  { warnLog.Printf(format, v...) }
func logErrorf(format string, v ...interface{}) { errLog.Output(2, fmt.Sprintf(format, v...)) }
