// Package log has the logger accepted by the qchat SDK.
//
// Logging is disabled by default. Applications using logrus can plug their
// logger directly:
//
//	logger := liblog.NewLogrus(logrus.NewEntry(logrus.StandardLogger()))
//	client, err := lib.New(lib.Config{Logger: logger})
//
// Any other logger can be used by implementing [Logger].
package log

import (
	"github.com/sirupsen/logrus"

	"github.com/slok/qchat/internal/log"
	loglogrus "github.com/slok/qchat/internal/log/logrus"
)

// Logger is the interface that loggers must implement for the SDK.
// Structured values are received through WithValues.
type Logger = log.Logger

// Kv are the structured key-value pairs of a log line.
type Kv = log.Kv

// Noop discards every log line.
var Noop = log.Noop

// NewLogrus returns a Logger backed by a logrus entry.
func NewLogrus(l *logrus.Entry) Logger {
	return loglogrus.NewLogrus(l)
}
