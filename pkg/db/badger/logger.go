package badger

import (
	"strings"

	"github.com/loamdb/loam/pkg/log"
)

// logger routes badger's internal logging through the store component
// logger. Badger log lines carry their own trailing newlines.
type logger struct{}

func newLogger() logger { return logger{} }

func (logger) Errorf(format string, args ...interface{}) {
	log.Store.Error().Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (logger) Warningf(format string, args ...interface{}) {
	log.Store.Warn().Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (logger) Infof(format string, args ...interface{}) {
	log.Store.Debug().Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (logger) Debugf(format string, args ...interface{}) {
	log.Store.Debug().Msgf(strings.TrimSuffix(format, "\n"), args...)
}
