// Package logx wraps zerolog behind a small package-level surface so the
// rest of the codebase never touches logger construction.
package logx

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment selects the output format and level floor.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Init configures the global logger. Development gets a console writer
// with caller info at debug level; production emits level-filtered JSON.
func Init(env Environment) {
	if env == Production {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
		return
	}
	log.Logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Caller().Logger()
	log.Logger = log.Logger.Level(zerolog.DebugLevel)
}

func Debug() *zerolog.Event { return log.Debug() }

func Info() *zerolog.Event { return log.Info() }

func Warn() *zerolog.Event { return log.Warn() }

func Error() *zerolog.Event { return log.Error() }

func Fatal() *zerolog.Event { return log.Fatal() }
