package shutdown

import (
	"io"
	"os"

	"github.com/rs/zerolog/log"
)

// exit is os.Exit outside of tests.
var exit = os.Exit

// Lamp is the connection lamp line, if one was claimed.
type Lamp interface {
	Set(on bool) error
}

// Shutdown leaves the lamp dark, releases the given lines and chip in order,
// and exits with code.
func Shutdown(lamp Lamp, code int, release ...io.Closer) {
	if lamp != nil {
		if err := lamp.Set(false); err != nil {
			log.Error().Err(err).Msg("Failed to turn off connection lamp")
		} else {
			log.Info().Msg("Connection lamp turned off")
		}
	}
	for _, c := range release {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to release GPIO resource")
		}
	}
	exit(code)
}

func ShutdownWithError(lamp Lamp, err error, msg string, release ...io.Closer) {
	log.Error().Err(err).Msg(msg)
	Shutdown(lamp, 1, release...)
}
