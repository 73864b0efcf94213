package opts

import (
	"io"

	"github.com/pconstrictor/usability/pkg/config"
	"github.com/pconstrictor/usability/pkg/log"
	"github.com/pconstrictor/usability/pkg/sfm"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	// flags
	SettingsFile string
	Debug        bool

	// filled in before any command runs
	Settings *config.Settings
	Console  *log.Logger

	// Codec splits documents into SFM records; nil leaves narrow rules unavailable
	Codec sfm.Codec

	Stdout io.Writer
	Stderr io.Writer
}
