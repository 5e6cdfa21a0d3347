package biteen

import "github.com/biteenlab/biteen-utilities/internal"

// InitLogging configures the global console logger at level (debug, info,
// warn, error; empty means info).
func InitLogging(level string) error {
	return internal.InitLogging(level)
}
