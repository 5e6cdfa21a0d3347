package imageio

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/biteenlab/biteen-utilities/utils"
)

// Codec reads and writes one movie format.
type Codec interface {
	Read(path string) (*Stack, error)
	Write(path string, s *Stack) error
}

var (
	codecsMu sync.RWMutex
	codecs   = map[string]Codec{
		".npy":  npyCodec{},
		".tif":  tiffCodec{},
		".tiff": tiffCodec{},
	}
)

// Register installs c for files ending in ext (".nd2"), replacing any
// previous codec.
func Register(ext string, c Codec) {
	ext = normalizeExt(ext)
	codecsMu.Lock()
	defer codecsMu.Unlock()
	codecs[ext] = c
	log.Debug().Str("component", "imageio").Str("ext", ext).Msg("registered codec")
}

// Lookup returns the codec for path's extension.
func Lookup(path string) (Codec, error) {
	ext := normalizeExt(filepath.Ext(path))
	codecsMu.RLock()
	defer codecsMu.RUnlock()
	c, ok := codecs[ext]
	if !ok {
		return nil, fmt.Errorf("%w: no codec for %q files", utils.ErrIOFailure, ext)
	}
	return c, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ReadFile reads path with the codec registered for its extension.
func ReadFile(path string) (*Stack, error) {
	c, err := Lookup(path)
	if err != nil {
		return nil, err
	}
	s, err := c.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// WriteFile writes s to path with the codec registered for its extension.
func WriteFile(path string, s *Stack) error {
	c, err := Lookup(path)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	return c.Write(path, s)
}

// Convert reads src and writes it to dst, each in the format its extension
// names.
func Convert(src, dst string) error {
	s, err := ReadFile(src)
	if err != nil {
		return err
	}
	if err := WriteFile(dst, s); err != nil {
		return fmt.Errorf("%s: %w", dst, err)
	}
	log.Info().Str("component", "imageio").Str("src", src).Str("dst", dst).
		Str("axes", s.Axes).Ints("shape", s.Shape).Msg("converted image")
	return nil
}
