package display

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/pathoview/viewport/internal/vlog"
)

// Format is a configuration file syntax.
type Format uint8

const (
	YAML Format = iota
	TOML
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return 0, fmt.Errorf("display: unsupported settings file %q", path)
}

// Decode reads settings in the given format. Fields that are absent keep
// their Default values; unknown fields are an error.
func Decode(r io.Reader, format Format) (Settings, error) {
	s := Default()
	switch format {
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil && err != io.EOF {
			return Settings{}, fmt.Errorf("display: decode yaml: %w", err)
		}
	case TOML:
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return Settings{}, fmt.Errorf("display: decode toml: %w", err)
		}
	default:
		return Settings{}, fmt.Errorf("display: unknown format %d", format)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load reads a settings file, choosing the format from its extension.
func Load(path string) (Settings, error) {
	format, err := FormatFor(path)
	if err != nil {
		return Settings{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("display: read settings: %w", err)
	}
	s, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Watch reloads path whenever it changes and passes the result to fn. It
// blocks until ctx is done. The parent directory is watched so editors
// that replace the file on save are handled.
func Watch(ctx context.Context, path string, fn func(Settings, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("display: watch: %w", err)
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("display: watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			vlog.Logger().Debug("display: settings changed", "path", path, "op", ev.Op.String())
			fn(Load(path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			vlog.Logger().Warn("display: watch error", "path", path, "err", err)
		}
	}
}
