package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// reads a json5 configuration file, merging an optional
// `<name>.local.<ext>` next to it on top of the base file.
// returns os.ErrNotExist when neither file is present.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found := false

	ext := filepath.Ext(name)
	prefix := strings.TrimSuffix(name, ext)

	base, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(base) > 0 {
		err = json5.Unmarshal(base, &out)
		if err != nil {
			return out, err
		}
		found = true
	}

	localPath := fmt.Sprintf("%s.local%s", prefix, ext)
	local, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(local) > 0 {
		var override T
		err = json5.Unmarshal(local, &override)
		if err != nil {
			return out, err
		}
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localPath)
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadConfig but it walks up the filesystem from the cwd until the
// root looking for a configuration file matching the name.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	current, err := os.Getwd()
	if err != nil {
		return zero, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if os.IsNotExist(err) {
			parent := filepath.Dir(current)
			if parent == current {
				return zero, os.ErrNotExist
			}
			current = parent
			continue
		}
		return config, err
	}
}
