package dispatch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ScriptExt is the extension listed by !scripts.
const ScriptExt = ".ncs"

var (
	// ErrNoScriptName is returned when !exec is given no argument.
	ErrNoScriptName = errors.New("usage: !exec <script>")

	// ErrBadScriptName is returned for names that would leave the script directory.
	ErrBadScriptName = errors.New("script name must not contain a path")
)

// ScriptDir is a directory of command scripts.
type ScriptDir string

// List returns the sorted names of the scripts in the directory. A missing
// directory has no scripts.
func (d ScriptDir) List() ([]string, error) {
	entries, err := os.ReadDir(string(d))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ScriptExt {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Resolve maps a script name to its path. A name without an extension
// that does not exist as given falls back to name + ScriptExt. The
// returned path is not guaranteed to exist.
func (d ScriptDir) Resolve(name string) (string, error) {
	if name == "" {
		return "", ErrNoScriptName
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", ErrBadScriptName
	}

	path := filepath.Join(string(d), name)
	if filepath.Ext(name) == "" {
		if _, err := os.Stat(path); err != nil {
			if _, err := os.Stat(path + ScriptExt); err == nil {
				return path + ScriptExt, nil
			}
		}
	}
	return path, nil
}
