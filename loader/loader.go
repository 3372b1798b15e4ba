// Package loader discovers schema documents on a filesystem.
package loader

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	j "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/reoring/skema/schema"
)

// DefaultPatterns are the file name patterns scanned when none are given.
var DefaultPatterns = []string{"*.json", "*.yaml", "*.yml"}

var errStop = errors.New("loader: stop")

// Option configures a Loader.
type Option func(*Loader)

// WithFs sets the filesystem to scan. Any fs.FS, such as an embed.FS, can be
// used through afero.FromIOFS.
func WithFs(fs afero.Fs) Option {
	return func(l *Loader) { l.fs = fs }
}

// WithLogger sets the logger for files that cannot be read or parsed.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithPatterns replaces the file name patterns (filepath.Match syntax).
func WithPatterns(patterns ...string) Option {
	return func(l *Loader) { l.patterns = patterns }
}

// Loader reads schema documents from directories.
type Loader struct {
	fs       afero.Fs
	log      zerolog.Logger
	patterns []string
}

// New returns a Loader on the OS filesystem unless WithFs is given.
func New(opts ...Option) *Loader {
	l := &Loader{
		fs:       afero.NewOsFs(),
		log:      zerolog.Nop(),
		patterns: DefaultPatterns,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Scan walks every directory recursively, in lexical order, and yields one
// document per matching file that parses. Missing directories are skipped
// silently; unreadable or malformed files are logged and skipped. Nothing is
// read until the sequence is iterated, and breaking out stops the walk.
func (l *Loader) Scan(dirs []string) iter.Seq[schema.Document] {
	return func(yield func(schema.Document) bool) {
		for _, dir := range dirs {
			if ok, _ := afero.DirExists(l.fs, dir); !ok {
				continue
			}
			err := afero.Walk(l.fs, dir, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					l.log.Warn().Str("file", path).Err(err).Msg("Cannot read schema location")
					return nil
				}
				if info.IsDir() || !l.matches(info.Name()) {
					return nil
				}
				doc, err := l.Load(path)
				if err != nil {
					l.log.Warn().Str("file", path).Err(err).Msg("Cannot load schema file")
					return nil
				}
				if !yield(doc) {
					return errStop
				}
				return nil
			})
			if errors.Is(err, errStop) {
				return
			}
		}
	}
}

// Load reads and parses a single schema file.
func (l *Loader) Load(path string) (schema.Document, error) {
	raw, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return schema.Document{}, err
	}
	body, err := Parse(filepath.Ext(path), raw)
	if err != nil {
		return schema.Document{}, err
	}
	return schema.New(body, filepath.Base(path)), nil
}

func (l *Loader) matches(name string) bool {
	for _, p := range l.patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Parse decodes a schema body. ext selects YAML (".yaml", ".yml") or JSON.
// The body must be an object or a boolean. JSON bodies must not repeat a key
// within an object.
func Parse(ext string, raw []byte) (any, error) {
	var body any
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &body); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		body = Normalize(body)
	default:
		if err := j.Unmarshal(raw, &body); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		dups, err := DuplicateKeys(raw)
		if err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		if len(dups) > 0 {
			return nil, fmt.Errorf("duplicate keys at %s", strings.Join(dups, ", "))
		}
	}
	switch body.(type) {
	case map[string]any, bool:
		return body, nil
	default:
		return nil, fmt.Errorf("schema must be an object or a boolean, got %T", body)
	}
}
