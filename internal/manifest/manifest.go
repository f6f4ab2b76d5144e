// Package manifest reads and writes manifest.json, the sidecar that maps
// chapter files in an output directory back to their source document.
package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/splitbook/internal/types"
)

// FileName is the manifest's name inside an output directory.
const FileName = "manifest.json"

var (
	// ErrNotFound is returned when a directory has no manifest, which
	// means a split never ran there or did not finish.
	ErrNotFound = errors.New("manifest not found")

	// ErrInvalid is returned when a manifest does not match the schema.
	ErrInvalid = errors.New("invalid manifest")
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Manifest correlates generated chapter files to the source document.
type Manifest struct {
	Source   string  `json:"source"`
	Chapters []Entry `json:"chapters"`
}

// Entry describes one chapter file.
type Entry struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	File  string `json:"file"`
	Pages string `json:"pages"` // 1-indexed inclusive range, e.g. "3-17"
}

// New builds a manifest for chapters written to files (base names, same order).
func New(source string, chapters []types.Chapter, files []string) Manifest {
	m := Manifest{Source: source, Chapters: make([]Entry, 0, len(chapters))}
	for i, ch := range chapters {
		m.Chapters = append(m.Chapters, Entry{
			Index: ch.Index,
			Title: ch.Title,
			File:  files[i],
			Pages: ch.PageRange(),
		})
	}
	return m
}

// Path returns the manifest path for an output directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Marshal renders m as 2-space indented JSON with a trailing newline.
func Marshal(m Manifest) ([]byte, error) {
	if m.Chapters == nil {
		m.Chapters = []Entry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Write stores m as dir/manifest.json. The file is staged under a
// temporary name and renamed into place so readers never see a partial
// manifest.
func Write(dir string, m Manifest) (string, error) {
	data, err := Marshal(m)
	if err != nil {
		return "", err
	}

	path := Path(dir)
	tmp := filepath.Join(dir, "."+FileName+"."+uuid.New().String()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// Load reads and validates dir/manifest.json.
func Load(dir string) (Manifest, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{}, fmt.Errorf("%w in %s", ErrNotFound, dir)
		}
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse validates data against the manifest schema and decodes it.
func Parse(data []byte) (Manifest, error) {
	if err := validate(data); err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return m, nil
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("manifest.schema.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to load manifest schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("manifest.schema.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile manifest schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

func validate(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
