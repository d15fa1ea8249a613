package template

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// PackFile is the top-level structure of a Grimoire template pack YAML file.
//
// Example:
//
//	pack:
//	  name: "Taberna del Cuervo"
//	templates:
//	  - key: saludo
//	    body: "Saludos, {{jugador.nombre}}, nivel {{jugador.nivel}}"
type PackFile struct {
	Pack      PackMeta     `yaml:"pack"`
	Templates []Definition `yaml:"templates"`
}

// PackMeta holds top-level metadata for a template pack.
type PackMeta struct {
	// Name is the pack's display name.
	Name string `yaml:"name"`

	// Description is a free-text summary of the pack.
	Description string `yaml:"description"`
}

// LoadPackFile reads and parses a template pack YAML file from disk.
// Returns a descriptive error if the file cannot be opened or parsed.
func LoadPackFile(path string) (*PackFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("template: open pack file %q: %w", path, err)
	}
	defer f.Close()

	pf, err := LoadPackFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("template: parse pack file %q: %w", path, err)
	}
	return pf, nil
}

// LoadPackFromReader parses template pack YAML from an [io.Reader].
// The reader is consumed entirely; the caller is responsible for closing it.
func LoadPackFromReader(r io.Reader) (*PackFile, error) {
	var pf PackFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("template: decode pack yaml: %w", err)
	}
	return &pf, nil
}

// ImportPack upserts all definitions from a parsed [PackFile] into store.
// Returns the number of definitions successfully imported. A validation or
// store error aborts the import and returns the count so far.
func ImportPack(ctx context.Context, store Store, pack *PackFile) (int, error) {
	if pack == nil {
		return 0, fmt.Errorf("template: pack must not be nil")
	}
	count := 0
	for _, def := range pack.Templates {
		if err := store.Upsert(ctx, def); err != nil {
			return count, fmt.Errorf("template: import pack %q at key %q: %w", pack.Pack.Name, def.Key, err)
		}
		count++
	}
	return count, nil
}
