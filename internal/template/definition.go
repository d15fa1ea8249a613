// Package template provides the registry of reusable named prompt templates
// ("Grimorio" entries) for the Grimoire rendering engine.
//
// A template is a named block of narrative text that may reference only
// primary variables. Bodies that reference further templates are rejected at
// registration time; the expander re-checks the rule at expansion time as a
// second line of defence.
//
// Store implementations:
//   - [MemStore] — in-memory, for tests and single-process deployments.
//   - [PostgresStore] — PostgreSQL-backed, for the authoring surface.
//   - YAML packs ([LoadPackFile]) — declarative seed files loaded at startup.
//
// All store operations are safe for concurrent use; during render the
// registry is read-only.
package template

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/MrWong99/grimoire/internal/glossary"
	"github.com/MrWong99/grimoire/internal/token"
)

// KindTemplate is the only kind the expander matches. Entries with any other
// kind are stored but never expand (they resolve to "").
const KindTemplate = "template"

// Sentinel errors returned by store operations.
var (
	// ErrNotFound is returned when no template with the given key exists.
	ErrNotFound = errors.New("template: not found")

	// ErrDuplicateKey is returned by Create when the key is already taken.
	ErrDuplicateKey = errors.New("template: duplicate key")
)

// keyPattern restricts template keys to the token name charset, so every
// registered key is addressable from prompt text.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Definition is one registered template.
type Definition struct {
	// Key uniquely identifies the template and is the token name used to
	// reference it from prompt text.
	Key string `yaml:"key" json:"key"`

	// Body is the template text. It may reference primary variables but
	// never other templates.
	Body string `yaml:"body" json:"body"`

	// Kind is the entry kind. Only [KindTemplate] entries expand; anything
	// else is treated as a non-match by the render path.
	Kind string `yaml:"kind" json:"kind"`

	// Description is free-text authoring documentation.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// CreatedAt and UpdatedAt are maintained by persistent stores.
	CreatedAt time.Time `yaml:"-" json:"created_at,omitzero"`
	UpdatedAt time.Time `yaml:"-" json:"updated_at,omitzero"`
}

// NestedTemplateError reports a template body that references another
// template. This is the registry's cycle-prevention rule: since a template
// may reference only primary variables, no template can transitively reach
// itself.
type NestedTemplateError struct {
	// Key is the template being validated or expanded ("" when validating
	// unsaved text).
	Key string

	// Nested is the offending template-classified token name in the body.
	Nested string
}

func (e *NestedTemplateError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("template: body references nested template %q", e.Nested)
	}
	return fmt.Sprintf("template %q: body references nested template %q", e.Key, e.Nested)
}

// Validate checks a definition for registration.
//
// Rules:
//   - Key must be non-empty and match the token name charset.
//   - Kind must be [KindTemplate] or empty (empty defaults to template).
//   - Body must not reference nested templates (see [ValidateBody]).
func Validate(def Definition) error {
	var errs []error

	if def.Key == "" {
		errs = append(errs, errors.New("key must not be empty"))
	} else if !keyPattern.MatchString(def.Key) {
		errs = append(errs, fmt.Errorf("key %q contains characters outside [A-Za-z0-9_.-]", def.Key))
	}

	if def.Kind != "" && def.Kind != KindTemplate {
		errs = append(errs, fmt.Errorf("kind %q is not recognised", def.Kind))
	}

	if err := ValidateBody(def.Key, def.Body); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// ValidateBody checks that body references no template-classified tokens.
// key is used only for error reporting and may be empty for unsaved text.
// Returns a [NestedTemplateError] for the first offending token found.
func ValidateBody(key, body string) error {
	for _, name := range token.Names(body) {
		if glossary.Classify(name) == glossary.ClassTemplate {
			return &NestedTemplateError{Key: key, Nested: name}
		}
	}
	return nil
}
