// Package glossary holds the static catalog of known prompt variables and
// classifies token names into primary variables and template references.
//
// The catalog is fixed at compile time and read-only at runtime. Entries map
// a canonical dotted name (Spanish-first, matching the prompt corpus) to its
// aliases, category, and authoring flags. Lookup and classification are pure
// functions of the name — they never consult a render context or the
// template registry.
package glossary

import "strings"

// Entry describes one known primary variable.
type Entry struct {
	// Name is the canonical dotted name, lowercase (e.g. "jugador.nombre").
	Name string

	// Aliases are alternative names that resolve to the same variable,
	// lowercase (e.g. "player.name", "nombre").
	Aliases []string

	// Category groups the variable by its context section ("player", "npc",
	// "world", "region", "building", "session", "message"). The reserved
	// category "custom" marks authored extensions that do not classify as
	// primary.
	Category string

	// Required marks variables a well-formed sample context is expected to
	// provide. The static validator reports MISSING for these.
	Required bool

	// Nested marks variables whose resolved value may itself embed further
	// {{...}} tokens (game-authored prose); the renderer picks those up on a
	// later pass.
	Nested bool
}

// catalog is the built-in variable table. Keep entries sorted by category.
var catalog = []Entry{
	// Player
	{Name: "jugador.nombre", Aliases: []string{"player.name", "nombre", "char"}, Category: "player", Required: true},
	{Name: "jugador.raza", Aliases: []string{"player.race", "raza"}, Category: "player"},
	{Name: "jugador.nivel", Aliases: []string{"player.level", "nivel"}, Category: "player"},
	{Name: "jugador.clase", Aliases: []string{"player.class", "clase"}, Category: "player"},
	{Name: "jugador.descripcion", Aliases: []string{"player.description"}, Category: "player", Nested: true},

	// NPC
	{Name: "npc.nombre", Aliases: []string{"npc.name"}, Category: "npc", Required: true},
	{Name: "npc.descripcion", Aliases: []string{"npc.description"}, Category: "npc", Nested: true},
	{Name: "npc.personalidad", Aliases: []string{"npc.personality"}, Category: "npc", Nested: true},
	{Name: "npc.ubicacion", Aliases: []string{"npc.location"}, Category: "npc"},
	{Name: "npc.rol", Aliases: []string{"npc.role"}, Category: "npc"},

	// World
	{Name: "mundo.nombre", Aliases: []string{"world.name"}, Category: "world"},
	{Name: "mundo.descripcion", Aliases: []string{"world.description"}, Category: "world", Nested: true},
	{Name: "mundo.rumores", Aliases: []string{"world.rumors"}, Category: "world", Nested: true},

	// Region
	{Name: "pueblo.nombre", Aliases: []string{"region.name"}, Category: "region"},
	{Name: "pueblo.descripcion", Aliases: []string{"region.description"}, Category: "region", Nested: true},
	{Name: "pueblo.rumores", Aliases: []string{"region.rumors"}, Category: "region", Nested: true},

	// Building
	{Name: "edificio.nombre", Aliases: []string{"building.name"}, Category: "building"},
	{Name: "edificio.descripcion", Aliases: []string{"building.description"}, Category: "building", Nested: true},
	{Name: "edificio.eventos", Aliases: []string{"building.events"}, Category: "building", Nested: true},

	// Session
	{Name: "session.id", Category: "session"},
	{Name: "session.resumen", Aliases: []string{"session.summary", "lastsummary"}, Category: "session", Nested: true},
	{Name: "session.mensajes", Aliases: []string{"session.messagecount"}, Category: "session"},

	// Free scalars
	{Name: "mensaje", Aliases: []string{"message", "usermessage", "mensaje_usuario"}, Category: "message", Required: true},
}

// index maps every lowercase name and alias to its catalog entry.
var index = buildIndex()

func buildIndex() map[string]*Entry {
	idx := make(map[string]*Entry, len(catalog)*3)
	for i := range catalog {
		e := &catalog[i]
		idx[e.Name] = e
		for _, a := range e.Aliases {
			idx[a] = e
		}
	}
	return idx
}

// Lookup returns the catalog entry for name, matching the canonical name or
// any alias, case-insensitively. The second return is false when the name is
// not in the glossary.
func Lookup(name string) (Entry, bool) {
	e, ok := index[normalize(name)]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// All returns a copy of the full catalog.
func All() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// Required returns the catalog entries flagged as required.
func Required() []Entry {
	var out []Entry
	for _, e := range catalog {
		if e.Required {
			out = append(out, e)
		}
	}
	return out
}

// AllNames returns every canonical name and alias in the catalog. Used by
// [Suggest] as the candidate set for typo correction.
func AllNames() []string {
	out := make([]string, 0, len(index))
	for name := range index {
		out = append(out, name)
	}
	return out
}

// normalize lowercases and trims a token name for catalog lookup.
func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
