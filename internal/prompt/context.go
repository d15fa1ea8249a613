// Package prompt implements the Grimoire token-resolution engine: primary
// variable resolution against game state, template expansion with nesting
// rejection, and the multi-pass substitution orchestrator.
//
// Rendering is synchronous, CPU-bound, pure computation. The render path
// never fails hard: unresolved tokens degrade to the empty string so a
// partially specified context still produces a renderable, if incomplete,
// prompt. Strict errors belong to the authoring path (internal/lint).
package prompt

// RenderContext is the per-call bundle of game state a render draws from.
// Each section is optional — a nil section resolves every one of its
// variables to "", never an error. The engine never mutates a context;
// collaborators construct one fresh per render call and discard it after.
//
// The yaml tags exist for the CLI render mode, which reads a context from a
// YAML file; in-process callers build the struct directly.
type RenderContext struct {
	Player   *PlayerState   `yaml:"player"`
	NPC      *NPCState      `yaml:"npc"`
	World    *WorldState    `yaml:"world"`
	Region   *RegionState   `yaml:"region"`
	Building *BuildingState `yaml:"building"`
	Session  *SessionState  `yaml:"session"`

	// Message is the player's current chat message.
	Message string `yaml:"message"`

	// LastSummary is the most recent conversation summary, used when the
	// session section carries none.
	LastSummary string `yaml:"last_summary"`

	// TemplateOverride, when set, replaces the template identity passed to
	// [Renderer.RenderTemplate].
	TemplateOverride string `yaml:"template_override"`
}

// PlayerState is the player section of a render context.
type PlayerState struct {
	Name        string `yaml:"name"`
	Race        string `yaml:"race"`
	Class       string `yaml:"class"`
	Level       int    `yaml:"level"`
	Description string `yaml:"description"`
}

// NPCState is the NPC section of a render context.
type NPCState struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Personality string `yaml:"personality"`
	Location    string `yaml:"location"`
	Role        string `yaml:"role"`
}

// WorldState is the world section of a render context.
type WorldState struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Rumors      []string `yaml:"rumors"`
}

// RegionState is the region ("pueblo") section of a render context.
type RegionState struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Rumors      []string `yaml:"rumors"`
}

// BuildingState is the building ("edificio") section of a render context.
type BuildingState struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// RecentEvents lists recent in-building events, most recent last.
	// Rendered as a bullet list by the resolver.
	RecentEvents []string `yaml:"recent_events"`
}

// SessionState is the chat-session section of a render context.
type SessionState struct {
	ID           string `yaml:"id"`
	Summary      string `yaml:"summary"`
	MessageCount int    `yaml:"message_count"`
}
