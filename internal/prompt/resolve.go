package prompt

import (
	"strconv"
	"strings"

	"github.com/MrWong99/grimoire/internal/glossary"
)

// Resolver resolves primary variable names against a [RenderContext].
//
// Resolution never fails: an absent section, an unknown suffix, or an empty
// field all resolve to "". Resolved values that themselves contain {{...}}
// tokens (game-authored prose embedding further variables) are returned
// verbatim — expanding them is the orchestrator's job on its next pass.
//
// The Resolver is stateless and safe for concurrent use.
type Resolver struct{}

// Resolve returns the value of the primary variable name in rctx.
//
// The name is canonicalised through the glossary first, so aliases
// ("player.name", "nombre", "char") and canonical names ("jugador.nombre")
// resolve identically. Names that classify as primary by structural prefix
// but have no glossary entry (e.g. "npc.no_such_field") resolve to "".
func (Resolver) Resolve(name string, rctx *RenderContext) string {
	if rctx == nil {
		return ""
	}

	canonical := name
	if e, ok := glossary.Lookup(name); ok {
		canonical = e.Name
	}

	switch strings.ToLower(strings.TrimSpace(canonical)) {
	// Player
	case "jugador.nombre":
		if rctx.Player != nil {
			return rctx.Player.Name
		}
	case "jugador.raza":
		if rctx.Player != nil {
			return rctx.Player.Race
		}
	case "jugador.clase":
		if rctx.Player != nil {
			return rctx.Player.Class
		}
	case "jugador.nivel":
		if rctx.Player != nil && rctx.Player.Level != 0 {
			return strconv.Itoa(rctx.Player.Level)
		}
	case "jugador.descripcion":
		if rctx.Player != nil {
			return rctx.Player.Description
		}

	// NPC
	case "npc.nombre":
		if rctx.NPC != nil {
			return rctx.NPC.Name
		}
	case "npc.descripcion":
		if rctx.NPC != nil {
			return rctx.NPC.Description
		}
	case "npc.personalidad":
		if rctx.NPC != nil {
			return rctx.NPC.Personality
		}
	case "npc.ubicacion":
		if rctx.NPC != nil {
			return rctx.NPC.Location
		}
	case "npc.rol":
		if rctx.NPC != nil {
			return rctx.NPC.Role
		}

	// World
	case "mundo.nombre":
		if rctx.World != nil {
			return rctx.World.Name
		}
	case "mundo.descripcion":
		if rctx.World != nil {
			return rctx.World.Description
		}
	case "mundo.rumores":
		if rctx.World != nil {
			return bulletList(rctx.World.Rumors)
		}

	// Region
	case "pueblo.nombre":
		if rctx.Region != nil {
			return rctx.Region.Name
		}
	case "pueblo.descripcion":
		if rctx.Region != nil {
			return rctx.Region.Description
		}
	case "pueblo.rumores":
		if rctx.Region != nil {
			return bulletList(rctx.Region.Rumors)
		}

	// Building
	case "edificio.nombre":
		if rctx.Building != nil {
			return rctx.Building.Name
		}
	case "edificio.descripcion":
		if rctx.Building != nil {
			return rctx.Building.Description
		}
	case "edificio.eventos":
		if rctx.Building != nil {
			return bulletList(rctx.Building.RecentEvents)
		}

	// Session
	case "session.id":
		if rctx.Session != nil {
			return rctx.Session.ID
		}
	case "session.resumen":
		if rctx.Session != nil && rctx.Session.Summary != "" {
			return rctx.Session.Summary
		}
		return rctx.LastSummary
	case "session.mensajes":
		if rctx.Session != nil {
			return strconv.Itoa(rctx.Session.MessageCount)
		}

	// Free scalars
	case "mensaje":
		return rctx.Message
	}

	return ""
}

// bulletList renders items as a "- item" list, one per line. An empty list
// renders as "", not a placeholder.
func bulletList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(item)
	}
	return sb.String()
}
