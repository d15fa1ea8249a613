package glossary_test

import (
	"testing"

	"github.com/MrWong99/grimoire/internal/glossary"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	t.Run("canonical name", func(t *testing.T) {
		t.Parallel()
		e, ok := glossary.Lookup("jugador.nombre")
		if !ok {
			t.Fatal("Lookup: expected hit for canonical name")
		}
		if e.Category != "player" {
			t.Fatalf("Lookup: expected category %q, got %q", "player", e.Category)
		}
		if !e.Required {
			t.Fatal("Lookup: expected jugador.nombre to be required")
		}
	})

	t.Run("alias resolves to canonical entry", func(t *testing.T) {
		t.Parallel()
		e, ok := glossary.Lookup("player.name")
		if !ok {
			t.Fatal("Lookup: expected hit for alias")
		}
		if e.Name != "jugador.nombre" {
			t.Fatalf("Lookup: alias resolved to %q, want %q", e.Name, "jugador.nombre")
		}
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		t.Parallel()
		if _, ok := glossary.Lookup("  Jugador.Nombre "); !ok {
			t.Fatal("Lookup: expected hit for mixed-case padded name")
		}
	})

	t.Run("miss", func(t *testing.T) {
		t.Parallel()
		if _, ok := glossary.Lookup("no_such_var"); ok {
			t.Fatal("Lookup: expected miss for unknown name")
		}
	})
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want glossary.Class
	}{
		// Tier (a): structural prefixes.
		{"npc.descripcion", glossary.ClassPrimary},
		{"jugador.nombre", glossary.ClassPrimary},
		{"player.name", glossary.ClassPrimary},
		{"mundo.rumores", glossary.ClassPrimary},
		{"session.id", glossary.ClassPrimary},
		// Prefix wins even for unknown suffixes — resolution handles them.
		{"npc.no_such_field", glossary.ClassPrimary},

		// Tier (a): fixed bare aliases.
		{"nombre", glossary.ClassPrimary},
		{"raza", glossary.ClassPrimary},
		{"nivel", glossary.ClassPrimary},
		{"char", glossary.ClassPrimary},
		{"mensaje", glossary.ClassPrimary},
		{"userMessage", glossary.ClassPrimary},

		// Tier (b): glossary alias without structural prefix.
		{"mensaje_usuario", glossary.ClassPrimary},

		// Tier (c): everything else is assumed to be a template key.
		{"saludo", glossary.ClassTemplate},
		{"grimorio-intro", glossary.ClassTemplate},
		{"no_such_var", glossary.ClassTemplate},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := glossary.Classify(tc.name); got != tc.want {
				t.Fatalf("Classify(%q) = %q, want %q", tc.name, got, tc.want)
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	t.Run("close misspelling is suggested first", func(t *testing.T) {
		t.Parallel()
		got := glossary.Suggest("jugador.nombr")
		if len(got) == 0 {
			t.Fatal("Suggest: expected at least one suggestion")
		}
		if got[0].Name != "jugador.nombre" {
			t.Fatalf("Suggest: top suggestion %q, want %q", got[0].Name, "jugador.nombre")
		}
		if got[0].Score < 0.7 {
			t.Fatalf("Suggest: top score %.2f below threshold", got[0].Score)
		}
	})

	t.Run("unrelated name yields nothing", func(t *testing.T) {
		t.Parallel()
		if got := glossary.Suggest("xqzptvw"); len(got) != 0 {
			t.Fatalf("Suggest: expected no suggestions, got %v", got)
		}
	})

	t.Run("exact match scores 1", func(t *testing.T) {
		t.Parallel()
		got := glossary.Suggest("mensaje")
		if len(got) == 0 || got[0].Score != 1 {
			t.Fatalf("Suggest: expected exact match with score 1, got %v", got)
		}
	})
}
