package token_test

import (
	"reflect"
	"testing"

	"github.com/MrWong99/grimoire/internal/token"
)

func TestFind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []token.Match
	}{
		{
			name: "no tokens",
			text: "plain narrative text with no placeholders",
			want: nil,
		},
		{
			name: "single token",
			text: "Hola {{jugador.nombre}}",
			want: []token.Match{{Raw: "{{jugador.nombre}}", Name: "jugador.nombre"}},
		},
		{
			name: "inner whitespace trimmed",
			text: "Hola {{ jugador.nombre }}",
			want: []token.Match{{Raw: "{{ jugador.nombre }}", Name: "jugador.nombre"}},
		},
		{
			name: "multiple tokens in order",
			text: "{{saludo}} desde {{mundo.nombre}}",
			want: []token.Match{
				{Raw: "{{saludo}}", Name: "saludo"},
				{Raw: "{{mundo.nombre}}", Name: "mundo.nombre"},
			},
		},
		{
			name: "charset includes dash underscore digits",
			text: "{{last-summary_2}}",
			want: []token.Match{{Raw: "{{last-summary_2}}", Name: "last-summary_2"}},
		},
		{
			name: "unclosed braces are not tokens",
			text: "a lonely {{brace pair",
			want: nil,
		},
		{
			name: "invalid charset is not a token",
			text: "{{no spaces allowed}} {{ni:colons}}",
			want: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := token.Find(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Find(%q) = %#v, want %#v", tc.text, got, tc.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	if token.Contains("nothing here") {
		t.Fatal("Contains: expected false for plain text")
	}
	if !token.Contains("prefix {{npc.nombre}} suffix") {
		t.Fatal("Contains: expected true for text with a token")
	}
}

func TestNamesDeduplicates(t *testing.T) {
	t.Parallel()

	got := token.Names("{{a}} {{b}} {{ a }} {{c}} {{b}}")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
}
