package glossary

import (
	"sort"

	"github.com/antzucaro/matchr"
)

// suggestThreshold is the minimum Levenshtein similarity for a candidate to
// be offered as a correction.
const suggestThreshold = 0.7

// Suggestion is one likely intended variable name for a misspelled token.
type Suggestion struct {
	// Name is the catalog name or alias the input resembles.
	Name string

	// Score is the Levenshtein similarity in [0, 1].
	Score float64
}

// Suggest returns catalog names and aliases that resemble name, ranked by
// descending similarity. Only candidates with similarity ≥ 0.7 are included.
// This is an authoring convenience for the static validator; the render path
// never consults it.
func Suggest(name string) []Suggestion {
	n := normalize(name)
	if n == "" {
		return nil
	}

	var out []Suggestion
	for _, candidate := range AllNames() {
		score := similarity(n, candidate)
		if score >= suggestThreshold {
			out = append(out, Suggestion{Name: candidate, Score: score})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// similarity converts Levenshtein edit distance into a [0, 1] similarity
// ratio relative to the longer string.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	dist := matchr.Levenshtein(a, b)
	return 1 - float64(dist)/float64(longest)
}
