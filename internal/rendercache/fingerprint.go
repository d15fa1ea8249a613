package rendercache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/MrWong99/grimoire/internal/prompt"
)

// Fingerprint computes the cache-key projection of a render context.
//
// The projection is deliberately reduced to identity-relevant fields — NPC
// name and location, world/region/building names, player name/race/level,
// session id and message count — a size/speed trade-off. Two contexts that
// differ only in fields outside the projection (e.g. full description prose)
// alias to the same entry; collaborators editing such fields should call
// [Cache.InvalidateSession] or [Cache.InvalidateTemplate].
func Fingerprint(rctx *prompt.RenderContext) string {
	if rctx == nil {
		return "empty"
	}

	var parts []string
	if p := rctx.Player; p != nil {
		parts = append(parts, "p:"+p.Name, "r:"+p.Race, "l:"+strconv.Itoa(p.Level))
	}
	if n := rctx.NPC; n != nil {
		parts = append(parts, "n:"+n.Name, "nl:"+n.Location)
	}
	if w := rctx.World; w != nil {
		parts = append(parts, "w:"+w.Name)
	}
	if r := rctx.Region; r != nil {
		parts = append(parts, "rg:"+r.Name)
	}
	if b := rctx.Building; b != nil {
		parts = append(parts, "b:"+b.Name)
	}
	if s := rctx.Session; s != nil {
		parts = append(parts, "s:"+s.ID, "m:"+strconv.Itoa(s.MessageCount))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:8])
}
