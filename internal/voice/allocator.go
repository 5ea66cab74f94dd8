// Package voice assigns TTS voices to characters, first by gender pool
// cycling and then, once line-frequency data exists, by a deterministic
// frequency-based remap that reserves a bounded number of unique voices for
// the most frequent speakers.
package voice

import (
	"sort"

	"github.com/textcast/orchestrator/pkg/types"
)

// rareSentinels are the three extra keys every VoiceMap must carry in
// addition to one entry per character.
var rareSentinels = []string{types.MaleUnnamed, types.FemaleUnnamed, types.UnknownUnnamed}

// cycler picks voices from a gender-ordered pool, cycling back to the start
// once exhausted (duplicates allowed) rather than failing.
type cycler struct {
	voices []types.VoiceID
	next   int
}

func newCycler(voices []types.VoiceID) *cycler {
	return &cycler{voices: voices}
}

func (c *cycler) pick() (types.VoiceID, bool) {
	if len(c.voices) == 0 {
		return "", false
	}
	v := c.voices[c.next%len(c.voices)]
	c.next++
	return v, true
}

func (c *cycler) assignedCount() int { return c.next }

// AllocateByGender performs the initial, gender-based voice assignment. It
// runs before speaker assignment exists, so it has no frequency information:
// every character gets the next voice in its gender's pool, cycling when the
// pool is exhausted. Unknown-gender characters alternate between the male
// and female pools, preferring whichever has fewer assignments so far. The
// narrator voice is never handed out to a character. Every variation of a
// character maps to the same voice as its canonical name.
func AllocateByGender(characters []types.Character, pool types.VoicePool, narrator types.VoiceID) types.ConversionVoiceMap {
	male := newCycler(withoutVoice(pool.Male, narrator))
	female := newCycler(withoutVoice(pool.Female, narrator))

	out := make(types.ConversionVoiceMap, len(characters)+len(rareSentinels))

	pickFor := func(g types.Gender) types.VoiceID {
		switch g {
		case types.GenderMale:
			v, ok := male.pick()
			if !ok {
				v, _ = female.pick()
			}
			return v
		case types.GenderFemale:
			v, ok := female.pick()
			if !ok {
				v, _ = male.pick()
			}
			return v
		default:
			return pickAlternating(male, female)
		}
	}

	for _, c := range characters {
		v := pickFor(c.Gender)
		out[c.CanonicalName] = v
		for _, variant := range c.Variations {
			out[variant] = v
		}
	}

	out[types.MaleUnnamed] = pickFor(types.GenderMale)
	out[types.FemaleUnnamed] = pickFor(types.GenderFemale)
	out[types.UnknownUnnamed] = pickFor(types.GenderUnknown)

	return out
}

// pickAlternating chooses from whichever cycler has assigned fewer voices so
// far, preferring male on a tie (stable, deterministic).
func pickAlternating(male, female *cycler) types.VoiceID {
	if female.assignedCount() < male.assignedCount() {
		v, ok := female.pick()
		if ok {
			return v
		}
		v, _ = male.pick()
		return v
	}
	v, ok := male.pick()
	if ok {
		return v
	}
	v, _ = female.pick()
	return v
}

func withoutVoice(voices []types.VoiceID, exclude types.VoiceID) []types.VoiceID {
	out := make([]types.VoiceID, 0, len(voices))
	for _, v := range voices {
		if v != exclude {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		// No voice survives exclusion (e.g. pool has only the narrator
		// voice): fall back to the original pool so allocation can still
		// proceed, matching the "cycle from start" fallback behaviour.
		return voices
	}
	return out
}

// lineCount pairs a character with how many assignment lines reference it.
type lineCount struct {
	character types.Character
	count     int
	order     int
}

// AllocateByFrequency recomputes the voice map once SpeakerAssignments
// exist: characters are ranked by line count (descending, stable by first
// appearance), the top unique_slots = max(0, pool_size-1-3) characters each
// take the next voice of their gender ahead of everyone else, and the
// remainder share one "rare" voice per gender. Each gender pool cycles when
// exhausted, so when a gender has fewer non-narrator voices than the
// characters and sentinels drawing on it, a unique-slot voice is also given
// to another character or sentinel. Voice selection within a gender pool is
// sequential from the first available entry, never random, so outcomes are
// exactly reproducible.
func AllocateByFrequency(characters []types.Character, assignments []types.SpeakerAssignment, pool types.VoicePool, narrator types.VoiceID) types.ConversionVoiceMap {
	counts := make(map[string]int, len(characters))
	for _, a := range assignments {
		if a.Speaker == types.Narrator {
			continue
		}
		counts[a.Speaker]++
	}

	ranked := make([]lineCount, 0, len(characters))
	for i, c := range characters {
		n := counts[c.CanonicalName]
		for _, v := range c.Variations {
			n += counts[v]
		}
		ranked = append(ranked, lineCount{character: c, count: n, order: i})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].count > ranked[j].count
	})

	uniqueSlots := pool.Size() - 1 - len(rareSentinels)
	if uniqueSlots < 0 {
		uniqueSlots = 0
	}

	male := newCycler(withoutVoice(pool.Male, narrator))
	female := newCycler(withoutVoice(pool.Female, narrator))

	out := make(types.ConversionVoiceMap, len(characters)+len(rareSentinels))

	// Unique-slot characters draw sequentially from the front of each
	// gender pool first; only the remainder, plus the three sentinels,
	// share whatever is left.
	for i, lc := range ranked {
		if i >= uniqueSlots {
			break
		}
		v := pickFor(male, female, lc.character.Gender)
		out[lc.character.CanonicalName] = v
		for _, variant := range lc.character.Variations {
			out[variant] = v
		}
	}

	rareMale, _ := male.pick()
	rareFemale, _ := female.pick()
	out[types.MaleUnnamed] = rareMale
	out[types.FemaleUnnamed] = rareFemale
	unknownRare := pickAlternating(male, female)
	out[types.UnknownUnnamed] = unknownRare

	for i, lc := range ranked {
		if i < uniqueSlots {
			continue
		}
		var v types.VoiceID
		switch lc.character.Gender {
		case types.GenderMale:
			v = rareMale
		case types.GenderFemale:
			v = rareFemale
		default:
			v = unknownRare
		}
		out[lc.character.CanonicalName] = v
		for _, variant := range lc.character.Variations {
			out[variant] = v
		}
	}

	return out
}

func pickFor(male, female *cycler, g types.Gender) types.VoiceID {
	switch g {
	case types.GenderMale:
		v, ok := male.pick()
		if !ok {
			v, _ = female.pick()
		}
		return v
	case types.GenderFemale:
		v, ok := female.pick()
		if !ok {
			v, _ = male.pick()
		}
		return v
	default:
		return pickAlternating(male, female)
	}
}

// RemapAssignments rewrites each assignment's VoiceID from the current
// VoiceMap: "narrator" always maps to the narrator voice; any other speaker
// maps to voiceMap[speaker], falling back to the narrator voice if the
// speaker is absent from the map.
func RemapAssignments(assignments []types.SpeakerAssignment, voiceMap types.ConversionVoiceMap, narrator types.VoiceID) []types.SpeakerAssignment {
	out := make([]types.SpeakerAssignment, len(assignments))
	for i, a := range assignments {
		out[i] = a
		if a.Speaker == types.Narrator {
			out[i].VoiceID = narrator
			continue
		}
		if v, ok := voiceMap[a.Speaker]; ok {
			out[i].VoiceID = v
		} else {
			out[i].VoiceID = narrator
		}
	}
	return out
}

// FilterPoolForLanguage resolves the Multilingual-vs-regional voice
// deduplication open question: when the book's language has native voices in
// the pool, non-Multilingual variants are preferred and Multilingual
// duplicates of the same underlying voice are dropped; otherwise the
// Multilingual variant is kept. isNative reports whether a VoiceID is a
// native (non-Multilingual) voice for the target language; sameVoice reports
// whether two VoiceIDs are Multilingual/native variants of the same voice.
func FilterPoolForLanguage(pool types.VoicePool, isNative func(types.VoiceID) bool, sameVoice func(a, b types.VoiceID) bool) types.VoicePool {
	filterSide := func(voices []types.VoiceID) []types.VoiceID {
		hasNative := false
		for _, v := range voices {
			if isNative(v) {
				hasNative = true
				break
			}
		}
		if !hasNative {
			return voices
		}
		out := make([]types.VoiceID, 0, len(voices))
		for _, v := range voices {
			if isNative(v) {
				out = append(out, v)
				continue
			}
			// v is a Multilingual (or otherwise non-native) voice: drop it
			// only if a native counterpart for the same underlying voice
			// exists in the pool.
			dup := false
			for _, other := range voices {
				if other != v && isNative(other) && sameVoice(v, other) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, v)
			}
		}
		return out
	}

	return types.VoicePool{
		Male:   filterSide(pool.Male),
		Female: filterSide(pool.Female),
	}
}
