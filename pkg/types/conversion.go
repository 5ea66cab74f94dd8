package types

// Gender constraints a character or sentinel voice slot.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Sentinel canonical names used when no character owns a line.
const (
	MaleUnnamed    = "MALE_UNNAMED"
	FemaleUnnamed  = "FEMALE_UNNAMED"
	UnknownUnnamed = "UNKNOWN_UNNAMED"
	Narrator       = "narrator"
)

// Character is a speaker discovered in the source text.
type Character struct {
	CanonicalName string   `json:"canonicalName"`
	Gender        Gender   `json:"gender"`
	Variations    []string `json:"variations"`
}

// VoiceID is an opaque identifier for a TTS voice, e.g. "en-US, GuyNeural".
// Equality is byte-exact.
type VoiceID string

// VoicePool holds the enabled voices split by gender. No VoiceID appears in
// both sequences; the narrator voice may be present in either.
type VoicePool struct {
	Male   []VoiceID
	Female []VoiceID
}

// Size returns the total number of voices across both genders.
func (p VoicePool) Size() int {
	return len(p.Male) + len(p.Female)
}

// ConversionVoiceMap maps a canonical character name (or one of the three
// sentinel keys) to the VoiceID it should use. Every character must map.
type ConversionVoiceMap map[string]VoiceID

// Clone returns a shallow copy safe to mutate independently.
func (m ConversionVoiceMap) Clone() ConversionVoiceMap {
	out := make(ConversionVoiceMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SpeakerAssignment binds one sentence to a speaker and, after remapping, a
// concrete voice.
type SpeakerAssignment struct {
	SentenceIndex int     `json:"sentenceIndex"`
	Text          string  `json:"text"`
	Speaker       string  `json:"speaker"`
	VoiceID       VoiceID `json:"voiceId"`
}

// FileNameEntry pairs a chapter/file name with the sentence index at which
// it begins.
type FileNameEntry struct {
	Name               string `json:"name"`
	StartSentenceIndex int    `json:"startSentenceIndex"`
}

// AudioChunk describes one synthesized sentence persisted to disk.
type AudioChunk struct {
	PartIndex int
	Filename  string // chunk_NNNNNN.bin
	Size      int64
}

// MergeGroup is a contiguous range of chunks destined for one output file.
type MergeGroup struct {
	FromIndex   int
	ToIndex     int // inclusive
	Filename    string
	MergeNumber int
	DurationMs  int64
}

// PipelineState is the on-disk, resumable snapshot written after speaker
// assignment.
type PipelineState struct {
	Assignments       []SpeakerAssignment `json:"assignments"`
	CharacterVoiceMap map[string]string   `json:"characterVoiceMap"`
	Characters        []Character         `json:"characters"`
	FileNames         []FileNameEntry     `json:"fileNames"`
}

// VoiceMapExport is the v1 on-disk voice mapping export format.
type VoiceMapExport struct {
	Version  int                `json:"version"`
	Narrator VoiceID            `json:"narrator"`
	Voices   []VoiceMapExportEntry `json:"voices"`
}

// VoiceMapExportEntry is one exported character-to-voice binding.
type VoiceMapExportEntry struct {
	Name    string   `json:"name"`
	Voice   VoiceID  `json:"voice"`
	Gender  Gender   `json:"gender"`
	Aliases []string `json:"aliases"`
}
