package pipeline

import "github.com/textcast/orchestrator/pkg/types"

// Context is the shared, monotonic state threaded through pipeline steps.
// Fields are only ever set by the step that produces them or removed by a
// step's declared DropsKeys; no step mutates a field it did not produce
// without going through Set.
type Context struct {
	Text      string
	FileNames []types.FileNameEntry

	Characters  []types.Character
	characersSet bool

	VoiceMap    types.ConversionVoiceMap
	voiceMapSet bool

	Assignments    []types.SpeakerAssignment
	assignmentsSet bool

	AudioMap    map[int]string // partIndex -> chunk filename
	audioMapSet bool

	TempDirHandle string
	tempDirSet    bool

	FailedTasks    map[int]error
	failedTasksSet bool

	SavedFileCount int
}

// Key names understood by Required/Drops declarations.
const (
	KeyText           = "text"
	KeyFileNames      = "fileNames"
	KeyCharacters     = "characters"
	KeyVoiceMap       = "voiceMap"
	KeyAssignments    = "assignments"
	KeyAudioMap       = "audioMap"
	KeyTempDirHandle  = "tempDirHandle"
	KeyFailedTasks    = "failedTasks"
	KeySavedFileCount = "savedFileCount"
)

// Has reports whether the named key is currently present on the context.
func (c *Context) Has(key string) bool {
	switch key {
	case KeyText:
		return c.Text != ""
	case KeyFileNames:
		return c.FileNames != nil
	case KeyCharacters:
		return c.characersSet
	case KeyVoiceMap:
		return c.voiceMapSet
	case KeyAssignments:
		return c.assignmentsSet
	case KeyAudioMap:
		return c.audioMapSet
	case KeyTempDirHandle:
		return c.tempDirSet
	case KeyFailedTasks:
		return c.failedTasksSet
	case KeySavedFileCount:
		return true
	default:
		return false
	}
}

// Drop removes the named key from the context, per a step's declared
// DropsKeys, freeing the underlying memory deterministically.
func (c *Context) Drop(key string) {
	switch key {
	case KeyCharacters:
		c.Characters = nil
		c.characersSet = false
	case KeyVoiceMap:
		c.VoiceMap = nil
		c.voiceMapSet = false
	case KeyAssignments:
		c.Assignments = nil
		c.assignmentsSet = false
	case KeyAudioMap:
		c.AudioMap = nil
		c.audioMapSet = false
	case KeyTempDirHandle:
		c.TempDirHandle = ""
		c.tempDirSet = false
	case KeyFailedTasks:
		c.FailedTasks = nil
		c.failedTasksSet = false
	}
}

// SetCharacters records the extracted character list.
func (c *Context) SetCharacters(v []types.Character) {
	c.Characters = v
	c.characersSet = true
}

// SetVoiceMap records the current voice map.
func (c *Context) SetVoiceMap(v types.ConversionVoiceMap) {
	c.VoiceMap = v
	c.voiceMapSet = true
}

// SetAssignments records the current speaker assignments.
func (c *Context) SetAssignments(v []types.SpeakerAssignment) {
	c.Assignments = v
	c.assignmentsSet = true
}

// SetAudioMap records the partIndex -> chunk filename map produced by TTS.
func (c *Context) SetAudioMap(v map[int]string) {
	c.AudioMap = v
	c.audioMapSet = true
}

// SetTempDirHandle records the _temp_work directory path.
func (c *Context) SetTempDirHandle(v string) {
	c.TempDirHandle = v
	c.tempDirSet = true
}

// SetFailedTasks records tasks that exhausted retries during TTS.
func (c *Context) SetFailedTasks(v map[int]error) {
	c.FailedTasks = v
	c.failedTasksSet = true
}

// Clone returns a shallow copy of the context, used by pause handlers that
// may return an edited view without aliasing the runner's working copy.
func (c *Context) Clone() *Context {
	cp := *c
	return &cp
}
