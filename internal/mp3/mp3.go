// Package mp3 computes the duration of MPEG Audio byte buffers by decoding
// frame headers, without depending on an external bitrate-table library.
package mp3

import "fmt"

// version identifies the MPEG version of a frame.
type version int

const (
	versionMPEG25 version = iota
	versionReserved
	versionMPEG2
	versionMPEG1
)

// layer identifies the MPEG layer of a frame.
type layer int

const (
	layerReserved layer = iota
	layerIII
	layerII
	layerI
)

// bitrate tables indexed [layer][bitrateIndex], in kbps: bitrateTableV1 for
// MPEG1, bitrateTableV2 for MPEG2/2.5 (layers II and III share a row there).
var bitrateTableV1 = map[layer][16]int{
	layerI:   {0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, -1},
	layerII:  {0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, -1},
	layerIII: {0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, -1},
}

var bitrateTableV2 = map[layer][16]int{
	layerI:   {0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256, -1},
	layerII:  {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, -1},
	layerIII: {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, -1},
}

var sampleRateTableV1 = [4]int{44100, 48000, 32000, -1}
var sampleRateTableV2 = [4]int{22050, 24000, 16000, -1}
var sampleRateTableV25 = [4]int{11025, 12000, 8000, -1}

// ErrNoSync is returned when no valid MPEG frame sync could be located.
var ErrNoSync = fmt.Errorf("mp3: no frame sync found")

// frame is one decoded MPEG Audio frame header.
type frame struct {
	sizeBytes  int
	durationMs float64
}

// decodeFrame parses the four-byte header at buf[offset:] and returns the
// frame's byte size and duration. It returns an error if the header is not a
// valid MPEG frame sync.
func decodeFrame(buf []byte, offset int) (frame, error) {
	if offset+4 > len(buf) {
		return frame{}, fmt.Errorf("mp3: truncated header at offset %d", offset)
	}
	b0, b1, b2, b3 := buf[offset], buf[offset+1], buf[offset+2], buf[offset+3]

	if b0 != 0xFF || (b1&0xE0) != 0xE0 {
		return frame{}, fmt.Errorf("mp3: bad sync at offset %d", offset)
	}

	verBits := (b1 >> 3) & 0x03
	layBits := (b1 >> 1) & 0x03
	bitrateIdx := (b2 >> 4) & 0x0F
	sampleIdx := (b2 >> 2) & 0x03
	padding := (b2 >> 1) & 0x01
	channelMode := (b3 >> 6) & 0x03
	_ = channelMode

	ver := version(verBits)
	lay := layer(layBits)

	if ver == versionReserved || lay == layerReserved {
		return frame{}, fmt.Errorf("mp3: reserved version/layer at offset %d", offset)
	}
	if bitrateIdx == 0 || bitrateIdx == 0x0F {
		return frame{}, fmt.Errorf("mp3: invalid bitrate index at offset %d", offset)
	}
	if sampleIdx == 0x03 {
		return frame{}, fmt.Errorf("mp3: invalid sample rate index at offset %d", offset)
	}

	var sampleRate int
	switch ver {
	case versionMPEG1:
		sampleRate = sampleRateTableV1[sampleIdx]
	case versionMPEG2:
		sampleRate = sampleRateTableV2[sampleIdx]
	case versionMPEG25:
		sampleRate = sampleRateTableV25[sampleIdx]
	}
	if sampleRate <= 0 {
		return frame{}, fmt.Errorf("mp3: invalid sample rate at offset %d", offset)
	}

	var bitrateKbps int
	if ver == versionMPEG1 {
		bitrateKbps = bitrateTableV1[lay][bitrateIdx]
	} else {
		bitrateKbps = bitrateTableV2[lay][bitrateIdx]
	}
	if bitrateKbps <= 0 {
		return frame{}, fmt.Errorf("mp3: invalid bitrate at offset %d", offset)
	}

	mono := channelMode == 0x03

	var sizeBytes int
	switch lay {
	case layerI:
		sizeBytes = ((12*bitrateKbps*1000/sampleRate + int(padding)) * 4)
	default: // II, III
		k := 144
		if mono {
			k = 72
		}
		// spec formula names K=72 mono/144 stereo for layer II/III generically;
		// honored literally here regardless of layer II vs III.
		sizeBytes = k*bitrateKbps*1000/sampleRate + int(padding)
	}
	if sizeBytes <= 0 {
		return frame{}, fmt.Errorf("mp3: computed non-positive frame size at offset %d", offset)
	}

	var samplesPerFrame int
	switch {
	case lay == layerI:
		samplesPerFrame = 384
	case lay == layerII:
		samplesPerFrame = 1152
	case lay == layerIII && ver == versionMPEG1:
		samplesPerFrame = 1152
	default: // layer III, MPEG2/2.5
		samplesPerFrame = 576
	}

	durationMs := float64(samplesPerFrame) / float64(sampleRate) * 1000.0

	return frame{sizeBytes: sizeBytes, durationMs: durationMs}, nil
}

// skipID3v2 returns the number of leading bytes occupied by an ID3v2 tag, or
// 0 if none is present.
func skipID3v2(buf []byte) int {
	if len(buf) < 10 || buf[0] != 'I' || buf[1] != 'D' || buf[2] != '3' {
		return 0
	}
	size := int(buf[6]&0x7F)<<21 | int(buf[7]&0x7F)<<14 | int(buf[8]&0x7F)<<7 | int(buf[9]&0x7F)
	return 10 + size
}

// findSync scans forward from offset for the next valid frame sync byte
// pair, returning -1 if none is found.
func findSync(buf []byte, offset int) int {
	for i := offset; i+1 < len(buf); i++ {
		if buf[i] == 0xFF && (buf[i+1]&0xE0) == 0xE0 {
			return i
		}
	}
	return -1
}

// ParseDuration computes the duration in milliseconds of the MPEG Audio
// buffer. It skips an optional ID3v2 tag, parses up to maxSampleFrames frame
// headers, resyncing past any malformed header, and extrapolates remaining
// bytes proportionally to the average frame duration observed so far.
//
// Returns 0, ErrNoSync if no valid frame sync could be located.
func ParseDuration(buf []byte, maxSampleFrames int) (int, error) {
	if maxSampleFrames <= 0 {
		maxSampleFrames = 100
	}

	offset := skipID3v2(buf)

	start := findSync(buf, offset)
	if start < 0 {
		return 0, ErrNoSync
	}
	offset = start

	var totalMs float64
	var bytesParsed int
	framesParsed := 0

	for framesParsed < maxSampleFrames && offset < len(buf) {
		f, err := decodeFrame(buf, offset)
		if err != nil {
			next := findSync(buf, offset+1)
			if next < 0 {
				break
			}
			offset = next
			continue
		}
		totalMs += f.durationMs
		bytesParsed += f.sizeBytes
		offset += f.sizeBytes
		framesParsed++
	}

	if bytesParsed == 0 {
		return 0, ErrNoSync
	}

	remaining := len(buf) - offset
	if remaining > 0 {
		totalMs += float64(remaining) * (totalMs / float64(bytesParsed))
	}

	return int(totalMs + 0.5), nil
}
