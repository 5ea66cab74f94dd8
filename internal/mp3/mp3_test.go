package mp3

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameBytes() []byte {
	header := []byte{0xFF, 0xF2, 0xA4, 0xC0}
	frame := make([]byte, 288)
	copy(frame, header)
	return frame
}

func TestParseDuration_ExactFrames(t *testing.T) {
	var buf bytes.Buffer
	f := frameBytes()
	for i := 0; i < 100; i++ {
		buf.Write(f)
	}

	ms, err := ParseDuration(buf.Bytes(), 100)
	require.NoError(t, err)
	assert.Equal(t, 2400, ms)
}

func TestParseDuration_Extrapolation(t *testing.T) {
	var buf bytes.Buffer
	f := frameBytes()
	for i := 0; i < 150; i++ {
		buf.Write(f)
	}

	ms, err := ParseDuration(buf.Bytes(), 100)
	require.NoError(t, err)
	assert.Equal(t, 3600, ms)
}

func TestParseDuration_SkipsID3v2(t *testing.T) {
	id3 := []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 0}
	var buf bytes.Buffer
	buf.Write(id3)
	buf.Write(frameBytes())

	ms, err := ParseDuration(buf.Bytes(), 100)
	require.NoError(t, err)
	assert.Equal(t, 24, ms)
}

func TestParseDuration_NoSync(t *testing.T) {
	_, err := ParseDuration([]byte{0x00, 0x01, 0x02, 0x03}, 100)
	assert.ErrorIs(t, err, ErrNoSync)
}

func TestParseDuration_ResyncsPastBadHeader(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFA, 0xFA, 0xFA}) // invalid bitrate index 0xF
	buf.Write(frameBytes())

	ms, err := ParseDuration(buf.Bytes(), 100)
	require.NoError(t, err)
	assert.Equal(t, 24, ms)
}
