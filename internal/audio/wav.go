// Package audio provides in-memory WAV framing for the Synthesizer: no
// filesystem staging, matching spec.md §4.3's "generate audio entirely in
// memory" requirement.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
)

// WAVHeader describes a PCM WAV stream's format chunk.
type WAVHeader struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultHeader is the mono, 16-bit, 22.05kHz format used when an engine
// doesn't report its own.
func DefaultHeader() WAVHeader {
	return WAVHeader{SampleRate: 22050, Channels: 1, BitsPerSample: 16}
}

// EncodeWAV wraps raw 16-bit little-endian PCM samples in a WAV container
// header, entirely in memory.
func EncodeWAV(pcm []byte, hdr WAVHeader) []byte {
	if hdr.Channels <= 0 {
		hdr.Channels = 1
	}
	if hdr.BitsPerSample <= 0 {
		hdr.BitsPerSample = 16
	}
	if hdr.SampleRate <= 0 {
		hdr.SampleRate = 22050
	}

	blockAlign := hdr.Channels * hdr.BitsPerSample / 8
	byteRate := hdr.SampleRate * blockAlign
	dataLen := len(pcm)
	totalLen := 44 + dataLen

	buf := make([]byte, totalLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(totalLen-8))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(hdr.Channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(hdr.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(hdr.BitsPerSample))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	copy(buf[44:], pcm)

	return buf
}

// SamplesToWAV encodes float32 PCM samples (range [-1, 1]) as a mono
// 16-bit WAV byte slice.
func SamplesToWAV(samples []float32, sampleRate int) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		clamped := float32(math.Max(-1, math.Min(1, float64(s))))
		val := int16(clamped * math.MaxInt16)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(val))
	}
	return EncodeWAV(pcm, WAVHeader{SampleRate: sampleRate, Channels: 1, BitsPerSample: 16})
}

// ErrInvalidWAV is returned by DurationSeconds when the blob isn't a
// well-formed WAV container.
var ErrInvalidWAV = errors.New("audio: not a valid WAV file")

// DurationSeconds estimates a WAV blob's playback duration from its
// header, without decoding the sample data.
func DurationSeconds(wav []byte) (float64, error) {
	if len(wav) < 44 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return 0, ErrInvalidWAV
	}

	channels := binary.LittleEndian.Uint16(wav[22:24])
	sampleRate := binary.LittleEndian.Uint32(wav[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(wav[34:36])
	dataLen := binary.LittleEndian.Uint32(wav[40:44])

	blockAlign := int(channels) * int(bitsPerSample) / 8
	if blockAlign == 0 || sampleRate == 0 {
		return 0, ErrInvalidWAV
	}

	frames := float64(dataLen) / float64(blockAlign)
	return frames / float64(sampleRate), nil
}

// EncodeBase64 is a thin alias kept for call-site clarity at Synthesizer
// call sites building Audio records.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
