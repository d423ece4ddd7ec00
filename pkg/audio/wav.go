// Package audio validates the recorded clips a turn starts from.
//
// Only the RIFF/WAVE container is understood. Samples are never decoded;
// the clip bytes are handed to the speech-to-text engines untouched.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	formatPCM   = 1
	formatFloat = 3

	// MaxClipBytes bounds an uploaded clip (10 minutes of 16kHz 16-bit mono).
	MaxClipBytes = 10 * 60 * 16000 * 2
)

var (
	// ErrEmpty is returned for a zero-length clip.
	ErrEmpty = errors.New("audio clip is empty")

	// ErrUndecodable is returned when the clip is not a readable WAV file.
	ErrUndecodable = errors.New("audio clip is not a decodable WAV file")

	// ErrNotMono is returned for clips with more than one channel.
	ErrNotMono = errors.New("audio clip must be mono")

	// ErrTooLarge is returned when the clip exceeds MaxClipBytes.
	ErrTooLarge = errors.New("audio clip is too large")
)

// Clip is a validated mono WAV clip.
type Clip struct {
	Data          []byte
	SampleRate    int
	BitsPerSample int
	Duration      time.Duration
}

// Decode validates data as a mono PCM (or IEEE float) WAV clip.
func Decode(data []byte) (Clip, error) {
	if len(data) == 0 {
		return Clip{}, ErrEmpty
	}
	if len(data) > MaxClipBytes {
		return Clip{}, ErrTooLarge
	}
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return Clip{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrUndecodable)
	}

	var (
		fmtFound, dataFound bool
		format, channels    uint16
		bits                uint16
		sampleRate          uint32
		byteRate            uint32
		dataLen             uint32
	)

	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := binary.LittleEndian.Uint32(data[off+4 : off+8])
		body := off + 8
		end := body + int(size)

		switch id {
		case "fmt ":
			if size < 16 || end > len(data) {
				return Clip{}, fmt.Errorf("%w: short fmt chunk", ErrUndecodable)
			}
			format = binary.LittleEndian.Uint16(data[body:])
			channels = binary.LittleEndian.Uint16(data[body+2:])
			sampleRate = binary.LittleEndian.Uint32(data[body+4:])
			byteRate = binary.LittleEndian.Uint32(data[body+8:])
			bits = binary.LittleEndian.Uint16(data[body+14:])
			fmtFound = true

		case "data":
			// Streaming writers leave the size at 0 or 0xFFFFFFFF; take what is there.
			if end > len(data) || size == 0 {
				end = len(data)
				size = uint32(end - body)
			}
			dataLen = size
			dataFound = true
		}

		// Chunks are word aligned.
		off = end + int(size%2)
		if dataFound && fmtFound {
			break
		}
	}

	switch {
	case !fmtFound:
		return Clip{}, fmt.Errorf("%w: missing fmt chunk", ErrUndecodable)
	case !dataFound:
		return Clip{}, fmt.Errorf("%w: missing data chunk", ErrUndecodable)
	case format != formatPCM && format != formatFloat:
		return Clip{}, fmt.Errorf("%w: unsupported sample format %d", ErrUndecodable, format)
	case sampleRate == 0 || bits == 0:
		return Clip{}, fmt.Errorf("%w: zero sample rate or bit depth", ErrUndecodable)
	case channels != 1:
		return Clip{}, fmt.Errorf("%w: got %d channels", ErrNotMono, channels)
	case dataLen == 0:
		return Clip{}, ErrEmpty
	}

	if byteRate == 0 {
		byteRate = sampleRate * uint32(bits) / 8
	}

	return Clip{
		Data:          data,
		SampleRate:    int(sampleRate),
		BitsPerSample: int(bits),
		Duration:      time.Duration(float64(dataLen) / float64(byteRate) * float64(time.Second)),
	}, nil
}

// EncodePCM16 wraps 16-bit little endian mono samples in a WAV container.
func EncodePCM16(samples []int16, sampleRate int) []byte {
	var buf bytes.Buffer
	dataLen := uint32(len(samples) * 2)

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(formatPCM))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	_ = binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes()
}
