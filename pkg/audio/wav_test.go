package audio_test

import (
	"encoding/binary"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/audio"
)

var _ = Describe("Decode", func() {
	It("accepts a mono 16-bit clip", func() {
		data := audio.EncodePCM16(make([]int16, 16000), 16000)

		clip, err := audio.Decode(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(clip.SampleRate).To(Equal(16000))
		Expect(clip.BitsPerSample).To(Equal(16))
		Expect(clip.Duration).To(Equal(time.Second))
		Expect(clip.Data).To(Equal(data))
	})

	It("rejects empty input", func() {
		_, err := audio.Decode(nil)
		Expect(err).To(MatchError(audio.ErrEmpty))
	})

	It("rejects a clip without samples", func() {
		_, err := audio.Decode(audio.EncodePCM16(nil, 16000))
		Expect(err).To(MatchError(audio.ErrEmpty))
	})

	It("rejects data that is not WAV", func() {
		_, err := audio.Decode([]byte("ID3\x03 this is an mp3"))
		Expect(err).To(MatchError(audio.ErrUndecodable))
	})

	It("rejects stereo clips", func() {
		data := audio.EncodePCM16(make([]int16, 100), 16000)
		// channel count lives right after the format tag in the fmt chunk
		binary.LittleEndian.PutUint16(data[22:], 2)

		_, err := audio.Decode(data)
		Expect(err).To(MatchError(audio.ErrNotMono))
	})

	It("rejects compressed formats", func() {
		data := audio.EncodePCM16(make([]int16, 100), 16000)
		binary.LittleEndian.PutUint16(data[20:], 7)

		_, err := audio.Decode(data)
		Expect(err).To(MatchError(ContainSubstring("unsupported sample format")))
	})

	It("tolerates a streaming data size", func() {
		data := audio.EncodePCM16(make([]int16, 8000), 16000)
		binary.LittleEndian.PutUint32(data[40:], 0xFFFFFFFF)

		clip, err := audio.Decode(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(clip.Duration).To(Equal(500 * time.Millisecond))
	})

	It("rejects oversized clips", func() {
		_, err := audio.Decode(make([]byte, audio.MaxClipBytes+1))
		Expect(err).To(MatchError(audio.ErrTooLarge))
	})
})
