package whispercli_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/stt"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/stt/whispercli"
)

// fakeWhisper mimics the whisper CLI: it writes <stem>.txt into --output_dir.
const fakeWhisper = `#!/bin/sh
in="$1"
shift
while [ $# -gt 0 ]; do
  case "$1" in
    --output_dir) out="$2"; shift ;;
  esac
  shift
done
stem=$(basename "$in" .wav)
printf ' Ich gehe morgen ins Kino. \n' > "$out/$stem.txt"
`

const brokenWhisper = `#!/bin/sh
echo "model not found" >&2
exit 1
`

func writeScript(dir, body string) string {
	path := filepath.Join(dir, "whisper")
	Expect(os.WriteFile(path, []byte(body), 0o755)).To(Succeed())
	return path
}

var _ = Describe("Engine", func() {
	var (
		dir  string
		clip string
	)

	BeforeEach(func() {
		if runtime.GOOS == "windows" {
			Skip("shell script fakes need a POSIX shell")
		}
		dir = GinkgoT().TempDir()
		clip = filepath.Join(dir, "tutor-clip-1.wav")
		Expect(os.WriteFile(clip, []byte("RIFF"), 0o600)).To(Succeed())
	})

	It("reads the transcript whisper writes", func() {
		e := whispercli.New(whispercli.Config{Binary: writeScript(dir, fakeWhisper), Model: "base"})

		text, err := e.Transcribe(context.Background(), stt.Input{Path: clip}, "de")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Ich gehe morgen ins Kino."))
	})

	It("reports the CLI's stderr when it fails", func() {
		e := whispercli.New(whispercli.Config{Binary: writeScript(dir, brokenWhisper)})

		_, err := e.Transcribe(context.Background(), stt.Input{Path: clip}, "de")
		Expect(err).To(MatchError(ContainSubstring("model not found")))
	})

	It("needs a clip file", func() {
		e := whispercli.New(whispercli.Config{Binary: writeScript(dir, fakeWhisper)})

		_, err := e.Transcribe(context.Background(), stt.Input{}, "de")
		Expect(err).To(HaveOccurred())
	})

	It("fails the check when the binary is missing", func() {
		e := whispercli.New(whispercli.Config{Binary: filepath.Join(dir, "does-not-exist")})
		Expect(e.Check(context.Background())).NotTo(Succeed())
		Expect(e.Name()).To(Equal(whispercli.Name))
	})
})
