package configcmder_test

import (
	"bytes"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/Dev-Vis1/German-voice-llm-tutor/cmd/tutor/config"
)

// newRoot mirrors the persistent flag the root command provides.
func newRoot(dir string, args ...string) (*cobra.Command, *bytes.Buffer) {
	root := &cobra.Command{Use: "tutor"}
	root.PersistentFlags().String("config-dir", "", "")
	root.AddCommand(configcmder.NewConfigCmd())

	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(append([]string{"--config-dir", dir}, args...))
	return root, out
}

var _ = Describe("NewConfigCmd", func() {
	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("sets and gets a value", func() {
		root, _ := newRoot(dir, "config", "set", "tutor.model", "llama3.1")
		Expect(root.Execute()).To(Succeed())
		Expect(filepath.Join(dir, "config.toml")).To(BeARegularFile())

		root, out := newRoot(dir, "config", "get", "tutor.model")
		Expect(root.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("llama3.1"))
	})

	It("rejects unknown keys", func() {
		root, _ := newRoot(dir, "config", "set", "proxy.provider", "anthropic")
		Expect(root.Execute()).To(MatchError(ContainSubstring("unknown config key")))
	})

	It("rejects an invalid duration", func() {
		root, _ := newRoot(dir, "config", "set", "stt.timeout", "soon")
		Expect(root.Execute()).To(HaveOccurred())
	})

	It("requires exactly two arguments for set", func() {
		root, _ := newRoot(dir, "config", "set", "tutor.model")
		Expect(root.Execute()).To(HaveOccurred())
	})

	It("lists defaults for every key", func() {
		root, out := newRoot(dir, "config", "list")
		Expect(root.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring(`tts.engines`))
		Expect(out.String()).To(ContainSubstring(`"openai,espeak"`))
		Expect(out.String()).To(ContainSubstring(`storage.postgres_dsn`))
	})
})
