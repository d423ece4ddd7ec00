package statuscmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/dotdir"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/pipeline"
)

var _ = Describe("statusCommander", func() {
	var (
		dir string
		out *bytes.Buffer
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	It("prints the session and the engine report", func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(pipeline.StatusReport{
				STT: []pipeline.EngineStatus{
					{Name: "whisper-cli", Available: true},
					{Name: "openai", Error: "401 unauthorized"},
				},
				Tutor: pipeline.TutorStatus{
					EngineStatus: pipeline.EngineStatus{Name: "ollama", Available: true},
					Models:       []string{"llama3:latest"},
				},
				TTS:     []pipeline.EngineStatus{{Name: "espeak", Available: true}},
				Offline: true,
			})
		})
		srv := httptest.NewServer(mux)
		DeferCleanup(srv.Close)

		Expect(dotdir.NewManager().SaveSessionState(&dotdir.SessionState{ID: "kino", Topic: "travel", LastTurn: 3}, dir)).To(Succeed())

		cmder := &statusCommander{apiTarget: srv.URL, configDir: dir, out: out}
		Expect(cmder.run(context.Background())).To(Succeed())

		Expect(out.String()).To(ContainSubstring("kino"))
		Expect(out.String()).To(ContainSubstring("401 unauthorized"))
		Expect(out.String()).To(ContainSubstring("llama3:latest"))
		Expect(out.String()).To(ContainSubstring("Offline capable"))
	})

	It("reports an unreachable server", func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		cmder := &statusCommander{apiTarget: srv.URL, configDir: dir, out: out}
		Expect(cmder.run(context.Background())).NotTo(Succeed())
		Expect(out.String()).To(ContainSubstring("No active session"))
		Expect(out.String()).To(ContainSubstring("not reachable"))
	})
})
