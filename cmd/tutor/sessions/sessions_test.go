package sessionscmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/api"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/dotdir"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

var _ = Describe("sessionsCommander", func() {
	var (
		dir     string
		out     *bytes.Buffer
		cmder   *sessionsCommander
		deleted []string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
		deleted = nil

		mux := http.NewServeMux()
		mux.HandleFunc("GET /sessions", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(api.SessionsResponse{
				Count: 1,
				Sessions: []*session.Session{
					{ID: "arzt", Topic: "doctor", TurnCount: 4, CreatedAt: time.Now()},
				},
			})
		})
		mux.HandleFunc("DELETE /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
			deleted = append(deleted, r.PathValue("id"))
			w.WriteHeader(http.StatusNoContent)
		})
		srv := httptest.NewServer(mux)
		DeferCleanup(srv.Close)

		cmder = &sessionsCommander{apiTarget: srv.URL, configDir: dir, out: out}
	})

	It("lists sessions", func() {
		Expect(cmder.runList(context.Background())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("arzt"))
		Expect(out.String()).To(ContainSubstring("4 turns"))
	})

	It("purges and forgets the active session", func() {
		ddm := dotdir.NewManager()
		Expect(ddm.SaveSessionState(&dotdir.SessionState{ID: "arzt"}, dir)).To(Succeed())

		cmder.purge = "arzt"
		Expect(cmder.runPurge(context.Background())).To(Succeed())
		Expect(deleted).To(Equal([]string{"arzt"}))

		state, err := ddm.LoadSessionState(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("keeps a different active session", func() {
		ddm := dotdir.NewManager()
		Expect(ddm.SaveSessionState(&dotdir.SessionState{ID: "kino"}, dir)).To(Succeed())

		cmder.purge = "arzt"
		Expect(cmder.runPurge(context.Background())).To(Succeed())

		state, err := ddm.LoadSessionState(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.ID).To(Equal("kino"))
	})
})
