package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/artifact"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/pipeline"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session/inmemory"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/stt"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/tts"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/tutor"
	testutils "github.com/Dev-Vis1/German-voice-llm-tutor/pkg/utils/test"
)

func turnRequest(fields map[string]string, clip []byte) *http.Request {
	return turnRequestTo("/turn", fields, clip)
}

func turnRequestTo(target string, fields map[string]string, clip []byte) *http.Request {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		Expect(w.WriteField(k, v)).To(Succeed())
	}
	if clip != nil {
		part, err := w.CreateFormFile("audio", "clip.wav")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(clip)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(w.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode[T any](resp *http.Response) T {
	defer resp.Body.Close()
	var out T
	Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	return out
}

var _ = Describe("Server", func() {
	var (
		server *Server
		driver *inmemory.Driver
		store  *artifact.Store
		gen    *testutils.MockGenerator
		stt1   *testutils.MockSTTEngine
		clip   []byte
	)

	BeforeEach(func() {
		driver = inmemory.NewDriver()

		var err error
		store, err = artifact.NewStore(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		stt1 = &testutils.MockSTTEngine{EngineName: "whisper-cli", Text: "Ich gehe gestern ins Kino"}
		gen = &testutils.MockGenerator{
			Response: "KORRIGIERT: Ich bin gestern ins Kino gegangen.\nANTWORT: Welchen Film hast du gesehen?",
		}
		clip = testutils.SilentWAV()

		orch, err := pipeline.New(pipeline.Config{
			Sessions: driver,
			STT: stt.NewAdapter(stt.Config{
				Engines: []stt.Engine{stt1},
				Timeout: time.Second,
				TempDir: GinkgoT().TempDir(),
			}),
			Tutor: tutor.NewClient(tutor.Config{Generator: gen, Timeout: time.Second}),
			TTS: tts.NewAdapter(tts.Config{
				Engines: []tts.Engine{&testutils.MockTTSEngine{EngineName: "espeak"}},
				Timeout: time.Second,
				Store:   store,
			}),
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{ListenAddr: ":0", AudioDir: store.Dir()}, orch, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	It("answers ping", func() {
		resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	Describe("POST /turn", func() {
		It("runs a turn and serves its audio", func() {
			resp, err := server.app.Test(turnRequest(map[string]string{
				"session_id": "kino",
				"topic":      "travel",
			}, clip), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			out := decode[TurnResponse](resp)
			Expect(out.SessionID).To(Equal("kino"))
			Expect(out.TurnIndex).To(Equal(0))
			Expect(out.Status).To(Equal(session.StatusOK))
			Expect(out.State).To(Equal(session.StateCommitted))
			Expect(out.CorrectedForm).To(Equal("Ich bin gestern ins Kino gegangen."))
			Expect(out.ReplyText).To(Equal("Welchen Film hast du gesehen?"))
			Expect(out.AudioURL).To(Equal("/audio/kino/0.wav"))
			Expect(out.Provenance.STTEngine).To(Equal("whisper-cli"))

			audioResp, err := server.app.Test(httptest.NewRequest(http.MethodGet, out.AudioURL, nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(audioResp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(audioResp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(Equal(testutils.SilentWAV()))
		})

		It("keeps session ids from the query string apart", func() {
			ids := []string{"aaaaaaaa", "bbbbbbbb", "cccccccc"}
			for _, id := range ids {
				resp, err := server.app.Test(turnRequestTo("/turn?session_id="+id, map[string]string{
					"topic": "restaurant",
				}, clip), -1)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(decode[TurnResponse](resp).SessionID).To(Equal(id))
			}

			list, err := driver.List(context.Background())
			Expect(err).NotTo(HaveOccurred())
			got := make([]string, 0, len(list))
			for _, s := range list {
				got = append(got, s.ID)
			}
			Expect(got).To(ConsistOf(ids))

			for _, id := range ids {
				turns, err := driver.History(context.Background(), id, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(turns).To(HaveLen(1))
				Expect(turns[0].SessionID).To(Equal(id))
				Expect(turns[0].AudioURL).To(Equal("/audio/" + id + "/0.wav"))
			}
		})

		It("answers 503 and commits nothing when a turn outlives its timeout", func() {
			server.config.TurnTimeout = 50 * time.Millisecond
			stt1.Delay = 500 * time.Millisecond

			resp, err := server.app.Test(turnRequest(map[string]string{
				"session_id": "slow",
				"topic":      "work",
			}, clip), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
			Expect(decode[ErrorResponse](resp).Error).To(ContainSubstring("nothing was committed"))

			_, err = driver.Get(context.Background(), "slow")
			Expect(session.IsNotFound(err)).To(BeTrue())
			Expect(gen.Calls()).To(Equal(0))
		})

		It("mints a session id when none is given", func() {
			resp, err := server.app.Test(turnRequest(map[string]string{"topic": "work"}, clip), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			out := decode[TurnResponse](resp)
			Expect(out.SessionID).NotTo(BeEmpty())

			_, err = driver.Get(context.Background(), out.SessionID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects a request without audio", func() {
			resp, err := server.app.Test(turnRequest(map[string]string{"session_id": "x", "topic": "work"}, nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects undecodable audio", func() {
			resp, err := server.app.Test(turnRequest(map[string]string{
				"session_id": "x",
				"topic":      "work",
			}, []byte("not a wav")), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decode[ErrorResponse](resp).Error).NotTo(BeEmpty())
			Expect(stt1.Calls()).To(Equal(0))
		})

		It("rejects a new session without a topic", func() {
			resp, err := server.app.Test(turnRequest(map[string]string{"session_id": "x"}, clip), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("still returns a committed turn when the tutor fails", func() {
			gen.Err = context.DeadlineExceeded

			resp, err := server.app.Test(turnRequest(map[string]string{
				"session_id": "offline",
				"topic":      "restaurant",
			}, clip), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			out := decode[TurnResponse](resp)
			Expect(out.Status).To(Equal(session.StatusPartial))
			Expect(out.ReplyText).NotTo(BeEmpty())
			Expect(out.Provenance.ReplyFormat).To(Equal(session.FormatTemplate))
		})
	})

	Describe("GET /history/:session_id", func() {
		BeforeEach(func() {
			for range 3 {
				resp, err := server.app.Test(turnRequest(map[string]string{
					"session_id": "hist",
					"topic":      "shopping",
				}, clip), -1)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			}
		})

		It("returns every turn in order", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/history/hist", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			out := decode[HistoryResponse](resp)
			Expect(out.Topic).To(Equal("shopping"))
			Expect(out.Count).To(Equal(3))
			for i, t := range out.Turns {
				Expect(t.Index).To(Equal(i))
			}
		})

		It("honors the limit", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/history/hist?limit=2", nil))
			Expect(err).NotTo(HaveOccurred())

			out := decode[HistoryResponse](resp)
			Expect(out.Count).To(Equal(2))
			Expect(out.Turns[0].Index).To(Equal(1))
		})

		It("rejects a bad limit", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/history/hist?limit=abc", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for an unknown session", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/history/nobody", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("sessions", func() {
		It("lists and purges sessions", func() {
			resp, err := server.app.Test(turnRequest(map[string]string{
				"session_id": "gone",
				"topic":      "doctor",
			}, clip), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp, err = server.app.Test(httptest.NewRequest(http.MethodGet, "/sessions", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(decode[SessionsResponse](resp).Count).To(Equal(1))

			resp, err = server.app.Test(httptest.NewRequest(http.MethodDelete, "/sessions/gone", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			Expect(store.Exists(artifact.Key{SessionID: "gone", Index: 0})).To(BeFalse())

			resp, err = server.app.Test(httptest.NewRequest(http.MethodDelete, "/sessions/gone", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("rejects a malformed id", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodDelete, "/sessions/bad.id", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	It("reports engine status", func() {
		resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/status", nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		out := decode[pipeline.StatusReport](resp)
		Expect(out.STT).To(HaveLen(1))
		Expect(out.Offline).To(BeTrue())
	})
})
