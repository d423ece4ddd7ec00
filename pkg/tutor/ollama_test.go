package tutor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/tutor"
)

var _ = Describe("Ollama", func() {
	var (
		server  *httptest.Server
		status  int
		body    string
		lastReq map[string]any
	)

	BeforeEach(func() {
		status = http.StatusOK
		body = `{"response":"ANTWORT: Hallo!","done":true}`
		lastReq = nil

		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
			Expect(json.NewDecoder(r.Body).Decode(&lastReq)).To(Succeed())
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		})
		mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"models":[{"name":"llama3:latest"},{"name":"mistral:7b"}]}`))
		})

		server = httptest.NewServer(mux)
		DeferCleanup(server.Close)
	})

	It("sends a non-streaming generate request", func() {
		o := tutor.NewOllama(tutor.OllamaConfig{BaseURL: server.URL + "/", Model: "llama3"})

		out, err := o.Generate(context.Background(), "Hallo")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("ANTWORT: Hallo!"))
		Expect(lastReq).To(HaveKeyWithValue("model", "llama3"))
		Expect(lastReq).To(HaveKeyWithValue("prompt", "Hallo"))
		Expect(lastReq).To(HaveKeyWithValue("stream", false))
	})

	It("reports non-200 answers", func() {
		status = http.StatusNotFound
		body = `{"error":"model 'llama3' not found"}`
		o := tutor.NewOllama(tutor.OllamaConfig{BaseURL: server.URL})

		_, err := o.Generate(context.Background(), "Hallo")
		Expect(err).To(MatchError(ContainSubstring("404")))
	})

	It("reports errors in the response body", func() {
		body = `{"error":"out of memory"}`
		o := tutor.NewOllama(tutor.OllamaConfig{BaseURL: server.URL})

		_, err := o.Generate(context.Background(), "Hallo")
		Expect(err).To(MatchError(ContainSubstring("out of memory")))
	})

	It("lists installed models", func() {
		o := tutor.NewOllama(tutor.OllamaConfig{BaseURL: server.URL})

		models, err := o.Models(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(models).To(ConsistOf("llama3:latest", "mistral:7b"))
	})

	It("checks that the configured model is installed", func() {
		Expect(tutor.NewOllama(tutor.OllamaConfig{BaseURL: server.URL, Model: "llama3"}).Check(context.Background())).To(Succeed())
		Expect(tutor.NewOllama(tutor.OllamaConfig{BaseURL: server.URL, Model: "gemma"}).Check(context.Background())).NotTo(Succeed())
	})

	It("fails when the runtime is unreachable", func() {
		o := tutor.NewOllama(tutor.OllamaConfig{BaseURL: "http://127.0.0.1:1"})

		_, err := o.Generate(context.Background(), "Hallo")
		Expect(err).To(HaveOccurred())
	})

	It("uses defaults", func() {
		o := tutor.NewOllama(tutor.OllamaConfig{})
		Expect(o.Name()).To(Equal(tutor.OllamaName))
		Expect(o.Model()).To(Equal(tutor.DefaultModel))
	})
})
