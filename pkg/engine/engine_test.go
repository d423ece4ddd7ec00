package engine_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/engine"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/logger"
)

type fakeEngine struct {
	name  string
	out   string
	err   error
	delay time.Duration
	calls int
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) do(ctx context.Context) (string, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.out, f.err
}

func call(ctx context.Context, e *fakeEngine) (string, error) {
	return e.do(ctx)
}

func nonEmpty(s string) error {
	if s == "" {
		return fmt.Errorf("empty output: %w", engine.ErrMalformedOutput)
	}
	return nil
}

var _ = Describe("Classify", func() {
	It("maps deadline errors to timeout", func() {
		err := fmt.Errorf("whisper: %w", context.DeadlineExceeded)
		Expect(engine.Classify(err)).To(Equal(engine.KindTimeout))
	})

	It("maps malformed output errors", func() {
		err := fmt.Errorf("empty transcript: %w", engine.ErrMalformedOutput)
		Expect(engine.Classify(err)).To(Equal(engine.KindMalformedOutput))
	})

	It("maps everything else to unavailable", func() {
		Expect(engine.Classify(errors.New("connection refused"))).To(Equal(engine.KindUnavailable))
	})

	It("keeps an existing failure when building a new one", func() {
		inner := &engine.Failure{Kind: engine.KindTimeout, Engine: "espeak", Err: errors.New("slow")}
		f := engine.NewFailure("other", fmt.Errorf("wrapped: %w", inner))
		Expect(f).To(BeIdenticalTo(inner))
	})
})

var _ = Describe("Run", func() {
	var (
		ctx     context.Context
		primary *fakeEngine
		backup  *fakeEngine
		chain   engine.Chain[*fakeEngine]
	)

	BeforeEach(func() {
		ctx = context.Background()
		primary = &fakeEngine{name: "primary", out: "hallo"}
		backup = &fakeEngine{name: "backup", out: "servus"}
		chain = engine.Chain[*fakeEngine]{
			Engines: []*fakeEngine{primary, backup},
			Stage:   "test",
			Logger:  logger.Nop(),
		}
	})

	It("returns the primary value without touching the backup", func() {
		res := engine.Run(ctx, chain, call, nonEmpty)
		Expect(res.OK()).To(BeTrue())
		Expect(res.Value).To(Equal("hallo"))
		Expect(res.Engine).To(Equal("primary"))
		Expect(res.Attempts).To(BeEmpty())
		Expect(backup.calls).To(Equal(0))
	})

	It("falls back when the primary errors", func() {
		primary.err = errors.New("not installed")
		res := engine.Run(ctx, chain, call, nonEmpty)
		Expect(res.OK()).To(BeTrue())
		Expect(res.Engine).To(Equal("backup"))
		Expect(res.Attempts).To(HaveLen(1))
		Expect(res.Attempts[0].Kind).To(Equal(engine.KindUnavailable))
		Expect(primary.calls).To(Equal(1))
	})

	It("treats a rejected value as malformed output", func() {
		primary.out = ""
		res := engine.Run(ctx, chain, call, nonEmpty)
		Expect(res.Engine).To(Equal("backup"))
		Expect(res.Attempts[0].Kind).To(Equal(engine.KindMalformedOutput))
	})

	It("bounds each engine call with the chain timeout", func() {
		primary.delay = time.Second
		chain.Timeout = 20 * time.Millisecond
		res := engine.Run(ctx, chain, call, nonEmpty)
		Expect(res.OK()).To(BeTrue())
		Expect(res.Engine).To(Equal("backup"))
		Expect(res.Attempts[0].Kind).To(Equal(engine.KindTimeout))
	})

	It("returns the last failure when every engine fails", func() {
		primary.err = errors.New("first")
		backup.err = errors.New("second")
		res := engine.Run(ctx, chain, call, nil)
		Expect(res.OK()).To(BeFalse())
		Expect(res.Failure.Engine).To(Equal("backup"))
		Expect(res.Failure.Err).To(MatchError("second"))
		Expect(res.Attempts).To(HaveLen(2))
		Expect(primary.calls).To(Equal(1))
		Expect(backup.calls).To(Equal(1))
	})

	It("stops after the caller cancels", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		primary.delay = time.Second
		res := engine.Run(cctx, chain, call, nil)
		Expect(res.OK()).To(BeFalse())
		Expect(backup.calls).To(Equal(0))
	})

	It("fails without engines", func() {
		res := engine.Run(ctx, engine.Chain[*fakeEngine]{}, call, nil)
		Expect(res.OK()).To(BeFalse())
		Expect(res.Failure.Err).To(MatchError(engine.ErrNoEngines))
	})
})
