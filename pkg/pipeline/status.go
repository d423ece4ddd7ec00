package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/engine"
)

// checkTimeout bounds each availability probe.
const checkTimeout = 5 * time.Second

// EngineStatus reports whether one engine is usable.
type EngineStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// TutorStatus reports the language model runtime.
type TutorStatus struct {
	EngineStatus
	Models []string `json:"models,omitempty"`
}

// StatusReport is the availability of every configured engine.
type StatusReport struct {
	STT   []EngineStatus `json:"stt"`
	Tutor TutorStatus    `json:"tutor"`
	TTS   []EngineStatus `json:"tts"`

	// Offline is true when at least one speech-to-text and one text-to-speech
	// engine answer. The tutor can always fall back to templates.
	Offline bool `json:"offline_capable"`
}

type modelLister interface {
	Models(ctx context.Context) ([]string, error)
}

// Status probes every engine concurrently. Engines that cannot be probed are
// reported as available.
func (o *Orchestrator) Status(ctx context.Context) StatusReport {
	sttEngines := o.stt.Engines()
	ttsEngines := o.tts.Engines()

	report := StatusReport{
		STT: make([]EngineStatus, len(sttEngines)),
		TTS: make([]EngineStatus, len(ttsEngines)),
	}

	var g errgroup.Group

	for i, e := range sttEngines {
		g.Go(func() error {
			report.STT[i] = probe(ctx, e)
			return nil
		})
	}
	for i, e := range ttsEngines {
		g.Go(func() error {
			report.TTS[i] = probe(ctx, e)
			return nil
		})
	}

	if gen := o.tutor.Generator(); gen != nil {
		g.Go(func() error {
			report.Tutor.EngineStatus = probe(ctx, gen)
			if lister, ok := gen.(modelLister); ok && report.Tutor.Available {
				cctx, cancel := context.WithTimeout(ctx, checkTimeout)
				defer cancel()
				if models, err := lister.Models(cctx); err == nil {
					report.Tutor.Models = models
				}
			}
			return nil
		})
	}

	_ = g.Wait()

	report.Offline = anyAvailable(report.STT) && anyAvailable(report.TTS)
	return report
}

func probe(ctx context.Context, e engine.Named) EngineStatus {
	status := EngineStatus{Name: e.Name(), Available: true}

	checker, ok := e.(engine.Checker)
	if !ok {
		return status
	}

	cctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := checker.Check(cctx); err != nil {
		status.Available = false
		status.Error = err.Error()
	}
	return status
}

func anyAvailable(statuses []EngineStatus) bool {
	for _, s := range statuses {
		if s.Available {
			return true
		}
	}
	return false
}
