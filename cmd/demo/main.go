// Command demo exercises the processing pipeline end to end with stub
// engines: submits enhancement and transcription jobs, watches lifecycle
// events, cancels one job mid-flight and feeds the audio level monitor.
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"quillscribe/internal/config"
	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
	aiAdapters "quillscribe/internal/infra/adapters/ai"
	"quillscribe/internal/infra/adapters/whisper"
	"quillscribe/internal/infra/audio"
	"quillscribe/internal/infra/cache"
	"quillscribe/internal/infra/logging"
	"quillscribe/internal/infra/store"
	"quillscribe/internal/infra/worker"
	"quillscribe/internal/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logging.New(config.LogConfig{Level: "info", Format: "console"}, true)

	pool := worker.NewPool(4, logger)
	pool.Start(ctx)
	defer pool.Stop()

	rc := cache.New("demo", time.Hour, 10*1024*1024)
	memStore := store.NewMemoryStore()

	eSvc := service.NewEnhancementService(
		aiAdapters.NewStubEngine(300*time.Millisecond),
		memStore, rc, pool,
		service.Policy{CachingEnabled: true},
		model.GeminiFlash, logger,
	)
	defer eSvc.Shutdown()

	done := make(chan string, 8)
	unsubscribe := eSvc.Subscribe(service.FuncListener{
		OnStarted: func(id, provider string) {
			fmt.Printf("started   %s on %s\n", id, provider)
		},
		OnProgress: func(id string, pct int) {
			fmt.Printf("progress  %s %d%%\n", id, pct)
		},
		OnCompleted: func(id string, res model.Result) {
			if e, ok := res.(*model.EnhancedText); ok {
				fmt.Printf("completed %s: %q\n", id, e.Enhanced)
			}
			done <- id
		},
		OnFailed: func(id string, kind domain.ErrorKind, msg string) {
			fmt.Printf("failed    %s (%s): %s\n", id, kind, msg)
			done <- id
		},
		OnCancelled: func(id string) {
			fmt.Printf("cancelled %s\n", id)
			done <- id
		},
	})
	defer unsubscribe()

	// Submit a few enhancement jobs; with max_concurrent 3 the rest queue.
	texts := []string{
		"i has went to the store yesterday and buyed milk",
		"this are a test of the emergency broadcast system",
		"me and him was talking about the project deadline",
		"the quick brown fox jump over the lazy dogs",
	}
	var ids []string
	for _, text := range texts {
		id, err := eSvc.Submit(model.EnhancementRequest{
			Text:     text,
			Settings: model.DefaultSettings(model.ModeGrammarOnly),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "submit: %v\n", err)
			continue
		}
		ids = append(ids, id)
	}
	fmt.Printf("submitted %d jobs, queue length %d\n", len(ids), eSvc.QueueLength())

	// Cancel the last one while it is still pending or in flight.
	if len(ids) > 0 {
		_ = eSvc.Cancel(ids[len(ids)-1])
	}

	for range ids {
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			fmt.Fprintln(os.Stderr, "timed out waiting for jobs")
			return
		}
	}

	// Resubmitting the first text is a cache hit: same fingerprint, no
	// engine call, still a full lifecycle.
	start := time.Now()
	id, err := eSvc.Submit(model.EnhancementRequest{
		Text:     texts[0],
		Settings: model.DefaultSettings(model.ModeGrammarOnly),
	})
	if err == nil {
		<-done
		fmt.Printf("cache hit resolved %s in %s\n", id, time.Since(start).Round(time.Millisecond))
	}

	// Transcription side with the stub engine.
	tStub := whisper.NewStubEngine(200 * time.Millisecond)
	_ = tStub.LoadModel(ctx, model.WhisperBase)
	tSvc := service.NewTranscriptionService(
		tStub, memStore, rc, pool,
		service.Policy{CachingEnabled: true},
		model.WhisperBase, "en", logger,
	)
	defer tSvc.Shutdown()

	tDone := make(chan struct{}, 1)
	unsubT := tSvc.Subscribe(service.FuncListener{
		OnCompleted: func(id string, res model.Result) {
			if t, ok := res.(*model.Transcription); ok {
				fmt.Printf("transcribed: %q (confidence %.2f)\n", t.Text, t.Confidence)
			}
			tDone <- struct{}{}
		},
		OnFailed: func(id string, kind domain.ErrorKind, msg string) {
			fmt.Printf("transcription failed (%s): %s\n", kind, msg)
			tDone <- struct{}{}
		},
	})
	defer unsubT()

	wav, cleanup := tempAudioFile()
	defer cleanup()
	if _, err := tSvc.Submit(model.TranscriptionRequest{AudioFilePath: wav}); err != nil {
		fmt.Fprintf(os.Stderr, "transcription submit: %v\n", err)
	} else {
		<-tDone
	}

	// Audio level monitor over a synthetic 440 Hz tone.
	monitor := audio.NewLevelMonitor()
	monitor.OnLevelChange(func(level float64) {
		fmt.Printf("audio level %.3f\n", level)
	})
	buf := make([]byte, 4096)
	for i := 0; i < len(buf)/2; i++ {
		sample := int16(0.5 * 32767 * math.Sin(2*math.Pi*440*float64(i)/16000))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}
	monitor.Feed(buf, audio.SampleFormat{Width: 2, Channels: 1})
	fmt.Printf("final level %.3f, retained %d bytes\n", monitor.Level(), len(monitor.LastChunk()))
}

func tempAudioFile() (string, func()) {
	f, err := os.CreateTemp("", "demo-*.wav")
	if err != nil {
		return "", func() {}
	}
	_, _ = f.Write(make([]byte, 1024))
	_ = f.Close()
	return f.Name(), func() { _ = os.Remove(f.Name()) }
}
