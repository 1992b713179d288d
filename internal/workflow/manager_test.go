package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"clipsight/internal/capability"
	"clipsight/internal/config"
	"clipsight/internal/keyframe"
	"clipsight/internal/logging"
	"clipsight/internal/media"
	"clipsight/internal/stages"
	"clipsight/internal/testsupport"
)

type stubFrameSource struct {
	frames []keyframe.Frame
	pos    int
}

func (s *stubFrameSource) Next() (keyframe.Frame, error) {
	if s.pos >= len(s.frames) {
		return keyframe.Frame{}, io.EOF
	}
	frame := s.frames[s.pos]
	s.pos++
	return frame, nil
}

func (s *stubFrameSource) Close() error { return nil }

type stubTools struct {
	frames []keyframe.Frame
}

func (s *stubTools) ExtractAudio(_ context.Context, _, dest string) error {
	return os.WriteFile(dest, []byte("RIFF"), 0o644)
}

func (s *stubTools) Probe(context.Context, string) (*stages.ProbeInfo, error) {
	return &stages.ProbeInfo{HasVideo: true, HasAudio: true, Width: 1280, Height: 720, FPS: 1}, nil
}

func (s *stubTools) OpenFrameSource(context.Context, string, int, int, float64) (stages.FrameSource, error) {
	return &stubFrameSource{frames: s.frames}, nil
}

func (s *stubTools) SaveStill(_ context.Context, _ string, _ float64, dest string) error {
	return os.WriteFile(dest, []byte{0xff, 0xd8, 0xff, 0xd9}, 0o644)
}

type stubTranscriber struct {
	err error
}

func (s *stubTranscriber) Transcribe(context.Context, capability.TranscriptionRequest) (*capability.TranscriptionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &capability.TranscriptionResult{
		Text:     "narration",
		Language: "en",
		Segments: []media.TranscriptSegment{{Start: 0, End: 2, Text: "narration"}},
	}, nil
}

type stubVision struct{}

func (stubVision) Describe(_ context.Context, req capability.FrameRequest) (string, error) {
	return fmt.Sprintf("scene at %.1fs", req.TimestampSeconds), nil
}

type stubSynthesizer struct{}

func (stubSynthesizer) Synthesize(context.Context, capability.SynthesisRequest) (string, error) {
	return `{"summary":"ok"}`, nil
}

func (stubSynthesizer) Enrich(context.Context, capability.EnrichmentRequest) (string, error) {
	return `{"semantic_summary":"ok"}`, nil
}

func detectionFrames() []keyframe.Frame {
	const w, h = 64, 36
	uniform := make([]byte, w*h)
	checker := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				checker[y*w+x] = 0
			} else {
				checker[y*w+x] = 255
			}
		}
	}
	return []keyframe.Frame{
		{Index: 0, Width: w, Height: h, Pixels: uniform},
		{Index: 1, Width: w, Height: h, Pixels: checker},
	}
}

type managerFixture struct {
	manager *Manager
	store   *media.Store
	cfg     *config.Config
	deps    *stages.Deps
}

func newFixture(t *testing.T, transcriber capability.Transcriber) *managerFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2))
	store := testsupport.MustOpenStore(t, cfg)
	deps := &stages.Deps{
		Config:      cfg,
		Store:       store,
		Logger:      logging.NewNop(),
		Tools:       &stubTools{frames: detectionFrames()},
		Transcriber: transcriber,
		Vision:      stubVision{},
		Synthesizer: stubSynthesizer{},
	}
	return &managerFixture{
		manager: NewManager(cfg, store, logging.NewNop(), deps),
		store:   store,
		cfg:     cfg,
		deps:    deps,
	}
}

func claim(t *testing.T, store *media.Store) *media.Record {
	t.Helper()
	record, err := store.ClaimNextPending(context.Background())
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if record == nil {
		t.Fatal("expected a claimable record")
	}
	return record
}

func TestProcessRecordVideoCompletes(t *testing.T) {
	fx := newFixture(t, &stubTranscriber{})
	testsupport.NewRecord(t, fx.store, media.KindVideo, "/tmp/demo.mp4")
	record := claim(t, fx.store)
	ctx := context.Background()

	if err := fx.manager.processRecord(ctx, fx.manager.logger, record); err != nil {
		t.Fatalf("processRecord: %v", err)
	}

	updated, err := fx.store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != media.StatusCompleted {
		t.Fatalf("status = %s, want completed (error %q)", updated.Status, updated.ErrorMessage)
	}

	if _, err := fx.store.TranscriptForRun(ctx, record.ID, record.RunID); err != nil {
		t.Fatalf("transcript missing: %v", err)
	}
	frames, err := fx.store.KeyframesForRun(ctx, record.ID, record.RunID)
	if err != nil || len(frames) != 1 {
		t.Fatalf("keyframes = %v, err %v", frames, err)
	}
	if frames[0].Description == "" {
		t.Fatal("keyframe not described")
	}
	if _, err := fx.store.AnalysisForRun(ctx, record.ID, record.RunID); err != nil {
		t.Fatalf("analysis missing: %v", err)
	}

	logs, err := fx.store.LogsSince(ctx, record.ID, 0)
	if err != nil {
		t.Fatalf("LogsSince: %v", err)
	}
	var sawSuccess bool
	for _, entry := range logs {
		if entry.Level == media.LevelSuccess {
			sawSuccess = true
		}
	}
	if !sawSuccess {
		t.Fatalf("no SUCCESS entry in %v", logs)
	}
}

func TestProcessRecordAudioCompletes(t *testing.T) {
	fx := newFixture(t, &stubTranscriber{})
	testsupport.NewRecord(t, fx.store, media.KindAudio, "/tmp/call.wav")
	record := claim(t, fx.store)
	ctx := context.Background()

	if err := fx.manager.processRecord(ctx, fx.manager.logger, record); err != nil {
		t.Fatalf("processRecord: %v", err)
	}

	analysis, err := fx.store.AnalysisForRun(ctx, record.ID, record.RunID)
	if err != nil {
		t.Fatalf("analysis missing: %v", err)
	}
	if analysis.Payload != `{"summary":"ok"}` {
		t.Fatalf("payload = %q", analysis.Payload)
	}
	if frames, _ := fx.store.KeyframesForRun(ctx, record.ID, record.RunID); len(frames) != 0 {
		t.Fatalf("audio run should have no keyframes, got %d", len(frames))
	}
}

func TestStageFailureMarksRecordFailed(t *testing.T) {
	fx := newFixture(t, &stubTranscriber{err: errors.New("whisper unreachable")})
	testsupport.NewRecord(t, fx.store, media.KindVideo, "/tmp/demo.mp4")
	record := claim(t, fx.store)
	ctx := context.Background()

	if err := fx.manager.processRecord(ctx, fx.manager.logger, record); err == nil {
		t.Fatal("expected stage failure")
	}

	updated, err := fx.store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != media.StatusFailed {
		t.Fatalf("status = %s, want failed", updated.Status)
	}
	if !strings.Contains(updated.ErrorMessage, "whisper unreachable") {
		t.Fatalf("error message = %q", updated.ErrorMessage)
	}

	logs, _ := fx.store.LogsSince(ctx, record.ID, 0)
	var sawError bool
	for _, entry := range logs {
		if entry.Level == media.LevelError && strings.Contains(entry.Message, "Transcribe") {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("no ERROR entry naming the stage in %v", logs)
	}

	if analysis, err := fx.store.AnalysisForRun(ctx, record.ID, record.RunID); err != nil || analysis != nil {
		t.Fatalf("expected no analysis, got %v (err %v)", analysis, err)
	}
}

func TestStartProcessesQueuedRecords(t *testing.T) {
	fx := newFixture(t, &stubTranscriber{})
	first := testsupport.NewRecord(t, fx.store, media.KindVideo, "/tmp/a.mp4")
	second := testsupport.NewRecord(t, fx.store, media.KindAudio, "/tmp/b.wav")
	ctx := context.Background()

	if err := fx.manager.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer fx.manager.Stop()

	deadline := time.Now().Add(15 * time.Second)
	for {
		a, err := fx.store.GetByID(ctx, first.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		b, err := fx.store.GetByID(ctx, second.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if a.Status == media.StatusCompleted && b.Status == media.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("records not completed in time: %s / %s", a.Status, b.Status)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestStartRecoversInterruptedRecords(t *testing.T) {
	fx := newFixture(t, &stubTranscriber{})
	testsupport.NewRecord(t, fx.store, media.KindVideo, "/tmp/a.mp4")
	record := claim(t, fx.store)
	ctx := context.Background()

	if err := fx.manager.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	fx.manager.Stop()

	recovered, err := fx.store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if recovered.Status != media.StatusFailed {
		t.Fatalf("status = %s, want failed after recovery", recovered.Status)
	}
	if !strings.Contains(recovered.ErrorMessage, "interrupted") {
		t.Fatalf("error message = %q", recovered.ErrorMessage)
	}
}

func TestRetryRunsWithFreshRunID(t *testing.T) {
	transcriber := &stubTranscriber{err: errors.New("first attempt fails")}
	fx := newFixture(t, transcriber)
	testsupport.NewRecord(t, fx.store, media.KindAudio, "/tmp/a.wav")
	record := claim(t, fx.store)
	ctx := context.Background()

	_ = fx.manager.processRecord(ctx, fx.manager.logger, record)
	failedRun := record.RunID

	retried, err := fx.store.Retry(ctx, record.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.RunID == failedRun {
		t.Fatal("retry did not rotate run id")
	}

	transcriber.err = nil
	record = claim(t, fx.store)
	if record.RunID != retried.RunID {
		t.Fatalf("claimed run %s, want %s", record.RunID, retried.RunID)
	}
	if err := fx.manager.processRecord(ctx, fx.manager.logger, record); err != nil {
		t.Fatalf("processRecord after retry: %v", err)
	}

	if analysis, err := fx.store.AnalysisForRun(ctx, record.ID, retried.RunID); err != nil || analysis == nil {
		t.Fatalf("analysis for retried run missing: %v (err %v)", analysis, err)
	}
	if analysis, err := fx.store.AnalysisForRun(ctx, record.ID, failedRun); err != nil || analysis != nil {
		t.Fatalf("failed run should have no analysis, got %v (err %v)", analysis, err)
	}
}
