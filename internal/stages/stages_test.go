package stages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipsight/internal/capability"
	"clipsight/internal/config"
	"clipsight/internal/keyframe"
	"clipsight/internal/logging"
	"clipsight/internal/media"
	"clipsight/internal/services"
	"clipsight/internal/testsupport"
)

type fakeFrameSource struct {
	frames []keyframe.Frame
	pos    int
	closed bool
}

func (f *fakeFrameSource) Next() (keyframe.Frame, error) {
	if f.pos >= len(f.frames) {
		return keyframe.Frame{}, io.EOF
	}
	frame := f.frames[f.pos]
	f.pos++
	return frame, nil
}

func (f *fakeFrameSource) Close() error {
	f.closed = true
	return nil
}

type fakeTools struct {
	probe      *ProbeInfo
	probeErr   error
	frames     []keyframe.Frame
	source     *fakeFrameSource
	stillBytes []byte
	audioErr   error
}

func (f *fakeTools) ExtractAudio(_ context.Context, _, dest string) error {
	if f.audioErr != nil {
		return f.audioErr
	}
	return os.WriteFile(dest, []byte("RIFFaudio"), 0o644)
}

func (f *fakeTools) Probe(_ context.Context, _ string) (*ProbeInfo, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return f.probe, nil
}

func (f *fakeTools) OpenFrameSource(_ context.Context, _ string, _, _ int, _ float64) (FrameSource, error) {
	f.source = &fakeFrameSource{frames: f.frames}
	return f.source, nil
}

func (f *fakeTools) SaveStill(_ context.Context, _ string, _ float64, dest string) error {
	payload := f.stillBytes
	if payload == nil {
		payload = []byte{0xff, 0xd8, 0xff, 0xd9}
	}
	return os.WriteFile(dest, payload, 0o644)
}

type fakeTranscriber struct {
	result *capability.TranscriptionResult
	err    error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ capability.TranscriptionRequest) (*capability.TranscriptionResult, error) {
	return f.result, f.err
}

type fakeVision struct {
	requests []capability.FrameRequest
	err      error
}

func (f *fakeVision) Describe(_ context.Context, req capability.FrameRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.requests = append(f.requests, req)
	return fmt.Sprintf("frame at %.1fs", req.TimestampSeconds), nil
}

type fakeSynthesizer struct {
	synthesisReq  *capability.SynthesisRequest
	enrichmentReq *capability.EnrichmentRequest
	payload       string
	err           error
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, req capability.SynthesisRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.synthesisReq = &req
	return f.payload, nil
}

func (f *fakeSynthesizer) Enrich(_ context.Context, req capability.EnrichmentRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.enrichmentReq = &req
	return f.payload, nil
}

func newTestDeps(t *testing.T, opts ...testsupport.ConfigOption) (*Deps, *media.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	deps := &Deps{
		Config: cfg,
		Store:  store,
		Logger: logging.NewNop(),
	}
	return deps, store
}

func uniformFrame(index int, value byte) keyframe.Frame {
	const w, h = 64, 36
	pixels := make([]byte, w*h)
	for i := range pixels {
		pixels[i] = value
	}
	return keyframe.Frame{Index: index, Width: w, Height: h, Pixels: pixels}
}

func checkerFrame(index int, dark, light byte) keyframe.Frame {
	const w, h = 64, 36
	pixels := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				pixels[y*w+x] = dark
			} else {
				pixels[y*w+x] = light
			}
		}
	}
	return keyframe.Frame{Index: index, Width: w, Height: h, Pixels: pixels}
}

func TestSequenceForVideo(t *testing.T) {
	deps, _ := newTestDeps(t)
	var names []string
	for _, handler := range SequenceFor(media.KindVideo, deps) {
		names = append(names, handler.Name())
	}
	want := []string{StageExtractAudio, StageTranscribe, StageExtractKeyframes, StageDescribeFrames, StageSynthesize}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("video sequence = %v, want %v", names, want)
	}
}

func TestSequenceForAudio(t *testing.T) {
	deps, _ := newTestDeps(t)
	var names []string
	for _, handler := range SequenceFor(media.KindAudio, deps) {
		names = append(names, handler.Name())
	}
	want := []string{StagePrepareAudio, StageTranscribe, StageEnrich, StageSynthesize}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("audio sequence = %v, want %v", names, want)
	}
}

func TestExtractAudioWritesRunScopedFile(t *testing.T) {
	deps, store := newTestDeps(t)
	deps.Tools = &fakeTools{}
	record := testsupport.NewRecord(t, store, media.KindVideo, "/tmp/in.mp4")

	stage := &ExtractAudio{deps: deps}
	if err := stage.Execute(context.Background(), record); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if _, err := os.Stat(deps.audioPath(record)); err != nil {
		t.Fatalf("audio file missing: %v", err)
	}
	logs, err := store.LogsSince(context.Background(), record.ID, 0)
	if err != nil {
		t.Fatalf("LogsSince: %v", err)
	}
	if len(logs) != 1 || logs[0].Level != media.LevelInfo {
		t.Fatalf("expected one INFO entry, got %v", logs)
	}
}

func TestExtractAudioFailureMarkedExternalTool(t *testing.T) {
	deps, store := newTestDeps(t)
	deps.Tools = &fakeTools{audioErr: errors.New("no audio stream")}
	record := testsupport.NewRecord(t, store, media.KindVideo, "/tmp/in.mp4")

	err := (&ExtractAudio{deps: deps}).Execute(context.Background(), record)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestTranscribePersistsTranscript(t *testing.T) {
	deps, store := newTestDeps(t)
	deps.Transcriber = &fakeTranscriber{result: &capability.TranscriptionResult{
		Text:     "hello world",
		Language: "en",
		Segments: []media.TranscriptSegment{{Start: 0, End: 2, Text: "hello world"}},
	}}
	record := testsupport.NewRecord(t, store, media.KindVideo, "/tmp/in.mp4")

	if err := (&Transcribe{deps: deps}).Execute(context.Background(), record); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	transcript, err := store.TranscriptForRun(context.Background(), record.ID, record.RunID)
	if err != nil {
		t.Fatalf("TranscriptForRun: %v", err)
	}
	if transcript.Text != "hello world" || transcript.Language != "en" || len(transcript.Segments) != 1 {
		t.Fatalf("unexpected transcript: %+v", transcript)
	}
}

func TestTranscribeFailureMarkedCapability(t *testing.T) {
	deps, store := newTestDeps(t)
	deps.Transcriber = &fakeTranscriber{err: errors.New("endpoint down")}
	record := testsupport.NewRecord(t, store, media.KindVideo, "/tmp/in.mp4")

	err := (&Transcribe{deps: deps}).Execute(context.Background(), record)
	if !errors.Is(err, services.ErrCapability) {
		t.Fatalf("expected capability error, got %v", err)
	}
}

func TestExtractKeyframesPersistsStillsAndRows(t *testing.T) {
	deps, store := newTestDeps(t, testsupport.WithKeyframes(config.Keyframes{
		Threshold:          25,
		MaxFrames:          10,
		MinIntervalSeconds: 2,
		DedupDistance:      20,
		DetectionWidth:     320,
	}))
	tools := &fakeTools{
		probe: &ProbeInfo{HasVideo: true, HasAudio: true, Width: 1920, Height: 1080, FPS: 1},
		frames: []keyframe.Frame{
			uniformFrame(0, 0),
			checkerFrame(1, 0, 255),
		},
	}
	deps.Tools = tools
	record := testsupport.NewRecord(t, store, media.KindVideo, "/tmp/in.mp4")

	if err := (&ExtractKeyframes{deps: deps}).Execute(context.Background(), record); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !tools.source.closed {
		t.Fatal("frame source not closed")
	}

	frames, err := store.KeyframesForRun(context.Background(), record.ID, record.RunID)
	if err != nil {
		t.Fatalf("KeyframesForRun: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 keyframe, got %d", len(frames))
	}
	frame := frames[0]
	if frame.TimestampSeconds != 1.0 {
		t.Fatalf("timestamp = %v, want 1.0", frame.TimestampSeconds)
	}
	if frame.Score <= 25 {
		t.Fatalf("score = %v, want > threshold", frame.Score)
	}
	if frame.Hash == "" {
		t.Fatal("hash not persisted")
	}
	if _, err := os.Stat(frame.ImagePath); err != nil {
		t.Fatalf("still missing: %v", err)
	}
}

func TestExtractKeyframesRejectsAudioOnlySource(t *testing.T) {
	deps, store := newTestDeps(t)
	deps.Tools = &fakeTools{probe: &ProbeInfo{HasVideo: false, HasAudio: true}}
	record := testsupport.NewRecord(t, store, media.KindVideo, "/tmp/in.mp4")

	err := (&ExtractKeyframes{deps: deps}).Execute(context.Background(), record)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDescribeFramesAttachesDescriptions(t *testing.T) {
	deps, store := newTestDeps(t)
	vision := &fakeVision{}
	deps.Vision = vision
	record := testsupport.NewRecord(t, store, media.KindVideo, "/tmp/in.mp4")
	ctx := context.Background()

	still := filepath.Join(deps.Config.KeyframeDir(), "still.jpg")
	testsupport.WriteFile(t, still, 16)
	if _, err := store.AddKeyframe(ctx, media.Keyframe{
		MediaID: record.ID, RunID: record.RunID,
		FrameIndex: 5, TimestampSeconds: 5.0, Score: 42, Hash: "00", ImagePath: still,
	}); err != nil {
		t.Fatalf("AddKeyframe: %v", err)
	}
	if err := store.SaveTranscript(ctx, media.Transcript{
		MediaID: record.ID, RunID: record.RunID, Text: "full text",
		Segments: []media.TranscriptSegment{
			{Start: 0, End: 4, Text: "near the frame"},
			{Start: 100, End: 104, Text: "far away"},
		},
	}); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}

	if err := (&DescribeFrames{deps: deps}).Execute(ctx, record); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(vision.requests) != 1 {
		t.Fatalf("expected 1 vision request, got %d", len(vision.requests))
	}
	req := vision.requests[0]
	if !strings.Contains(req.TranscriptWindow, "near the frame") {
		t.Fatalf("transcript window missing nearby segment: %q", req.TranscriptWindow)
	}
	if strings.Contains(req.TranscriptWindow, "far away") {
		t.Fatalf("transcript window includes distant segment: %q", req.TranscriptWindow)
	}

	frames, err := store.KeyframesForRun(ctx, record.ID, record.RunID)
	if err != nil {
		t.Fatalf("KeyframesForRun: %v", err)
	}
	if frames[0].Description != "frame at 5.0s" {
		t.Fatalf("description = %q", frames[0].Description)
	}
}

func TestDescribeFramesNoKeyframesIsNotAnError(t *testing.T) {
	deps, store := newTestDeps(t)
	deps.Vision = &fakeVision{err: errors.New("must not be called")}
	record := testsupport.NewRecord(t, store, media.KindVideo, "/tmp/in.mp4")

	if err := (&DescribeFrames{deps: deps}).Execute(context.Background(), record); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestSynthesizeStoresAnalysis(t *testing.T) {
	deps, store := newTestDeps(t)
	synth := &fakeSynthesizer{payload: `{"summary":"done"}`}
	deps.Synthesizer = synth
	record := testsupport.NewRecord(t, store, media.KindVideo, "/tmp/in.mp4")
	ctx := context.Background()

	if err := store.SaveTranscript(ctx, media.Transcript{
		MediaID: record.ID, RunID: record.RunID, Text: "narration",
	}); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	if _, err := store.AddKeyframe(ctx, media.Keyframe{
		MediaID: record.ID, RunID: record.RunID,
		TimestampSeconds: 3, Score: 40, Hash: "00", ImagePath: "/tmp/x.jpg",
	}); err != nil {
		t.Fatalf("AddKeyframe: %v", err)
	}
	frames, _ := store.KeyframesForRun(ctx, record.ID, record.RunID)
	if err := store.SetKeyframeDescription(ctx, frames[0].ID, "login page"); err != nil {
		t.Fatalf("SetKeyframeDescription: %v", err)
	}

	if err := (&Synthesize{deps: deps}).Execute(ctx, record); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	analysis, err := store.AnalysisForRun(ctx, record.ID, record.RunID)
	if err != nil {
		t.Fatalf("AnalysisForRun: %v", err)
	}
	if analysis.Payload != `{"summary":"done"}` {
		t.Fatalf("payload = %q", analysis.Payload)
	}
	if synth.synthesisReq == nil || len(synth.synthesisReq.FrameDescriptions) != 1 {
		t.Fatalf("synthesis request missing frame descriptions: %+v", synth.synthesisReq)
	}
	if synth.synthesisReq.FrameDescriptions[0].Description != "login page" {
		t.Fatalf("unexpected description: %+v", synth.synthesisReq.FrameDescriptions[0])
	}
}

func TestEnrichFeedsSynthesis(t *testing.T) {
	deps, store := newTestDeps(t)
	synth := &fakeSynthesizer{payload: `{"semantic_summary":"a call"}`}
	deps.Synthesizer = synth
	record := testsupport.NewRecord(t, store, media.KindAudio, "/tmp/in.wav")
	ctx := context.Background()

	if err := os.MkdirAll(deps.runScratchDir(record), 0o755); err != nil {
		t.Fatalf("mkdir scratch: %v", err)
	}
	if err := store.SaveTranscript(ctx, media.Transcript{
		MediaID: record.ID, RunID: record.RunID, Text: "meeting notes",
		Segments: []media.TranscriptSegment{{Start: 0, End: 3, Text: "meeting notes"}},
	}); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}

	if err := (&Enrich{deps: deps}).Execute(ctx, record); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if synth.enrichmentReq == nil || synth.enrichmentReq.TranscriptText != "meeting notes" {
		t.Fatalf("enrichment request = %+v", synth.enrichmentReq)
	}

	synth.payload = `{"summary":"final"}`
	if err := (&Synthesize{deps: deps}).Execute(ctx, record); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if synth.synthesisReq.Enrichment != `{"semantic_summary":"a call"}` {
		t.Fatalf("enrichment not forwarded: %q", synth.synthesisReq.Enrichment)
	}
}
