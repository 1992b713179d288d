package daemon

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"clipsight/internal/api"
	"clipsight/internal/capability"
	"clipsight/internal/logging"
	"clipsight/internal/media"
	"clipsight/internal/stages"
	"clipsight/internal/testsupport"
	"clipsight/internal/workflow"
)

type stubTools struct{}

func (stubTools) ExtractAudio(context.Context, string, string) error { return nil }

func (stubTools) Probe(context.Context, string) (*stages.ProbeInfo, error) {
	return &stages.ProbeInfo{
		DurationSeconds: 42.5,
		SizeBytes:       1024,
		HasVideo:        true,
		HasAudio:        true,
		Width:           1280,
		Height:          720,
		FPS:             30,
	}, nil
}

func (stubTools) OpenFrameSource(context.Context, string, int, int, float64) (stages.FrameSource, error) {
	return nil, nil
}

func (stubTools) SaveStill(context.Context, string, float64, string) error { return nil }

type idleTranscriber struct{}

func (idleTranscriber) Transcribe(ctx context.Context, _ capability.TranscriptionRequest) (*capability.TranscriptionResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func startTestDaemon(t *testing.T) (*Daemon, *api.Client, *media.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	// Keep workers asleep so contract tests control record states directly.
	cfg.Workflow.QueuePollInterval = 3600

	store := testsupport.MustOpenStore(t, cfg)
	deps := &stages.Deps{
		Config:      cfg,
		Store:       store,
		Logger:      logging.NewNop(),
		Tools:       stubTools{},
		Transcriber: idleTranscriber{},
	}
	manager := workflow.NewManager(cfg, store, logging.NewNop(), deps)
	d, err := New(cfg, store, logging.NewNop(), manager, stubTools{})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	// Give the initial empty poll a moment so workers land in their sleep.
	time.Sleep(20 * time.Millisecond)
	return d, api.NewClient("http://" + d.Addr()), store
}

func mustStatusCode(t *testing.T, err error, want int) {
	t.Helper()
	if want == 0 {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}
	statusErr, ok := err.(*api.StatusError)
	if !ok {
		t.Fatalf("expected HTTP %d, got %v", want, err)
	}
	if statusErr.Code != want {
		t.Fatalf("status = %d, want %d (%s)", statusErr.Code, want, statusErr.Message)
	}
}

func TestIngestCreatesPendingRecord(t *testing.T) {
	_, client, _ := startTestDaemon(t)
	ctx := context.Background()

	source := filepath.Join(t.TempDir(), "demo.mp4")
	testsupport.WriteFile(t, source, 2048)

	view, err := client.Ingest(ctx, api.IngestRequest{
		SourcePath:  source,
		Kind:        "video",
		Title:       "Demo recording",
		ContextNote: "internal dashboard",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if view.Status != "pending" || view.Kind != "video" {
		t.Fatalf("view = %+v", view)
	}
	if view.DurationSeconds != 42.5 || view.SizeBytes != 1024 {
		t.Fatalf("probe fields not applied: %+v", view)
	}
	if view.RunID == "" {
		t.Fatal("run id missing")
	}
}

func TestIngestRejectsUnknownKindAndMissingFile(t *testing.T) {
	_, client, _ := startTestDaemon(t)
	ctx := context.Background()

	source := filepath.Join(t.TempDir(), "demo.mp4")
	testsupport.WriteFile(t, source, 64)

	_, err := client.Ingest(ctx, api.IngestRequest{SourcePath: source, Kind: "image"})
	mustStatusCode(t, err, http.StatusBadRequest)

	_, err = client.Ingest(ctx, api.IngestRequest{SourcePath: "/nonexistent/file.mp4", Kind: "video"})
	mustStatusCode(t, err, http.StatusBadRequest)
}

func TestSubmitRetryDeleteContract(t *testing.T) {
	_, client, store := startTestDaemon(t)
	ctx := context.Background()

	record := testsupport.NewRecord(t, store, media.KindVideo, "/tmp/demo.mp4")

	// Pending: submit accepted, retry rejected.
	if _, err := client.Process(ctx, record.ID); err != nil {
		t.Fatalf("Process pending: %v", err)
	}
	_, err := client.Retry(ctx, record.ID)
	mustStatusCode(t, err, http.StatusConflict)

	// Processing: submit, retry, and delete all rejected.
	if _, err := store.ClaimNextPending(ctx); err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	_, err = client.Process(ctx, record.ID)
	mustStatusCode(t, err, http.StatusConflict)
	_, err = client.Retry(ctx, record.ID)
	mustStatusCode(t, err, http.StatusConflict)
	err = client.Remove(ctx, record.ID)
	if !api.IsConflict(err) {
		t.Fatalf("delete while processing: %v", err)
	}

	// Failed: retry rotates the run id.
	if _, err := store.Finish(ctx, record.ID, media.StatusFailed, "boom"); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	retried, err := client.Retry(ctx, record.ID)
	if err != nil {
		t.Fatalf("Retry failed record: %v", err)
	}
	if retried.RunID == record.RunID || retried.Status != "pending" {
		t.Fatalf("retried = %+v", retried)
	}

	// Pending again: delete allowed.
	if err := client.Remove(ctx, record.ID); err != nil {
		t.Fatalf("Remove pending record: %v", err)
	}
	_, err = client.Get(ctx, record.ID)
	mustStatusCode(t, err, http.StatusNotFound)
}

func TestDetailIncludesCurrentRunArtifacts(t *testing.T) {
	_, client, store := startTestDaemon(t)
	ctx := context.Background()

	record := testsupport.NewRecord(t, store, media.KindVideo, "/tmp/demo.mp4")
	if err := store.SaveTranscript(ctx, media.Transcript{
		MediaID: record.ID, RunID: record.RunID, Text: "narration", Language: "en",
	}); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	if _, err := store.AddKeyframe(ctx, media.Keyframe{
		MediaID: record.ID, RunID: record.RunID,
		TimestampSeconds: 7.5, Score: 33, Hash: "ab", ImagePath: "/tmp/f.jpg",
	}); err != nil {
		t.Fatalf("AddKeyframe: %v", err)
	}
	if err := store.SaveAnalysis(ctx, media.Analysis{
		MediaID: record.ID, RunID: record.RunID, Payload: `{"summary":"x"}`,
	}); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	// An artifact from a stale run must not appear.
	if err := store.SaveTranscript(ctx, media.Transcript{
		MediaID: record.ID, RunID: "stale-run", Text: "old",
	}); err != nil {
		t.Fatalf("SaveTranscript stale: %v", err)
	}

	detail, err := client.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.Transcript == nil || detail.Transcript.Text != "narration" {
		t.Fatalf("transcript = %+v", detail.Transcript)
	}
	if len(detail.Keyframes) != 1 || detail.Keyframes[0].TimestampSeconds != 7.5 {
		t.Fatalf("keyframes = %+v", detail.Keyframes)
	}
	if detail.Analysis != `{"summary":"x"}` {
		t.Fatalf("analysis = %q", detail.Analysis)
	}
}

func TestLogsSnapshotAndStream(t *testing.T) {
	_, client, store := startTestDaemon(t)
	ctx := context.Background()

	record := testsupport.NewRecord(t, store, media.KindVideo, "/tmp/demo.mp4")
	if _, err := store.AppendLog(ctx, record.ID, media.LevelInfo, "first"); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}

	snapshot, err := client.Logs(ctx, record.ID, 0)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if len(snapshot.Entries) != 1 || snapshot.Next != 1 {
		t.Fatalf("snapshot = %+v", snapshot)
	}

	if _, err := store.ClaimNextPending(ctx); err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}

	type streamResult struct {
		entries []api.LogEntryView
		end     *api.StreamEnd
		err     error
	}
	results := make(chan streamResult, 1)
	go func() {
		var got []api.LogEntryView
		end, err := client.StreamLogs(ctx, record.ID, snapshot.Next, func(batch api.LogBatch) {
			got = append(got, batch.Entries...)
		})
		results <- streamResult{got, end, err}
	}()

	time.Sleep(100 * time.Millisecond)
	if _, err := store.AppendLog(ctx, record.ID, media.LevelStep, "second"); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if _, err := store.Finish(ctx, record.ID, media.StatusCompleted, ""); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	select {
	case got := <-results:
		if got.err != nil {
			t.Fatalf("StreamLogs: %v", got.err)
		}
		if got.end == nil || got.end.Status != "completed" {
			t.Fatalf("end = %+v", got.end)
		}
		if len(got.entries) != 1 || got.entries[0].Message != "second" {
			t.Fatalf("streamed entries = %+v (snapshot already covered seq 1)", got.entries)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("stream did not finish")
	}
}

func TestStatusSummary(t *testing.T) {
	d, client, store := startTestDaemon(t)
	ctx := context.Background()

	testsupport.NewRecord(t, store, media.KindVideo, "/tmp/a.mp4")
	testsupport.NewRecord(t, store, media.KindAudio, "/tmp/b.wav")

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.Total != 2 || status.Pending != 2 {
		t.Fatalf("status = %+v", status)
	}
	if status.DBPath != store.Path() {
		t.Fatalf("db path = %q, want %q", status.DBPath, store.Path())
	}
	_ = d
}

func TestSecondDaemonInstanceRejected(t *testing.T) {
	d, _, store := startTestDaemon(t)

	manager := workflow.NewManager(d.cfg, store, logging.NewNop(), &stages.Deps{
		Config: d.cfg, Store: store, Logger: logging.NewNop(), Tools: stubTools{},
	})
	second, err := New(d.cfg, store, logging.NewNop(), manager, stubTools{})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}
