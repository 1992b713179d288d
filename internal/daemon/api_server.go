package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"clipsight/internal/api"
	"clipsight/internal/config"
	"clipsight/internal/logging"
	"clipsight/internal/media"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Route("/api", func(r chi.Router) {
		r.Get("/status", srv.handleStatus)
		r.Route("/media", func(r chi.Router) {
			r.Post("/", srv.handleIngest)
			r.Get("/", srv.handleList)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", srv.handleDetail)
				r.Delete("/", srv.handleRemove)
				r.Post("/process", srv.handleProcess)
				r.Post("/retry", srv.handleRetry)
				r.Get("/logs", srv.handleLogs)
				r.Get("/logs/stream", srv.handleLogStream)
			})
		})
	})

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", s.bind, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req api.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind, ok := media.ParseKind(req.Kind)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown media kind %q", req.Kind))
		return
	}

	sourcePath, err := config.ExpandPath(strings.TrimSpace(req.SourcePath))
	if err != nil || sourcePath == "" {
		s.writeError(w, http.StatusBadRequest, "source_path is required")
		return
	}
	info, err := os.Stat(sourcePath)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("source file not accessible: %v", err))
		return
	}

	probe, err := s.daemon.tools.Probe(r.Context(), sourcePath)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("probe source: %v", err))
		return
	}
	if kind == media.KindVideo && !probe.HasVideo {
		s.writeError(w, http.StatusBadRequest, "source has no video stream")
		return
	}
	if !probe.HasAudio {
		s.writeError(w, http.StatusBadRequest, "source has no audio stream")
		return
	}

	sizeBytes := probe.SizeBytes
	if sizeBytes == 0 {
		sizeBytes = info.Size()
	}

	record, err := s.daemon.store.NewRecord(r.Context(), media.NewRecordParams{
		Kind:            kind,
		SourcePath:      sourcePath,
		Title:           strings.TrimSpace(req.Title),
		ContextNote:     strings.TrimSpace(req.ContextNote),
		DurationSeconds: probe.DurationSeconds,
		SizeBytes:       sizeBytes,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.ViewFromRecord(record))
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.daemon.store.List(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	list := api.MediaList{Media: make([]api.MediaView, 0, len(records))}
	for _, record := range records {
		list.Media = append(list.Media, api.ViewFromRecord(record))
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *apiServer) handleDetail(w http.ResponseWriter, r *http.Request) {
	record, ok := s.lookupRecord(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	detail := api.MediaDetail{Media: api.ViewFromRecord(record)}

	transcript, err := s.daemon.store.TranscriptForRun(ctx, record.ID, record.RunID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	detail.Transcript = api.ViewFromTranscript(transcript)

	frames, err := s.daemon.store.KeyframesForRun(ctx, record.ID, record.RunID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	for _, frame := range frames {
		detail.Keyframes = append(detail.Keyframes, api.ViewFromKeyframe(frame))
	}

	analysis, err := s.daemon.store.AnalysisForRun(ctx, record.ID, record.RunID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if analysis != nil {
		detail.Analysis = analysis.Payload
	}

	s.writeJSON(w, http.StatusOK, detail)
}

// handleProcess acknowledges a pending record. Creation already queues the
// record; this endpoint enforces the submit contract for clients that
// separate registration from processing.
func (s *apiServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	record, ok := s.lookupRecord(w, r)
	if !ok {
		return
	}
	if record.Status != media.StatusPending {
		s.writeError(w, http.StatusConflict, fmt.Sprintf("record is %s, not pending", record.Status))
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.ViewFromRecord(record))
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	record, ok := s.lookupRecord(w, r)
	if !ok {
		return
	}
	retried, err := s.daemon.store.Retry(r.Context(), record.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.ViewFromRecord(retried))
}

func (s *apiServer) handleRemove(w http.ResponseWriter, r *http.Request) {
	record, ok := s.lookupRecord(w, r)
	if !ok {
		return
	}
	if err := s.daemon.store.Remove(r.Context(), record.ID); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.daemon.streamer.Forget(record.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	record, ok := s.lookupRecord(w, r)
	if !ok {
		return
	}
	since := parseSince(r)

	entries, err := s.daemon.store.LogsSince(r.Context(), record.ID, since)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, logBatch(entries, since))
}

func (s *apiServer) handleLogStream(w http.ResponseWriter, r *http.Request) {
	record, ok := s.lookupRecord(w, r)
	if !ok {
		return
	}
	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	since := parseSince(r)
	ctx := r.Context()
	for {
		batch, err := s.daemon.streamer.Fetch(ctx, record.ID, since, true)
		if err != nil {
			return
		}
		if len(batch.Entries) > 0 {
			payload := logBatch(batch.Entries, since)
			since = payload.Next
			writeSSE(w, "log", payload)
			flusher.Flush()
		}
		if batch.Ended {
			writeSSE(w, "end", api.StreamEnd{Status: string(batch.Status)})
			flusher.Flush()
			return
		}
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := s.daemon.store.Summarize(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.StatusView{
		Running:    s.daemon.Running(),
		Total:      summary.Total,
		Pending:    summary.Pending,
		Processing: summary.Processing,
		Completed:  summary.Completed,
		Failed:     summary.Failed,
		DBPath:     s.daemon.store.Path(),
	})
}

func (s *apiServer) lookupRecord(w http.ResponseWriter, r *http.Request) (*media.Record, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid media id")
		return nil, false
	}
	record, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return nil, false
	}
	return record, true
}

func parseSince(r *http.Request) int64 {
	since, err := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	if err != nil || since < 0 {
		return 0
	}
	return since
}

func logBatch(entries []media.LogEntry, since int64) api.LogBatch {
	batch := api.LogBatch{Entries: make([]api.LogEntryView, 0, len(entries)), Next: since}
	for _, entry := range entries {
		batch.Entries = append(batch.Entries, api.ViewFromLogEntry(entry))
		if entry.Seq > batch.Next {
			batch.Next = entry.Seq
		}
	}
	return batch
}

func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response failed", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "media record not found")
	case errors.Is(err, media.ErrInvalidTransition):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("store operation failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
