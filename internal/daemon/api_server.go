package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"reelvault/internal/api"
	"reelvault/internal/archive"
	"reelvault/internal/config"
	"reelvault/internal/ingest"
	"reelvault/internal/logging"
	"reelvault/internal/services"
)

type apiServer struct {
	bind       string
	token      string
	logger     *slog.Logger
	daemon     *Daemon
	archiveSvc *api.ArchiveService
	ingestSvc  *ingest.Service

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:       bind,
		token:      cfg.Paths.APIToken,
		logger:     logger,
		daemon:     d,
		archiveSvc: api.NewArchiveService(d.store, d.tagger, cfg.Paths.MediaDir),
		ingestSvc:  ingest.NewService(d.store, logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/stats", srv.handleStats)
	mux.HandleFunc("/api/items", srv.handleItems)
	mux.HandleFunc("/api/items/", srv.handleItemSubtree)
	mux.HandleFunc("/api/search", srv.handleSearch)
	mux.HandleFunc("/api/tags", srv.handleTags)
	mux.HandleFunc("/api/admin/ingest", srv.handleIngest)
	mux.HandleFunc("/api/admin/links", srv.handleLinks)
	mux.HandleFunc("/api/admin/enqueue/", srv.handleEnqueue)
	mux.HandleFunc("/api/admin/sweep", srv.handleSweep)
	mux.HandleFunc("/api/admin/retry/", srv.handleRetry)

	srv.server = &http.Server{
		Handler:           srv.withAuth(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) withAuth(next http.Handler) http.Handler {
	if s.token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header != "Bearer "+s.token {
			s.writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.archiveSvc.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *apiServer) handleItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	page, err := s.archiveSvc.Items(r.Context(), specFromQuery(r, false))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

// handleSearch is the deep-search variant: the term also matches
// transcription and OCR text.
func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	page, err := s.archiveSvc.Items(r.Context(), specFromQuery(r, true))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

// handleItemSubtree routes /api/items/{id}[/media|/thumbnail|/images[/{n}]|/tags].
func (s *apiServer) handleItemSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/items/")
	if rest == "" {
		s.writeError(w, http.StatusNotFound, "item not found")
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]

	switch {
	case len(parts) == 1:
		s.handleItemDetail(w, r, id)
	case len(parts) == 2 && parts[1] == "media":
		s.handleItemMedia(w, r, id)
	case len(parts) == 2 && parts[1] == "thumbnail":
		s.handleItemThumbnail(w, r, id)
	case len(parts) == 2 && parts[1] == "images":
		s.handleItemImages(w, r, id)
	case len(parts) == 3 && parts[1] == "images":
		s.handleItemImage(w, r, id, parts[2])
	case len(parts) == 2 && parts[1] == "tags":
		s.handleItemTags(w, r, id)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleItemDetail(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	item, err := s.archiveSvc.Item(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

func (s *apiServer) handleItemMedia(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path, contentType, err := s.archiveSvc.MediaPath(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if contentType == archive.ContentVideo {
		w.Header().Set("Content-Type", "video/mp4")
	} else {
		w.Header().Set("Content-Type", "application/zip")
	}
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleItemThumbnail(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path, err := s.archiveSvc.ThumbnailPath(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleItemImages(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	names, err := s.archiveSvc.ImageNames(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"images": names})
}

func (s *apiServer) handleItemImage(w http.ResponseWriter, r *http.Request, id, indexRaw string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	index, err := strconv.Atoi(indexRaw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid image index")
		return
	}
	payload, err := s.archiveSvc.Image(r.Context(), id, index)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(payload)
}

type tagRequest struct {
	Name string `json:"name"`
}

func (s *apiServer) handleItemTags(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		item, err := s.archiveSvc.Item(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"manual":    item.ManualTags,
			"automatic": item.AutomaticTags,
		})
	case http.MethodPost:
		req, ok := s.decodeTagRequest(w, r)
		if !ok {
			return
		}
		assigned, err := s.archiveSvc.AssignTag(r.Context(), id, req.Name)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"assigned": assigned})
	case http.MethodDelete:
		req, ok := s.decodeTagRequest(w, r)
		if !ok {
			return
		}
		removed, err := s.archiveSvc.RemoveTag(r.Context(), id, req.Name)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) decodeTagRequest(w http.ResponseWriter, r *http.Request) (tagRequest, bool) {
	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid tag request")
		return req, false
	}
	return req, true
}

func (s *apiServer) handleTags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tags, err := s.archiveSvc.Tags(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

const maxIngestBodyBytes = 32 << 20

// handleIngest accepts either a {"records": [...]} metadata batch or a raw
// platform export document.
func (s *apiServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read request body")
		return
	}

	var batch struct {
		Records []ingest.Record `json:"records"`
	}
	var records []ingest.Record
	if err := json.Unmarshal(body, &batch); err == nil && len(batch.Records) > 0 {
		records = batch.Records
	} else {
		records, err = ingest.ParseExport(bytes.NewReader(body))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	outcomes, err := s.ingestSvc.Batch(r.Context(), records)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}

type linksRequest struct {
	Links []string `json:"links"`
}

func (s *apiServer) handleLinks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req linksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid links request")
		return
	}
	outcomes, err := s.ingestSvc.Links(r.Context(), req.Links)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}

func (s *apiServer) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stage, err := archive.ParseStage(strings.TrimPrefix(r.URL.Path, "/api/admin/enqueue/"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	queued, err := s.daemon.orch.EnqueueStage(r.Context(), stage)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"queued": queued})
}

func (s *apiServer) handleSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	reclaimed, err := s.daemon.orch.SweepStale(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"reclaimed": reclaimed})
}

type retryRequest struct {
	IDs []string `json:"ids"`
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stage, err := archive.ParseStage(strings.TrimPrefix(r.URL.Path, "/api/admin/retry/"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req retryRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid retry request")
			return
		}
	}
	retried, err := s.daemon.orch.RetryFailed(r.Context(), stage, req.IDs...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"retried": retried})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode api response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, os.ErrNotExist):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
