//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/LyricSync/pkg/lyricsync"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/audio"
	"github.com/himanishpuri/LyricSync/pkg/utils"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service lyricsync.Service
	config  *ServerConfig
	log     lyricsync.Logger
}

// NewServer creates a new server instance
func NewServer(service lyricsync.Service, config *ServerConfig, log lyricsync.Logger) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     log,
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondServiceError maps service errors to a status code.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, lyricsync.ErrMissingAudio), errors.Is(err, lyricsync.ErrMissingLyrics):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, audio.ErrDownloadFailed):
		s.log.Warnf("%s: %v", action, err)
		s.respondError(w, http.StatusBadRequest, "Failed to download audio file")
	case errors.Is(err, lyricsync.ErrSyncNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lyricsync.ErrPersistenceDisabled):
		s.respondError(w, http.StatusNotImplemented, "Persistence is disabled on this server")
	case errors.Is(err, context.DeadlineExceeded):
		s.log.Errorf("%s: %v", action, err)
		s.respondError(w, http.StatusGatewayTimeout, fmt.Sprintf("%s: timed out", action))
	default:
		s.log.Errorf("%s: %v", action, err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", action, err))
	}
}

// saveUpload copies the multipart file field into the temp dir. The caller
// removes the returned path.
func (s *Server) saveUpload(r *http.Request, field string) (string, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	if err := utils.MakeDir(s.config.TempDir); err != nil {
		return "", "", err
	}

	tempFile := utils.TempFilePath(s.config.TempDir, "upload", header.Filename)
	out, err := os.Create(tempFile)
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(tempFile)
		return "", "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(tempFile)
		return "", "", err
	}
	return tempFile, header.Filename, nil
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.config.RequestTimeout)
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "LyricSync API",
		"version": "1.0.0",
		"engine":  s.service.EngineName(),
		"endpoints": map[string]string{
			"health":     "GET /health",
			"metrics":    "GET /api/health/metrics",
			"syncLyrics": "POST /sync-lyrics",
			"transcribe": "POST /transcribe",
			"align":      "POST /api/align",
			"syncs":      "GET /api/syncs",
			"addSync":    "POST /api/syncs",
			"getSync":    "GET /api/syncs/{id}",
			"deleteSync": "DELETE /api/syncs/{id}",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"model":  s.service.EngineName(),
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats()
	if err != nil {
		s.log.Errorf("Failed to get stats: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	resp := MetricsResponse{
		Status:     "healthy",
		Persist:    s.config.Persist,
		SyncCount:  stats.Syncs,
		LineCount:  stats.Lines,
		SampleRate: s.config.SampleRate,
		Engine:     stats.Engine,
	}
	if s.config.Persist {
		resp.DatabasePath = s.config.DBPath
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleSyncLyrics handles POST /sync-lyrics
func (s *Server) handleSyncLyrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	var req SyncLyricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.SyncLyricsFromURL(ctx, req.AudioURL, req.Lyrics)
	if err != nil {
		s.respondServiceError(w, err, "Failed to sync lyrics")
		return
	}

	s.respondJSON(w, http.StatusOK, SyncLyricsResponse{
		Success:         true,
		SyncedLyrics:    result.Lines,
		WhisperSegments: result.TranscriptSegments,
		AlignedSegments: result.AlignedSegments,
		ID:              result.ID,
	})
}

// handleTranscribe handles POST /transcribe (multipart field "audio")
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := r.ParseMultipartForm(s.config.MaxUploadMB << 20); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	tempFile, name, err := s.saveUpload(r, "audio")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			s.respondError(w, http.StatusBadRequest, "No audio file provided")
			return
		}
		s.log.Errorf("Failed to save upload: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	defer os.Remove(tempFile)

	s.log.Infof("Transcribing uploaded file: %s", name)
	tr, err := s.service.Transcribe(ctx, tempFile)
	if err != nil {
		s.respondServiceError(w, err, "Failed to transcribe audio")
		return
	}

	s.respondJSON(w, http.StatusOK, TranscribeResponse{
		Success:       true,
		Transcription: tr.Text,
		Language:      tr.Language,
		Segments:      tr.Segments,
	})
}

// handleAlign handles POST /api/align
func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AlignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines := s.service.Align(req.Segments, req.Lyrics)
	s.respondJSON(w, http.StatusOK, AlignResponse{
		SyncedLyrics: lines,
		Count:        len(lines),
	})
}

// handleCreateSync handles POST /api/syncs (multipart "audio" + "lyrics")
func (s *Server) handleCreateSync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := r.ParseMultipartForm(s.config.MaxUploadMB << 20); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	lyrics := r.FormValue("lyrics")
	if lyrics == "" {
		s.respondError(w, http.StatusBadRequest, "lyrics are required")
		return
	}

	tempFile, name, err := s.saveUpload(r, "audio")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			s.respondError(w, http.StatusBadRequest, "audio file is required")
			return
		}
		s.log.Errorf("Failed to save upload: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	defer os.Remove(tempFile)

	result, err := s.service.SyncLyrics(ctx, tempFile, lyrics, lyricsync.Source{
		Kind: lyricsync.SourceUpload,
		Name: name,
	})
	if err != nil {
		s.respondServiceError(w, err, "Failed to sync lyrics")
		return
	}

	s.log.Infof("Synced %s: %d lines (ID: %s)", name, result.AlignedSegments, result.ID)
	s.respondJSON(w, http.StatusCreated, result)
}

// handleListSyncs handles GET /api/syncs?limit=N
func (s *Server) handleListSyncs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	syncs, err := s.service.ListSyncs(limit)
	if err != nil {
		s.respondServiceError(w, err, "Failed to retrieve syncs")
		return
	}

	dtos := make([]SyncDTO, len(syncs))
	for i := range syncs {
		dtos[i] = toSyncDTO(&syncs[i], false)
	}
	s.respondJSON(w, http.StatusOK, ListSyncsResponse{
		Syncs: dtos,
		Count: len(dtos),
	})
}

// handleGetSync handles GET /api/syncs/{id}
func (s *Server) handleGetSync(w http.ResponseWriter, r *http.Request, id string) {
	sync, err := s.service.GetSync(id)
	if err != nil {
		if errors.Is(err, lyricsync.ErrSyncNotFound) {
			s.log.Warnf("Sync not found: %s", id)
			s.respondError(w, http.StatusNotFound, fmt.Sprintf("Sync with ID %s not found", id))
			return
		}
		s.respondServiceError(w, err, "Failed to retrieve sync")
		return
	}
	s.respondJSON(w, http.StatusOK, toSyncDTO(sync, true))
}

// handleDeleteSync handles DELETE /api/syncs/{id}
func (s *Server) handleDeleteSync(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.service.DeleteSync(id); err != nil {
		if errors.Is(err, lyricsync.ErrSyncNotFound) {
			s.respondError(w, http.StatusNotFound, fmt.Sprintf("Sync with ID %s not found", id))
			return
		}
		s.respondServiceError(w, err, "Failed to delete sync")
		return
	}

	s.log.Infof("Deleted sync %s", id)
	s.respondJSON(w, http.StatusOK, DeleteSyncResponse{
		Message: "Sync deleted successfully",
		ID:      id,
	})
}

// handleSyncs routes requests to /api/syncs
func (s *Server) handleSyncs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSyncs(w, r)
	case http.MethodPost:
		s.handleCreateSync(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleSync routes requests to /api/syncs/{id}
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/syncs/"), "/")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Sync ID required")
		return
	}
	if !utils.IsID(id) {
		s.respondError(w, http.StatusBadRequest, "Invalid sync ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSync(w, r, id)
	case http.MethodDelete:
		s.handleDeleteSync(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
