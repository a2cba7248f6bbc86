// Package server exposes the HTTP boundary: document upload, answer
// verification, and index reset.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"studyrag/internal/ingest"
	"studyrag/internal/models"
	"studyrag/internal/verify"
)

// DefaultMaxUploadBytes caps an upload when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// Ingester processes one uploaded document.
type Ingester interface {
	Ingest(ctx context.Context, filename string, data []byte) (*models.IngestResult, error)
}

// AnswerVerifier judges a question/answer pair.
type AnswerVerifier interface {
	Verify(ctx context.Context, question, answer string) (*models.VerificationResult, error)
}

// Resetter destroys and recreates the vector index.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Server routes upload, verify, and reset requests to the pipeline
// components.
type Server struct {
	ingester       Ingester
	verifier       AnswerVerifier
	index          Resetter
	maxUploadBytes int64

	// Reset must not run concurrently with an ingestion in progress:
	// uploads hold the read side, reset the write side.
	mu sync.RWMutex
}

// New creates a server over the given components.
func New(ingester Ingester, verifier AnswerVerifier, index Resetter, maxUploadBytes int64) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{
		ingester:       ingester,
		verifier:       verifier,
		index:          index,
		maxUploadBytes: maxUploadBytes,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /verify", s.handleVerify)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return logRequests(mux)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s handled in %v", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	filename, data, err := readFilePart(r)
	if err != nil {
		if errors.Is(err, errNoFilePart) {
			writeError(w, http.StatusBadRequest, "No file part")
			return
		}
		log.Printf("Error reading uploaded file: %v", err)
		writeError(w, http.StatusInternalServerError, "Error reading uploaded file")
		return
	}

	result, err := s.ingester.Ingest(r.Context(), filename, data)
	switch {
	case errors.Is(err, ingest.ErrNoSelectedFile):
		writeError(w, http.StatusBadRequest, "No selected file")
		return
	case errors.Is(err, ingest.ErrNoExtractableText):
		writeError(w, http.StatusBadRequest, "No extractable text found in the PDF.")
		return
	case err != nil:
		// Unparseable uploads land here; the caller sees the same
		// terminal outcome as a text-free document.
		log.Printf("Error ingesting %q: %v", filename, err)
		writeError(w, http.StatusBadRequest, "No extractable text found in the PDF.")
		return
	}

	questions := result.Questions
	if questions == nil {
		questions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"questions": questions})
}

var errNoFilePart = errors.New("server: no file part")

// readFilePart walks the multipart body for the "file" field. A part
// with an empty filename is still a selected-file attempt, so it is
// returned as such and rejected downstream, matching browser behavior
// for an empty file picker.
func readFilePart(r *http.Request) (filename string, data []byte, err error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return "", nil, errNoFilePart
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil, errNoFilePart
		}
		if err != nil {
			return "", nil, errNoFilePart
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}
		data, err = io.ReadAll(part)
		filename = part.FileName()
		part.Close()
		if err != nil {
			return "", nil, err
		}
		return filename, data, nil
	}
}

type verifyRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Question or answer missing")
		return
	}
	if req.Question == "" || req.Answer == "" {
		writeError(w, http.StatusBadRequest, "Question or answer missing")
		return
	}

	result, err := s.verifier.Verify(r.Context(), req.Question, req.Answer)
	switch {
	case errors.Is(err, verify.ErrNoRelevantContext):
		writeError(w, http.StatusBadRequest, "No relevant context found")
		return
	case err != nil:
		log.Printf("Error verifying answer: %v", err)
		writeError(w, http.StatusInternalServerError, "Error with language model verification service")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"verification": result.Narrative})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Reset(r.Context()); err != nil {
		log.Printf("Error resetting index: %v", err)
		writeError(w, http.StatusInternalServerError, "Error resetting vector index")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Index has been reset."})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
