package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/vrplayer/vrprobe/internal/detection"
	"github.com/vrplayer/vrprobe/internal/errors"
	"github.com/vrplayer/vrprobe/internal/library"
	"github.com/vrplayer/vrprobe/internal/media"
)

const maxRequestBody = 1 << 20

type detectRequest struct {
	Path string `json:"path"`
}

type detectResponse struct {
	Path   string             `json:"path"`
	Result detection.Result   `json:"result"`
	Info   *library.VideoInfo `json:"info,omitempty"`
	Probe  *media.ProbeInfo   `json:"probe,omitempty"`
}

type scanRequest struct {
	Directories []string `json:"directories"`
}

type listResponse struct {
	Count   int              `json:"count"`
	Entries []*library.Entry `json:"entries"`
}

// prober is implemented by providers that learned stream details while
// loading, such as media.FFmpegProvider.
type prober interface {
	Info() *media.ProbeInfo
}

// handleDetect classifies one local file without cataloging it.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if s.lib == nil || s.lib.Detector == nil {
		s.writeError(w, r, errors.NewServiceDownError("detection"))
		return
	}

	var req detectRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Path == "" {
		s.writeError(w, r, errors.NewValidationError("path is required"))
		return
	}

	path := filepath.Clean(req.Path)
	if err := requireFile(path); err != nil {
		s.writeError(w, r, err)
		return
	}

	var provider detection.FrameProvider
	if s.lib.Open != nil {
		p, err := s.lib.Open(path)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		provider = p
	}

	res := s.lib.Detector.Detect(r.Context(), path, provider)
	if err := r.Context().Err(); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := detectResponse{Path: path, Result: res}
	if p, ok := provider.(prober); ok {
		resp.Probe = p.Info()
	}
	if s.lib.Scanner != nil && library.IsSupportedVideoFormat(path, s.lib.Scanner.Formats()) {
		if info, err := library.GetVideoInfo(path, s.lib.Scanner.Formats()); err == nil {
			resp.Info = info
		}
	}

	s.writeJSON(w, r, http.StatusOK, resp)
}

// handleListLibrary lists cataloged entries, optionally filtered with
// ?vr=true or ?vr=false.
func (s *Server) handleListLibrary(w http.ResponseWriter, r *http.Request) {
	if s.lib == nil || s.lib.Catalog == nil {
		s.writeError(w, r, errors.NewServiceDownError("library"))
		return
	}

	var filter *bool
	if raw := r.URL.Query().Get("vr"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, r, errors.NewValidationError("vr must be true or false"))
			return
		}
		filter = &v
	}

	entries, err := s.lib.Catalog.List(r.Context())
	if err != nil {
		s.writeError(w, r, errors.WrapInternalError(err, "failed to list library"))
		return
	}

	if filter != nil {
		kept := entries[:0]
		for _, e := range entries {
			if e.Result.IsVR == *filter {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	if entries == nil {
		entries = []*library.Entry{}
	}

	s.writeJSON(w, r, http.StatusOK, listResponse{Count: len(entries), Entries: entries})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookupEntry(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, entry)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookupEntry(w, r)
	if !ok {
		return
	}

	var err error
	if s.lib.Scanner != nil {
		err = s.lib.Scanner.Remove(r.Context(), entry.Path)
	} else {
		err = s.lib.Catalog.Delete(r.Context(), entry.ID)
	}
	if err != nil {
		s.writeError(w, r, errors.WrapInternalError(err, "failed to delete library entry"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookupEntry(w http.ResponseWriter, r *http.Request) (*library.Entry, bool) {
	if s.lib == nil || s.lib.Catalog == nil {
		s.writeError(w, r, errors.NewServiceDownError("library"))
		return nil, false
	}

	id := mux.Vars(r)["id"]
	entry, err := s.lib.Catalog.Get(r.Context(), id)
	switch {
	case stderrors.Is(err, library.ErrEntryNotFound):
		s.writeError(w, r, errors.NewNotFoundError("library entry").
			WithDetails(map[string]interface{}{"id": id}))
		return nil, false
	case err != nil:
		s.writeError(w, r, errors.WrapInternalError(err, "failed to read library entry"))
		return nil, false
	}
	return entry, true
}

// handleScanLibrary scans the configured directories, or the ones named in
// the body, and answers with the scan summary. Only one API scan runs at a
// time.
func (s *Server) handleScanLibrary(w http.ResponseWriter, r *http.Request) {
	if s.lib == nil || s.lib.Scanner == nil {
		s.writeError(w, r, errors.NewServiceDownError("library"))
		return
	}

	var req scanRequest
	if err := decodeBody(w, r, &req); err != nil && !stderrors.Is(err, io.EOF) {
		s.writeError(w, r, err)
		return
	}

	dirs := req.Directories
	if len(dirs) == 0 {
		dirs = s.lib.Directories
	}
	if len(dirs) == 0 {
		s.writeError(w, r, errors.NewValidationError("no library directories configured"))
		return
	}
	for _, dir := range dirs {
		if err := requireDir(dir); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	if !s.scanMu.TryLock() {
		s.writeError(w, r, errors.NewConflictError("a library scan is already running"))
		return
	}
	defer s.scanMu.Unlock()

	// Large libraries take longer than server.write_timeout to scan; lift
	// the deadline so the summary still reaches the client.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !stderrors.Is(err, http.ErrNotSupported) {
		s.logger.WithError(err).Warn("Failed to clear write deadline for library scan")
	}

	summary, err := s.lib.Scanner.Scan(r.Context(), dirs, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, summary)
}

// decodeBody decodes a JSON body. An empty body yields io.EOF unchanged so
// callers with optional bodies can accept it.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, io.EOF):
		return fmt.Errorf("empty request body: %w",
			errors.Wrap(err, errors.ErrorTypeValidation, "request body is required", http.StatusBadRequest))
	default:
		return errors.Wrap(err, errors.ErrorTypeValidation, "invalid JSON body", http.StatusBadRequest)
	}
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return errors.NewNotFoundError("file").WithDetails(map[string]interface{}{"path": path})
	case err != nil:
		return errors.WrapInternalError(err, "failed to stat file")
	case info.IsDir():
		return errors.NewValidationError("path is a directory; use /api/v1/library/scan")
	}
	return nil
}

func requireDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return errors.NewNotFoundError("directory").WithDetails(map[string]interface{}{"path": dir})
	case err != nil:
		return errors.WrapInternalError(err, "failed to stat directory")
	case !info.IsDir():
		return errors.NewValidationError(fmt.Sprintf("%s is not a directory", dir))
	}
	return nil
}
