package gateway

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tinypirate/tinypirate/pkg/logger"
	"github.com/tinypirate/tinypirate/pkg/media"
)

// maxMediaBytes bounds a single upload.
const maxMediaBytes = 16 << 20

// MediaResponse carries the opaque ref an upload can be attached under.
type MediaResponse struct {
	Ref string `json:"ref"`
}

// handleMediaUpload stores the raw request body and returns an opaque
// media ref usable as the attachment field of a submission.
func (s *Server) handleMediaUpload(w http.ResponseWriter, r *http.Request) {
	if s.mediaStore == nil {
		writeError(w, http.StatusNotImplemented, "media uploads disabled")
		return
	}

	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "media dir unavailable")
		return
	}

	path := filepath.Join(s.mediaDir, uuid.New().String())
	file, err := os.Create(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store media")
		return
	}

	_, copyErr := io.Copy(file, io.LimitReader(r.Body, maxMediaBytes))
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(path)
		writeError(w, http.StatusInternalServerError, "failed to store media")
		return
	}

	ref, err := s.mediaStore.Register(path, media.Meta{
		ContentType: r.Header.Get("Content-Type"),
		Source:      "gateway",
	})
	if err != nil {
		os.Remove(path)
		writeError(w, http.StatusInternalServerError, "failed to register media")
		return
	}

	logger.DebugCF("gateway", "media stored", map[string]any{"ref": ref})
	writeJSON(w, http.StatusCreated, MediaResponse{Ref: ref})
}
