package web

import (
	"net/http"
	"os"
	"path/filepath"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, "index.html", "text/html; charset=utf-8")
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, "main.js", "application/javascript")
}

// serveAsset reads name from the asset directory on every request, so the
// UI can be replaced without a restart.
func (s *Server) serveAsset(w http.ResponseWriter, name, contentType string) {
	data, err := os.ReadFile(filepath.Join(s.assetDir, name))
	if err != nil {
		s.logger.Debug("asset unavailable", "name", name, "error", err)
		writeText(w, http.StatusNotFound, "text/plain; charset=utf-8", name+" not found")
		return
	}
	w.Header().Set("Content-Type", contentType)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(data)
}
