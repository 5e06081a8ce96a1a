package api

import (
	"net/http"
	"strings"
)

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	id, ok := versionID(w, r)
	if !ok {
		return
	}
	hash, err := s.versions.FormHash(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	etag := `"` + hash + `"`
	w.Header().Set("ETag", etag)
	if s.cache != "" {
		w.Header().Set("Cache-Control", s.cache)
	}
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	f, err := s.versions.Form(r.Context(), id)
	if err != nil {
		w.Header().Del("ETag")
		w.Header().Del("Cache-Control")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// etagMatches applies the weak comparison of If-None-Match: "*" matches
// anything, W/ prefixes are ignored and the header may list several tags.
func etagMatches(header, etag string) bool {
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" {
			return true
		}
		if strings.TrimPrefix(tag, "W/") == etag {
			return true
		}
	}
	return false
}
