package thttp

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/kevinpollet/nego"
	"github.com/klauspost/compress/gzip"
)

// Content types served by WriteJSON
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// ShouldGzip returns if gzip-compression is asked for in HTTP request
func ShouldGzip(r *http.Request) bool {
	// nego.NegotiateContentEncoding(r, "gzip") returns "gzip"
	// if there is no "Accept-Encoding" header there. Guard against it.
	return r.Header.Get("Accept-Encoding") != "" && nego.NegotiateContentEncoding(r, "gzip") == "gzip"
}

// WriteJSON serves v as JSON, indented if the client prefers text/plain, and
// gzipped if the client accepts it
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	contentType := ContentTypeJSON
	if r.Header.Get("Accept") != "" && nego.NegotiateContentType(r, ContentTypeJSON, ContentTypeText) == ContentTypeText {
		contentType = ContentTypeText
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return err
	}

	w.Header().Add("Vary", "Accept, Accept-Encoding")
	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	if !ShouldGzip(r) {
		w.WriteHeader(status)
		_, err := w.Write(body.Bytes())
		return err
	}

	w.Header().Set("Content-Encoding", "gzip")
	w.WriteHeader(status)
	gz := gzip.NewWriter(w)
	if _, err := gz.Write(body.Bytes()); err != nil {
		return err
	}
	return gz.Close()
}
