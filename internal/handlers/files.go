package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"rfqmarket/internal/objectstore"
)

// maxUploadBytes bounds the multipart body; the largest category is 150MB.
const maxUploadBytes = 151 << 20

// UploadHandler handles POST /upload?type=stl|document|image with a
// multipart "file" field.
func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(w, r); !ok {
		return
	}
	if h.Files == nil {
		respondMessage(w, http.StatusServiceUnavailable, "File storage is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondMessage(w, http.StatusBadRequest, "File upload failed")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, objectstore.ErrEmpty)
		return
	}
	defer file.Close()

	category := r.URL.Query().Get("type")
	if category == "" {
		category = r.FormValue("type")
	}
	c, err := objectstore.LookupCategory(category)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := c.Check(header.Filename, header.Size); err != nil {
		respondError(w, r, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	obj, err := h.Files.Store(r.Context(), data, c.Name, header.Filename)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, obj)
}

// ProxyFileHandler handles GET /files/proxy?url=. It streams a stored file
// back from this origin so browsers can load 3D models without CORS.
func (h *Handler) ProxyFileHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(w, r); !ok {
		return
	}
	if h.Files == nil {
		respondMessage(w, http.StatusServiceUnavailable, "File storage is not configured")
		return
	}
	u := r.URL.Query().Get("url")
	if u == "" {
		respondMessage(w, http.StatusBadRequest, "URL parameter is required")
		return
	}
	ctx := r.Context()
	if h.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.FetchTimeout)
		defer cancel()
	}
	data, ctype, err := h.Files.Fetch(ctx, u)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
