// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"notepress/internal/middleware"
	"notepress/internal/storage"
)

const (
	// maxUploadSize is the upload limit in bytes (10 MiB).
	maxUploadSize = 10 << 20

	// thumbMaxWidth is the maximum thumbnail width in pixels.
	thumbMaxWidth = 400

	// thumbQuality is the JPEG quality for generated thumbnails.
	thumbQuality = 80

	// maxImagePixels rejects decompression bombs before a full decode.
	maxImagePixels = 50_000_000
)

// allowedImageTypes are the content types accepted for upload.
var allowedImageTypes = map[string]bool{
	"image/jpeg":    true,
	"image/png":     true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

// thumbableTypes are image types that support thumbnail generation.
// GIF is excluded to avoid flattening animations; SVG is vector.
var thumbableTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Upload groups the image upload and serving handlers.
type Upload struct {
	storage *storage.Client // nil when object storage is not configured
}

func NewUpload(client *storage.Client) *Upload {
	return &Upload{storage: client}
}

// Create accepts a multipart image upload and stores it under a
// year/month/uuid key. Content type is sniffed from the bytes, not
// trusted from the request.
func (h *Upload) Create(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "Object storage is not configured.")
		return
	}

	ident := middleware.IdentityFromCtx(r.Context())

	// Limit request body to maxUploadSize + some overhead for form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "File too large. Maximum size is 10 MB.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided.")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		writeError(w, http.StatusBadRequest, "File too large. Maximum size is 10 MB.")
		return
	}

	// Detect content type by sniffing the first 512 bytes.
	sniffBuf := make([]byte, 512)
	n, err := file.Read(sniffBuf)
	if err != nil && err != io.EOF {
		h.serverError(w, "upload read", err)
		return
	}
	contentType := http.DetectContentType(sniffBuf[:n])

	// SVG detection: DetectContentType returns text/xml or application/xml for SVGs.
	if strings.HasSuffix(strings.ToLower(header.Filename), ".svg") &&
		(strings.Contains(contentType, "xml") || strings.Contains(contentType, "text/plain")) {
		contentType = "image/svg+xml"
	}

	if !allowedImageTypes[contentType] {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("File type %q is not allowed.", contentType))
		return
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.serverError(w, "upload seek", err)
		return
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		h.serverError(w, "upload read", err)
		return
	}

	now := time.Now()
	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = extensionFromType(contentType)
	}
	fileID := uuid.New().String()
	key := objectKey(now, fileID, ext)

	ctx := r.Context()
	if err := h.storage.Upload(ctx, key, contentType, bytes.NewReader(fileBytes), int64(len(fileBytes)), ident.ID); err != nil {
		h.serverError(w, "upload store", err)
		return
	}

	// Best effort; the original upload already succeeded.
	var thumbURL string
	if thumbableTypes[contentType] {
		thumbData, err := generateThumbnail(bytes.NewReader(fileBytes), thumbMaxWidth)
		if err != nil {
			slogError("thumbnail generation", err)
		} else if thumbData != nil {
			tk := objectKey(now, fileID+"_thumb", ".jpg")
			if err := h.storage.Upload(ctx, tk, "image/jpeg", bytes.NewReader(thumbData), int64(len(thumbData)), ident.ID); err != nil {
				slogError("thumbnail upload", err)
			} else {
				thumbURL = "/api/upload/" + tk
			}
		}
	}

	resp := map[string]any{
		"success":  true,
		"url":      "/api/upload/" + key,
		"fileName": key,
	}
	if thumbURL != "" {
		resp["thumbUrl"] = thumbURL
	}
	writeJSON(w, http.StatusOK, resp)
}

// Serve streams a stored image. Keys are immutable (uuid-named), so
// responses carry a far-future cache header.
func (h *Upload) Serve(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "Object storage is not configured.")
		return
	}

	key := fmt.Sprintf("%s/%s/%s",
		chi.URLParam(r, "year"),
		chi.URLParam(r, "month"),
		chi.URLParam(r, "name"),
	)

	obj, err := h.storage.Get(r.Context(), key)
	if err != nil {
		h.serverError(w, "upload fetch", err)
		return
	}
	if obj == nil {
		writeError(w, http.StatusNotFound, "File not found.")
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if obj.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", obj.Size))
	}
	io.Copy(w, obj.Body)
}

// List returns recent uploads for the file picker.
func (h *Upload) List(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "Object storage is not configured.")
		return
	}

	objects, err := h.storage.List(r.Context(), 100)
	if err != nil {
		h.serverError(w, "upload list", err)
		return
	}

	items := make([]map[string]any, 0, len(objects))
	for _, obj := range objects {
		items = append(items, map[string]any{
			"key":      obj.Key,
			"url":      "/api/upload/" + obj.Key,
			"size":     obj.Size,
			"uploaded": obj.Uploaded,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// Delete removes a stored object.
func (h *Upload) Delete(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "Object storage is not configured.")
		return
	}

	key := fmt.Sprintf("%s/%s/%s",
		chi.URLParam(r, "year"),
		chi.URLParam(r, "month"),
		chi.URLParam(r, "name"),
	)

	if err := h.storage.Delete(r.Context(), key); err != nil {
		h.serverError(w, "upload delete", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// generateThumbnail produces a JPEG at most maxWidth pixels wide,
// preserving aspect ratio. Returns nil data when the source is already
// small enough.
func generateThumbnail(src io.Reader, maxWidth int) ([]byte, error) {
	// Decode config first to check dimensions without a full decode.
	imgCfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if int64(imgCfg.Width)*int64(imgCfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("image too large: %dx%d exceeds %d pixels", imgCfg.Width, imgCfg.Height, maxImagePixels)
	}

	if imgCfg.Width <= maxWidth {
		return nil, nil
	}

	seeker, ok := src.(io.Seeker)
	if !ok {
		return nil, fmt.Errorf("source does not support seeking")
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}

	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	ratio := float64(maxWidth) / float64(bounds.Dx())
	newWidth := maxWidth
	newHeight := int(float64(bounds.Dy()) * ratio)

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// objectKey builds the stored name for an uploaded file. The year/month
// prefix is part of the name clients get back, so Serve can locate the
// object from the returned fileName alone.
func objectKey(now time.Time, fileID, ext string) string {
	return fmt.Sprintf("%d/%02d/%s%s", now.Year(), now.Month(), fileID, ext)
}

func extensionFromType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	default:
		return ""
	}
}

func (h *Upload) serverError(w http.ResponseWriter, op string, err error) {
	slogError(op, err)
	writeError(w, http.StatusInternalServerError, "Internal server error.")
}
