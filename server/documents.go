package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var pdfMagic = []byte("%PDF-")

type uploadResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// handleUpload stores a multipart "pdfFile" upload under a fresh document id.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid upload", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("pdfFile")
	if err != nil {
		http.Error(w, "Missing PDF file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	br := bufio.NewReader(file)
	if head, _ := br.Peek(len(pdfMagic)); !bytes.Equal(head, pdfMagic) {
		http.Error(w, "Not a PDF file", http.StatusUnsupportedMediaType)
		return
	}

	id := uuid.New().String()
	dst, err := os.Create(s.documentPath(id))
	if err != nil {
		log.Printf("Failed to create upload %s: %v", id, err)
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	n, err := io.Copy(dst, br)
	if err != nil {
		os.Remove(dst.Name())
		http.Error(w, "Failed to save file data", http.StatusInternalServerError)
		return
	}

	log.Printf("Stored upload %s as document %s (%d bytes)", header.Filename, id, n)
	writeJSON(w, http.StatusCreated, uploadResponse{ID: id, Name: header.Filename, Size: n})
}

// handlePreview renders one zero-based page of a stored document as JPEG.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path, err := s.lookupDocument(id)
	if err != nil {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 0 {
		http.Error(w, "Invalid page", http.StatusBadRequest)
		return
	}

	img, err := s.previews.Render(r.Context(), id, path, page)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			http.Error(w, "Preview cancelled", http.StatusServiceUnavailable)
			return
		}
		log.Printf("Failed to render page %d of %s: %v", page, id, err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(img)
}

func (s *Server) documentPath(id string) string {
	return filepath.Join(s.cfg.UploadDir, id+".pdf")
}

// lookupDocument returns the path of the stored document id.
func (s *Server) lookupDocument(id string) (string, error) {
	if u, err := uuid.Parse(id); err != nil || u.String() != id {
		return "", fmt.Errorf("invalid document id %q", id)
	}
	path := s.documentPath(id)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("document %s: %w", id, err)
	}
	return path, nil
}
