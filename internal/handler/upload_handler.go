package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

type UploadResponse struct {
	URL string `json:"url"`
}

// Upload accepts a multipart form with a single "file" field and returns the
// public URL of the stored object.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	maxSize := h.Cfg.MaxUploadSize

	// setting the size limit from the config, with room for the multipart envelope
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1024*1024)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, fmt.Sprintf("Файл слишком большой (макс. %d MB)", maxSize/(1024*1024)), http.StatusBadRequest)
		} else {
			WriteError(w, "Ошибка при обработке файла", http.StatusBadRequest)
		}
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, "Не удалось получить файл", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		WriteError(w, "Не удалось прочитать файл", http.StatusBadRequest)
		return
	}

	url, err := h.MediaService.Upload(r.Context(), IdentityFromContext(r.Context()), r.URL.Query().Get("kind"), header.Filename, data)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, UploadResponse{URL: url}, http.StatusCreated)
}
