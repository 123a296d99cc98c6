package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"atrium/internal/auth"
	"atrium/internal/models"
	"atrium/internal/repo"
)

// максимальный размер вложения — 32 МБ
const maxAttachmentSize = 32 << 20

// POST /tasks/{id}/attachments — multipart поле "file".
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	t := h.getVisibleTask(w, r)
	if t == nil {
		return
	}
	allowed, err := h.canTouchTask(r.Context(), cur, t)
	if err != nil {
		internalError(w, err)
		return
	}
	if !allowed {
		forbidden(w, "only the task creator, an assignee or staff can upload attachments")
		return
	}

	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxAttachmentSize+1))
	if err != nil {
		internalError(w, err)
		return
	}
	if len(content) > maxAttachmentSize {
		badRequest(w, "file is too large")
		return
	}

	att := models.TaskAttachment{
		TaskID:       t.ID,
		UploadedByID: &cur.ID,
		FileName:     header.Filename,
		FileSize:     int64(len(content)),
		ContentType:  header.Header.Get("Content-Type"),
		Content:      content,
	}
	if att.ContentType == "" {
		att.ContentType = "application/octet-stream"
	}
	if err := h.atts.Create(r.Context(), &att); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &att)
}

// GET /tasks/{id}/attachments — метаданные, без содержимого.
func (h *Handler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	t := h.getVisibleTask(w, r)
	if t == nil {
		return
	}
	out, err := h.atts.ListForTask(r.Context(), t.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /tasks/{id}/attachments/{attID}
func (h *Handler) GetAttachment(w http.ResponseWriter, r *http.Request) {
	t := h.getVisibleTask(w, r)
	if t == nil {
		return
	}
	attID, ok := pathID(r, "attID")
	if !ok {
		badRequest(w, "invalid attachment id")
		return
	}
	att, err := h.atts.Get(r.Context(), t.ID, attID)
	if errors.Is(err, repo.ErrNotFound) {
		notFound(w, "attachment not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, att)
}

// GET /tasks/{id}/attachments/{attID}/download — отдаёт байты файла.
func (h *Handler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	t := h.getVisibleTask(w, r)
	if t == nil {
		return
	}
	attID, ok := pathID(r, "attID")
	if !ok {
		badRequest(w, "invalid attachment id")
		return
	}
	att, err := h.atts.Get(r.Context(), t.ID, attID)
	if errors.Is(err, repo.ErrNotFound) {
		notFound(w, "attachment not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.FileName))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", att.FileSize))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(att.Content)
}

// DELETE /tasks/{id}/attachments/{attID}
func (h *Handler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	t := h.getVisibleTask(w, r)
	if t == nil {
		return
	}
	allowed, err := h.canTouchTask(r.Context(), cur, t)
	if err != nil {
		internalError(w, err)
		return
	}
	if !allowed {
		forbidden(w, "only the task creator, an assignee or staff can delete attachments")
		return
	}
	attID, ok := pathID(r, "attID")
	if !ok {
		badRequest(w, "invalid attachment id")
		return
	}
	if err := h.atts.Delete(r.Context(), t.ID, attID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			notFound(w, "attachment not found")
			return
		}
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
