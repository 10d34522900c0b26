package api

import (
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/errors"
	"github.com/backlot-app/backlot/internal/httputil"
	"github.com/backlot-app/backlot/internal/supabase"
)

// maxUploadBytes bounds a single file upload.
const maxUploadBytes = 5 << 20 // 5 MiB

// allowedMimeTypes is the upload whitelist. Checked before any byte reaches
// the storage bucket.
var allowedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

func (a *API) handleListFiles(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	projectID := mux.Vars(r)["id"]
	if err := a.auth.AuthorizeProjectAccess(r.Context(), caller, projectID); err != nil {
		a.writeError(w, r, err)
		return
	}
	files, err := a.repo.ListProjectFiles(r.Context(), projectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, files)
}

// handleUploadFile accepts a multipart form with a "file" part and an
// optional "file_type" field. Size and MIME type are validated before the
// object is written, so a rejected upload never leaves a stray object.
func (a *API) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	projectID := mux.Vars(r)["id"]
	if err := a.auth.AuthorizeProjectAccess(r.Context(), caller, projectID); err != nil {
		a.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.BadRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "file part is required")
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		httputil.BadRequest(w, "file exceeds the 5 MB limit")
		return
	}
	data, truncated, err := httputil.ReadAllWithLimit(file, maxUploadBytes)
	if err != nil {
		a.writeError(w, r, errors.Upstream("failed to read upload", err))
		return
	}
	if truncated {
		httputil.BadRequest(w, "file exceeds the 5 MB limit")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if !allowedMimeTypes[mimeType] {
		httputil.BadRequest(w, "unsupported file type: "+mimeType)
		return
	}

	fileType := r.FormValue("file_type")
	if fileType == "" {
		fileType = database.FileTypeOther
	}

	storagePath := projectID + "/" + uuid.NewString() + path.Ext(header.Filename)
	bucket := a.supa.Storage().From(a.filesBucket)
	if err := bucket.Upload(r.Context(), storagePath, data, &supabase.UploadOptions{ContentType: mimeType}); err != nil {
		a.writeError(w, r, errors.Upstream("failed to store file", err))
		return
	}

	meta, err := a.repo.CreateProjectFile(r.Context(), database.ProjectFileCreate{
		ProjectID:   projectID,
		Name:        header.Filename,
		FileType:    fileType,
		FileSize:    int64(len(data)),
		MimeType:    mimeType,
		URL:         bucket.PublicURL(storagePath),
		StoragePath: storagePath,
		UploadedBy:  caller.UserID,
	})
	if err != nil {
		// Roll back the orphaned object; the row never existed.
		if derr := bucket.Delete(r.Context(), []string{storagePath}); derr != nil {
			a.logger.WithContext(r.Context()).Warn().
				Err(derr).
				Str("path", storagePath).
				Msg("orphaned object cleanup failed")
		}
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, meta)
}

// handleUpdateFile renames or retypes a file. The stored object stays put.
func (a *API) handleUpdateFile(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	meta, err := a.repo.GetProjectFile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeOwnerOrAdmin(caller, meta.UploadedBy); err != nil {
		a.writeError(w, r, err)
		return
	}
	var update database.ProjectFileUpdate
	if !httputil.DecodeJSON(w, r, &update) {
		return
	}
	updated, err := a.repo.UpdateProjectFile(r.Context(), meta.ID, update)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// handleDeleteFile removes the stored object best-effort, then the metadata
// row. A storage failure is logged but does not block the row delete.
func (a *API) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	meta, err := a.repo.GetProjectFile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeOwnerOrAdmin(caller, meta.UploadedBy); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.supa.Storage().From(a.filesBucket).Delete(r.Context(), []string{meta.StoragePath}); err != nil {
		a.logger.WithContext(r.Context()).Warn().
			Err(err).
			Str("path", meta.StoragePath).
			Msg("storage delete failed")
	}
	if err := a.repo.DeleteProjectFile(r.Context(), meta.ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleSignedFileURL issues a short-lived download URL for a file the
// caller can see.
func (a *API) handleSignedFileURL(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	meta, err := a.repo.GetProjectFile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeProjectAccess(r.Context(), caller, meta.ProjectID); err != nil {
		a.writeError(w, r, err)
		return
	}
	signed, err := a.supa.Storage().From(a.filesBucket).CreateSignedURL(r.Context(), meta.StoragePath, 3600)
	if err != nil {
		a.writeError(w, r, errors.Upstream("failed to sign URL", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"url": signed})
}
