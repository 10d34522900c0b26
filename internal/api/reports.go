package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/httputil"
)

// handleListReports returns all reports for admins and department heads,
// and only the caller's own reports for crew.
func (a *API) handleListReports(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	var reports []database.Report
	var err error
	if caller.IsAdmin() || caller.IsDepartmentHead() {
		reports, err = a.repo.ListReports(r.Context())
	} else {
		reports, err = a.repo.ListReportsBy(r.Context(), caller.UserID)
	}
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reports)
}

// handleCreateReport files a report and fans out notifications to admins,
// department heads, and the project's managers. Fan-out is best-effort: a
// failure is logged and the report still succeeds.
func (a *API) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	var create database.ReportCreate
	if !httputil.DecodeJSON(w, r, &create) {
		return
	}
	create.ReportedBy = caller.UserID
	if create.ProjectID != nil {
		if err := a.auth.AuthorizeProjectAccess(r.Context(), caller, *create.ProjectID); err != nil {
			a.writeError(w, r, err)
			return
		}
	}
	report, err := a.repo.CreateReport(r.Context(), create)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.notifier.ReportSubmitted(r.Context(), report); err != nil {
		a.logger.WithContext(r.Context()).Warn().
			Err(err).
			Str("report_id", report.ID).
			Msg("notification fan-out failed")
		a.metrics.RecordFanout("error")
	} else {
		a.metrics.RecordFanout("ok")
	}
	httputil.WriteJSON(w, http.StatusCreated, report)
}

func (a *API) handleGetReport(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	report, err := a.repo.GetReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !caller.IsAdmin() && !caller.IsDepartmentHead() && caller.UserID != report.ReportedBy {
		httputil.Forbidden(w, "not allowed to view this report")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (a *API) handleUpdateReport(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	report, err := a.repo.GetReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeOwnerOrAdmin(caller, report.ReportedBy); err != nil {
		a.writeError(w, r, err)
		return
	}
	var update database.ReportUpdate
	if !httputil.DecodeJSON(w, r, &update) {
		return
	}
	// Replacing the attachment orphans the old object; clean it up
	// best-effort before the row points elsewhere.
	if update.AttachmentURL != nil && (report.AttachmentURL == nil || *report.AttachmentURL != *update.AttachmentURL) {
		if path := attachmentObjectPath(report.AttachmentURL, a.attachmentsBucket); path != "" {
			if err := a.supa.Storage().From(a.attachmentsBucket).Delete(r.Context(), []string{path}); err != nil {
				a.logger.WithContext(r.Context()).Warn().
					Err(err).
					Str("report_id", report.ID).
					Msg("stale attachment delete failed")
			}
		}
	}
	updated, err := a.repo.UpdateReport(r.Context(), report.ID, update)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// handleDeleteReport removes the report. A stored attachment is deleted
// best-effort first; comments cascade away with the row.
func (a *API) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	report, err := a.repo.GetReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeOwnerOrAdmin(caller, report.ReportedBy); err != nil {
		a.writeError(w, r, err)
		return
	}
	if path := attachmentObjectPath(report.AttachmentURL, a.attachmentsBucket); path != "" {
		if err := a.supa.Storage().From(a.attachmentsBucket).Delete(r.Context(), []string{path}); err != nil {
			a.logger.WithContext(r.Context()).Warn().
				Err(err).
				Str("report_id", report.ID).
				Msg("attachment delete failed")
		}
	}
	if err := a.repo.DeleteReport(r.Context(), report.ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// attachmentObjectPath extracts the object path from a public attachment
// URL. Returns "" for external or malformed URLs, which are then left alone.
func attachmentObjectPath(attachmentURL *string, bucket string) string {
	if attachmentURL == nil {
		return ""
	}
	marker := "/object/public/" + bucket + "/"
	idx := strings.Index(*attachmentURL, marker)
	if idx < 0 {
		return ""
	}
	return (*attachmentURL)[idx+len(marker):]
}

func (a *API) handleListReportComments(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	report, err := a.repo.GetReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !caller.IsAdmin() && !caller.IsDepartmentHead() && caller.UserID != report.ReportedBy {
		httputil.Forbidden(w, "not allowed to view this report")
		return
	}
	comments, err := a.repo.ListReportComments(r.Context(), report.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comments)
}

type commentRequest struct {
	Content string `json:"content"`
}

func (a *API) handleCreateReportComment(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	report, err := a.repo.GetReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !caller.IsAdmin() && !caller.IsDepartmentHead() && caller.UserID != report.ReportedBy {
		httputil.Forbidden(w, "not allowed to comment on this report")
		return
	}
	var req commentRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.Content == "" {
		httputil.BadRequest(w, "content is required")
		return
	}
	comment, err := a.repo.CreateReportComment(r.Context(), report.ID, caller.UserID, req.Content)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, comment)
}

func (a *API) handleUpdateReportComment(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	comment, err := a.repo.GetReportComment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if caller.UserID != comment.CommenterID {
		httputil.Forbidden(w, "only the commenter can edit a comment")
		return
	}
	var req commentRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.Content == "" {
		httputil.BadRequest(w, "content is required")
		return
	}
	updated, err := a.repo.UpdateReportComment(r.Context(), comment.ID, req.Content)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteReportComment(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.resolveCaller(w, r)
	if !ok {
		return
	}
	comment, err := a.repo.GetReportComment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.AuthorizeOwnerOrAdmin(caller, comment.CommenterID); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.repo.DeleteReportComment(r.Context(), comment.ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
