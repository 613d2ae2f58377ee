package invoice

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/fakturai/fakturai/internal/document"
)

// maxUploadSize caps multipart uploads (high-resolution phone scans)
const maxUploadSize = int64(50 << 20) // 50MB

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writePipelineError maps the pipeline error taxonomy onto HTTP so the
// client can pick a UI path: password prompts for the recoverable kinds,
// fatal error display for everything else
func writePipelineError(w http.ResponseWriter, err error) {
	if se, ok := AsSchemaError(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      se.Message,
			"error_kind": "schema_violation",
			"fields":     se.Fields,
		})
		return
	}

	if kind, ok := document.KindOf(err); ok {
		status := http.StatusBadRequest
		switch kind {
		case document.PasswordRequired, document.InvalidPassword:
			status = http.StatusUnauthorized
		case document.UnsupportedFormat:
			status = http.StatusUnsupportedMediaType
		case document.CorruptedDocument, document.CorruptedImage:
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]string{
			"error":      err.Error(),
			"error_kind": kind.String(),
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": err.Error(),
	})
}

// handleUploadInvoice accepts a multipart upload and runs the pipeline
func (s *Server) handleUploadInvoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB."
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errorMsg})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "No file was selected. Please choose a file to upload.",
		})
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "File is too large. Maximum size is 50MB.",
		})
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Error reading file. Please try again.",
		})
		return
	}

	record, err := s.service.ProcessDocument(r.Context(), header.Filename, data)
	if err != nil {
		slog.Error("Error processing invoice", "filename", header.Filename, "error", err)
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// handleSubmitPassword retries the pending password-protected document
func (s *Server) handleSubmitPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := s.service.SubmitPassword(r.Context(), req.Password)
	if err != nil {
		slog.Error("Error processing password attempt", "error", err)
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// handleCancelRecovery discards the pending password session
func (s *Server) handleCancelRecovery(w http.ResponseWriter, r *http.Request) {
	s.service.CancelRecovery()
	w.WriteHeader(http.StatusNoContent)
}

// handleListInvoices returns all stored invoice records
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListRecords()
	if err != nil {
		slog.Error("Error listing invoices", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []*Record{}
	}

	writeJSON(w, http.StatusOK, records)
}

// handleGetInvoice returns a single invoice record
func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Invoice ID required", http.StatusBadRequest)
		return
	}
	record, err := s.service.GetRecord(id)
	if err != nil {
		corsError(w, "Invoice not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleDeleteInvoice deletes a record and its stored upload
func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Invoice ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteRecord(id); err != nil {
		corsError(w, "Error deleting invoice", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetInvoiceFile returns the original uploaded document
func (s *Server) handleGetInvoiceFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Invoice ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.GetRecordFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleExportInvoice returns the record rendered as an Excel workbook
func (s *Server) handleExportInvoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Invoice ID required", http.StatusBadRequest)
		return
	}
	data, err := s.service.ExportRecord(id)
	if err != nil {
		slog.Error("Error exporting invoice", "id", id, "error", err)
		corsError(w, "Error exporting invoice", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="faktura_%s.xlsx"`, id))
	w.Write(data)
}
