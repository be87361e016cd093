package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/waghmarepb/consolidate/internal/exceldata"
	"github.com/waghmarepb/consolidate/internal/logging"
)

const previewRows = 5

// Router returns the configured API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/files/upload", s.handleUpload)
		r.Get("/data/list", s.handleList)
		r.Delete("/data/delete-all", s.handleDeleteAll)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xls" && ext != ".xlsx" {
		writeError(w, http.StatusBadRequest, "Invalid file type. Only .xls and .xlsx files are allowed")
		return
	}

	stagedName := fmt.Sprintf("%s_%s", s.now().Format("20060102_150405"), filepath.Base(header.Filename))
	stagedPath := filepath.Join(s.cfg.Paths.UploadDir, stagedName)
	if err := s.stageFile(stagedPath, file); err != nil {
		s.logger.Error("staging upload failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error saving file: %s", err))
		return
	}

	rows, err := s.ingestStaged(r, stagedPath, stagedName)
	_ = os.Remove(stagedPath)
	if err != nil {
		s.logger.Error("processing upload failed",
			logging.String("filename", stagedName),
			logging.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	uploadDate := s.now().UTC().Format("2006-01-02T15:04:05")
	preview := make([]map[string]string, 0, previewRows)
	for i, row := range rows {
		if i == previewRows {
			break
		}
		entry := make(map[string]string, len(row)+2)
		for column, value := range row {
			entry[column] = value
		}
		entry["file_name"] = stagedName
		entry["upload_date"] = uploadDate
		preview = append(preview, entry)
	}

	s.logger.Info("upload processed",
		logging.String("filename", stagedName),
		logging.Int("rows", len(rows)))
	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "File uploaded and processed successfully",
		"filename":       stagedName,
		"rows_processed": len(rows),
		"preview":        preview,
	})
}

// ingestStaged parses a staged spreadsheet, runs the duplicate check, and
// inserts its rows.
func (s *Server) ingestStaged(r *http.Request, stagedPath, stagedName string) ([]exceldata.Row, error) {
	staged, err := os.Open(stagedPath)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	defer staged.Close()

	rows, err := exceldata.Parse(staged)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()
	priorFile, duplicate, err := s.store.FindDuplicate(ctx, rows)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, fmt.Errorf("Duplicate data found (previously uploaded in file: %s)", priorFile)
	}

	if _, err := s.store.InsertRows(ctx, rows, stagedName, s.now(), exceldata.DataHash(rows)); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Server) stageFile(path string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return err
	}
	return dst.Close()
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	params := exceldata.ListParams{
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "per_page", 10),
		SortBy:  queryString(r, "sort_by", "upload_date"),
		Order:   queryString(r, "order", "desc"),
	}

	page, err := s.store.List(r.Context(), params)
	if err != nil {
		s.logger.Error("listing rows failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error fetching data: %s", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":        page.Rows,
		"total":       page.Total,
		"page":        page.Page,
		"per_page":    page.PerPage,
		"total_pages": page.TotalPages,
	})
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.DeleteAll(r.Context())
	if err != nil {
		s.logger.Error("deleting rows failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error deleting data: %s", err))
		return
	}

	s.logger.Info("deleted all rows", logging.Int64("records", deleted))
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "All records deleted successfully",
		"records_deleted": deleted,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func queryString(r *http.Request, key, fallback string) string {
	if value := r.URL.Query().Get(key); value != "" {
		return value
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
