package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"streetwise-crawler/crawler"
	"streetwise-crawler/jobs"
	"streetwise-crawler/report"
	"streetwise-crawler/store"
)

const maxBodyBytes = 1 << 20

// crawlRequest is the JSON body of POST /crawl and POST /jobs. CrawlDelay
// is in milliseconds.
type crawlRequest struct {
	URL                  string `json:"url"`
	MaxPages             int    `json:"maxPages"`
	IncludeExternalLinks bool   `json:"includeExternalLinks"`
	CrawlDelay           int64  `json:"crawlDelay"`
}

func (c crawlRequest) options() crawler.CrawlOptions {
	return crawler.CrawlOptions{
		URL:                  c.URL,
		MaxPages:             c.MaxPages,
		IncludeExternalLinks: c.IncludeExternalLinks,
		CrawlDelay:           time.Duration(c.CrawlDelay) * time.Millisecond,
	}
}

// errorResponse is the body of every API error
type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// statusForCrawlError maps crawl error codes to HTTP status codes
func statusForCrawlError(code string) int {
	switch code {
	case crawler.ErrCodeInvalidURL:
		return http.StatusBadRequest
	case crawler.ErrCodeRobotsDisallowed:
		return http.StatusForbidden
	case crawler.ErrCodeTimeoutError:
		return http.StatusGatewayTimeout
	case crawler.ErrCodeCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeCrawlError writes err, using its CrawlError code when it has one
func (s *Server) writeCrawlError(w http.ResponseWriter, err error) {
	ce := crawler.GetCrawlError(err)
	if ce == nil {
		s.logger.Errorw("Unexpected error", "error", err)
		writeError(w, http.StatusInternalServerError, crawler.ErrCodeInternalError, "Internal Server Error")
		return
	}
	writeJSON(w, statusForCrawlError(ce.Code), errorResponse{
		Error:   ce.Message,
		Code:    ce.Code,
		Details: ce.Details,
	})
}

// decodeCrawlRequest reads and checks the request body
func decodeCrawlRequest(w http.ResponseWriter, r *http.Request) (crawlRequest, bool) {
	var req crawlRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be JSON")
		return req, false
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "URL is required")
		return req, false
	}
	if req.MaxPages < 0 || req.CrawlDelay < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "maxPages and crawlDelay must not be negative")
		return req, false
	}
	return req, true
}

// CrawlHandler runs a crawl within the request and returns the analysis
func (s *Server) CrawlHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCrawlRequest(w, r)
	if !ok {
		return
	}

	result, err := s.crawler.Crawl(r.Context(), req.options())
	if err != nil {
		s.writeCrawlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SubmitJobHandler queues a background crawl
func (s *Server) SubmitJobHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCrawlRequest(w, r)
	if !ok {
		return
	}

	job, err := s.jobs.Submit(r.Context(), req.options())
	switch {
	case err == nil:
		w.Header().Set("Location", "/jobs/"+job.ID)
		writeJSON(w, http.StatusAccepted, job)
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrStopped):
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusServiceUnavailable, "QUEUE_FULL", err.Error())
	default:
		s.writeCrawlError(w, err)
	}
}

// JobHandler returns a job's status and progress
func (s *Server) JobHandler(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, jobs.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
		return
	}
	if err != nil {
		s.writeCrawlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ListAnalysesHandler lists stored analyses, newest first
func (s *Server) ListAnalysesHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer")
			return
		}
		limit = n
	}

	analyses, err := s.analyses.ListAnalyses(r.Context(), strings.ToLower(r.URL.Query().Get("domain")), limit)
	if err != nil {
		s.writeCrawlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"analyses": analyses,
		"count":    len(analyses),
	})
}

// AnalysisHandler returns a stored analysis as JSON, or as a CSV or XLSX
// report with ?format=
func (s *Server) AnalysisHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	analysis, err := s.analyses.GetAnalysis(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Analysis not found")
		return
	}
	if err != nil {
		s.writeCrawlError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, analysis)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="analysis-%s.csv"`, id))
		if err := report.WriteCSV(w, analysis.Result); err != nil {
			s.logger.Warnw("CSV report failed", "analysis_id", id, "error", err)
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="analysis-%s.xlsx"`, id))
		if err := report.WriteXLSX(w, analysis.Result); err != nil {
			s.logger.Warnw("XLSX report failed", "analysis_id", id, "error", err)
		}
	default:
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "format must be json, csv or xlsx")
	}
}
