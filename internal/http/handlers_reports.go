package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	s.serveMonthlyReport(w, r, year, month)
}

func (s *Server) handleCurrentReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	s.serveMonthlyReport(w, r, now.Year(), int(now.Month()))
}

func (s *Server) serveMonthlyReport(w http.ResponseWriter, r *http.Request, year, month int) {
	focus, ok := queryFocus(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid focus, must be income or expense")
		return
	}

	key := reportCacheKey(year, month, focus)
	if cached, found := s.reportCache.Get(key); found {
		log.FromContext(r.Context()).Debug("Report cache hit",
			log.FieldComponent, log.ComponentCache,
			log.FieldYear, year, log.FieldMonth, month, log.FieldFlowType, focus)
		writeJSON(w, http.StatusOK, toReportDTO(cached, year, month, focus))
		return
	}

	rep, err := s.reports.Monthly(r.Context(), year, month, focus)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.reportCache.Set(key, rep)
	writeJSON(w, http.StatusOK, toReportDTO(rep, year, month, focus))
}

func reportCacheKey(year, month int, focus core.FlowType) string {
	return fmt.Sprintf("%04d-%02d:%s", year, month, focus)
}
