package http

import (
	"net/http"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var filter storage.TransactionFilter

	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date, use YYYY-MM-DD")
			return
		}
		filter.From = &d
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date, use YYYY-MM-DD")
			return
		}
		filter.To = &d
	}

	var err error
	if filter.CategoryID, err = queryInt64(r, "category_id"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid category_id")
		return
	}
	if filter.AccountID, err = queryInt64(r, "account_id"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid account_id")
		return
	}
	if v := strings.TrimSpace(r.URL.Query().Get("type")); v != "" {
		ft := core.FlowType(v)
		if !ft.Valid() {
			writeError(w, http.StatusBadRequest, "invalid type, must be income or expense")
			return
		}
		filter.Type = &ft
	}
	filter.Limit = queryInt(r, "limit", 100)
	filter.Offset = queryInt(r, "offset", 0)

	txns, err := s.transactions.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txns))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tx, err := req.toCore()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	created, err := s.transactions.Create(r.Context(), tx)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateReports()
	writeJSON(w, http.StatusCreated, toTransactionDTO(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	tx, err := s.transactions.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tx, err := req.toCore()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	tx.ID = id

	updated, err := s.transactions.Replace(r.Context(), tx)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateReports()
	writeJSON(w, http.StatusOK, toTransactionDTO(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := s.transactions.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}
