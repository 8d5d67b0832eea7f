package http

import (
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const fieldsRequired = "Amount, category, and type are required"

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.transactions.List(r.Context(), ownerID(r))
	if err != nil {
		s.internalError(w, r, "Failed to fetch transactions", log.OpList, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Body(txs).Write(w)
}

// transactionFields decodes and validates the body, writing the 400 itself.
// ok is false when a response has been written.
func (s *Server) transactionFields(w http.ResponseWriter, r *http.Request) (core.TransactionFields, bool) {
	var req transactionRequest
	if err := decodeAndValidate(w, r, s.validate, &req); err != nil {
		if errors.Is(err, errMalformedBody) {
			BadRequestError("Invalid request body").Write(w)
		} else {
			BadRequestError(fieldsRequired).Write(w)
		}
		return core.TransactionFields{}, false
	}

	f, err := req.Fields()
	if err != nil {
		BadRequestError("Invalid date").Write(w)
		return core.TransactionFields{}, false
	}
	return f, true
}

// writeFieldError maps core validation errors to 400s. It reports whether
// err was one of them.
func writeFieldError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, core.ErrMissingAmount), errors.Is(err, core.ErrEmptyCategory):
		BadRequestError(fieldsRequired).Write(w)
	case errors.Is(err, core.ErrInvalidType):
		BadRequestError("Invalid transaction type").Write(w)
	default:
		return false
	}
	return true
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	f, ok := s.transactionFields(w, r)
	if !ok {
		return
	}

	tx, err := s.transactions.Create(r.Context(), ownerID(r), f)
	if err != nil {
		if writeFieldError(w, err) {
			return
		}
		s.internalError(w, r, "Failed to add transaction", log.OpCreate, err)
		return
	}
	logMutation(r, log.OpCreate, tx)
	NewJSONResponse().Status(http.StatusCreated).Body(tx).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f, ok := s.transactionFields(w, r)
	if !ok {
		return
	}

	tx, err := s.transactions.Update(r.Context(), id, ownerID(r), f)
	switch {
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Transaction not found").Write(w)
		return
	case err != nil:
		if writeFieldError(w, err) {
			return
		}
		s.internalError(w, r, "Failed to update transaction", log.OpUpdate, err)
		return
	}
	logMutation(r, log.OpUpdate, tx)
	NewJSONResponse().Body(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.transactions.Delete(r.Context(), id, ownerID(r))
	switch {
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Transaction not found").Write(w)
		return
	case err != nil:
		s.internalError(w, r, "Failed to delete transaction", log.OpDelete, err)
		return
	}
	logMutation(r, log.OpDelete, core.Transaction{ID: id, OwnerID: ownerID(r)})
	NewJSONResponse().Message("Transaction deleted successfully").Write(w)
}

func logMutation(r *http.Request, op string, tx core.Transaction) {
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogTransaction(r.Context(), op, tx.ID, tx.OwnerID, string(tx.Type), tx.Category, tx.Amount.String())
}
