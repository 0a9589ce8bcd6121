package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/msilvprog7/receipt/internal/core"
	"github.com/msilvprog7/receipt/internal/events"
	applog "github.com/msilvprog7/receipt/internal/log"
)

func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	receipt, err := decodeReceipt(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}

	if err := s.receipts.Add(user.ID, receipt); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to store receipt",
			applog.FieldError, err,
			applog.FieldOwner, user.ID,
			applog.FieldReceiptID, receipt.ID)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.publish(r, events.ActionCreated, user.ID, receipt)
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	// An owner with no receipts gets an empty array, not a 404.
	writeJSON(w, http.StatusOK, s.receipts.All(user.ID))
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	receipt, err := s.receipts.Get(user.ID, chi.URLParam(r, "id"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleEditReceipt(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	receipt, err := decodeReceipt(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if receipt.ID == "" {
		receipt.ID = chi.URLParam(r, "id")
	}
	if receipt.ID != chi.URLParam(r, "id") {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := s.receipts.Edit(user.ID, receipt); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to replace receipt",
			applog.FieldError, err,
			applog.FieldOwner, user.ID,
			applog.FieldReceiptID, receipt.ID)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.publish(r, events.ActionUpdated, user.ID, receipt)
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleRemoveReceipt(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	id := chi.URLParam(r, "id")

	receipt, err := s.receipts.Get(user.ID, id)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err := s.receipts.Remove(user.ID, id); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	s.publish(r, events.ActionDeleted, user.ID, receipt)
	w.WriteHeader(http.StatusNoContent)
}

// publish sends a receipt event without ever failing the request.
func (s *Server) publish(r *http.Request, action, ownerID string, receipt core.Receipt) {
	if err := s.publisher.PublishReceiptEvent(r.Context(), events.NewReceiptEvent(action, ownerID, receipt)); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Failed to publish receipt event",
			applog.FieldError, err,
			applog.FieldAction, action,
			applog.FieldReceiptID, receipt.ID)
	}
}

// decodeReceipt parses and shape-checks a receipt body once at the API
// boundary. Unknown fields are rejected along with malformed JSON.
func decodeReceipt(r *http.Request) (core.Receipt, error) {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()

	var receipt core.Receipt
	if err := dec.Decode(&receipt); err != nil {
		return core.Receipt{}, errors.Join(core.ErrValidationFailed, err)
	}
	if err := receipt.Validate(); err != nil {
		return core.Receipt{}, errors.Join(core.ErrValidationFailed, err)
	}
	return receipt, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed encoding response", "error", err)
	}
}
