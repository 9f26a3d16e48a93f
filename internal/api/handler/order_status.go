package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/orderwatch/internal/order"
	"github.com/creamcroissant/orderwatch/internal/poller"
	"github.com/creamcroissant/orderwatch/internal/repository"
	"github.com/creamcroissant/orderwatch/internal/service"
	"github.com/creamcroissant/orderwatch/internal/support/i18n"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// OrderStatusHandler exposes payment status verification over HTTP.
type OrderStatusHandler struct {
	watch service.OrderWatchService
	i18n  *i18n.Manager
}

func NewOrderStatusHandler(watch service.OrderWatchService, i18nMgr *i18n.Manager) *OrderStatusHandler {
	return &OrderStatusHandler{watch: watch, i18n: i18nMgr}
}

type statusResponse struct {
	poller.State
	Label string `json:"label"`
}

type historyEntry struct {
	ID              string `json:"id"`
	Outcome         string `json:"outcome"`
	FinalStatus     string `json:"finalStatus,omitempty"`
	ErrorCode       string `json:"errorCode,omitempty"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
	Fetches         int    `json:"fetches"`
	RedirectArrival bool   `json:"redirectArrival"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
	StartedAt       int64  `json:"startedAt"`
	FinishedAt      int64  `json:"finishedAt"`
}

// Status handles GET /orders/{orderID}/status.
func (h *OrderStatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	st, err := h.watch.Status(ctx, chi.URLParam(r, "orderID"), service.WatchOptions{
		RedirectStatus:  strings.TrimSpace(query.Get("redirect_status")),
		PaymentIntentID: strings.TrimSpace(query.Get("payment_intent")),
	})
	if err != nil {
		if errors.Is(err, service.ErrClosed) {
			RespondErrorI18n(ctx, w, http.StatusServiceUnavailable, "error.service_unavailable", h.i18n)
			return
		}
		RespondErrorI18n(ctx, w, http.StatusInternalServerError, "error.internal", h.i18n)
		return
	}

	st = h.localize(r, st)
	code := http.StatusOK
	if st.ErrorCode == poller.ErrorInvalidOrderID {
		code = http.StatusBadRequest
	}
	respondJSON(w, code, statusResponse{State: st, Label: h.label(r, st)})
}

// CancelWatch handles DELETE /orders/{orderID}/watch.
func (h *OrderStatusHandler) CancelWatch(w http.ResponseWriter, r *http.Request) {
	if !h.watch.Cancel(r.Context(), chi.URLParam(r, "orderID")) {
		RespondErrorI18n(r.Context(), w, http.StatusNotFound, "error.no_active_watch", h.i18n)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /orders/{orderID}/history.
func (h *OrderStatusHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			RespondErrorI18n(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
			return
		}
		limit = min(v, maxHistoryLimit)
	}

	sessions, err := h.watch.History(ctx, chi.URLParam(r, "orderID"), limit)
	switch {
	case errors.Is(err, order.ErrInvalidID):
		RespondErrorI18n(ctx, w, http.StatusBadRequest, "poller.error.invalid_order_id", h.i18n)
		return
	case errors.Is(err, service.ErrHistoryDisabled):
		RespondErrorI18n(ctx, w, http.StatusNotFound, "error.history_disabled", h.i18n)
		return
	case err != nil:
		RespondErrorI18n(ctx, w, http.StatusInternalServerError, "error.internal", h.i18n)
		return
	}

	entries := make([]historyEntry, 0, len(sessions))
	for _, s := range sessions {
		entries = append(entries, toHistoryEntry(s))
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": entries})
}

// Active handles GET /watches.
func (h *OrderStatusHandler) Active(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"orders": h.watch.Active(r.Context())})
}

// localize replaces fixed poller messages with the request language.
// Messages that came from the order service are left untouched.
func (h *OrderStatusHandler) localize(r *http.Request, st poller.State) poller.State {
	switch {
	case st.ErrorCode == poller.ErrorInvalidOrderID:
		st.Error = translate(r.Context(), h.i18n, "poller.error.invalid_order_id")
	case st.ErrorCode == poller.ErrorTimeout:
		st.Error = translate(r.Context(), h.i18n, "poller.error.timeout")
	case st.ErrorCode == poller.ErrorFetchFailed && st.Error == poller.MessageFetchFailed:
		st.Error = translate(r.Context(), h.i18n, "poller.error.fetch_failed")
	}
	return st
}

func (h *OrderStatusHandler) label(r *http.Request, st poller.State) string {
	key := "status.UNKNOWN"
	if st.Status.IsKnown() {
		key = "status." + st.Status.String()
	}
	return translate(r.Context(), h.i18n, key)
}

func toHistoryEntry(s *repository.WatchSession) historyEntry {
	return historyEntry{
		ID:              s.ID,
		Outcome:         s.Outcome,
		FinalStatus:     s.FinalStatus,
		ErrorCode:       s.ErrorCode,
		ErrorMessage:    s.ErrorMessage,
		Fetches:         s.Fetches,
		RedirectArrival: s.RedirectArrival,
		PaymentIntentID: s.PaymentIntentID,
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
	}
}
