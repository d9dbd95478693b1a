package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/chris/bus-ticket-booking/pkg/api"
	"github.com/chris/bus-ticket-booking/pkg/mapping"
	"github.com/chris/bus-ticket-booking/pkg/models"
	"github.com/chris/bus-ticket-booking/pkg/notify"
	"github.com/chris/bus-ticket-booking/pkg/settlement"
	"github.com/chris/bus-ticket-booking/pkg/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const defaultHistoryPageSize = 10

// ApiHandler serves the HTTP API. It holds the application's dependencies:
// the storage layer, the settlement core, and the event publisher.
type ApiHandler struct {
	Store      storage.ApiStore
	Settlement *settlement.Service
	Notifier   notify.Publisher
}

// NewApiHandler creates a new ApiHandler.
func NewApiHandler(store storage.ApiStore, settlementSvc *settlement.Service, notifier notify.Publisher) *ApiHandler {
	return &ApiHandler{Store: store, Settlement: settlementSvc, Notifier: notifier}
}

// CreateBooking handles the booking-and-settlement flow: validate the bus,
// run the settlement, and report the outcome with a status code matching its
// kind. A committed settlement additionally fans out a booking event;
// publishing is best-effort and never affects the response.
func (h *ApiHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var newBooking api.NewBooking
	if err := json.NewDecoder(r.Body).Decode(&newBooking); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	bus, err := h.Store.GetBus(r.Context(), newBooking.BusId)
	if err != nil {
		if errors.Is(err, storage.ErrBusNotFound) {
			http.Error(w, "Bus not found", http.StatusNotFound)
		} else {
			http.Error(w, fmt.Sprintf("Failed to look up bus: %v", err), http.StatusInternalServerError)
		}
		return
	}

	outcome, err := h.Settlement.Execute(r.Context(), settlement.Request{
		UserID:          newBooking.UserId.String(),
		Bus:             *bus,
		BalanceSnapshot: newBooking.WalletBalance,
	})
	if err != nil {
		if errors.Is(err, storage.ErrWalletNotFound) {
			http.Error(w, "Wallet not found", http.StatusNotFound)
		} else if errors.Is(err, settlement.ErrInvalidRequest) {
			http.Error(w, fmt.Sprintf("Invalid booking request: %v", err), http.StatusBadRequest)
		} else {
			http.Error(w, fmt.Sprintf("Failed to settle booking: %v", err), http.StatusInternalServerError)
		}
		return
	}

	status := http.StatusCreated
	switch outcome.Kind {
	case settlement.KindInsufficientFunds:
		status = http.StatusUnprocessableEntity
	case settlement.KindTransactionFailed:
		status = http.StatusBadGateway
	case settlement.KindSuccess:
		h.publishBookingEvent(r, newBooking.UserId.String(), bus, outcome)
	}

	result := mapping.ToBookingResult(outcome)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

func (h *ApiHandler) publishBookingEvent(r *http.Request, userID string, bus *models.Bus, outcome *settlement.Outcome) {
	if h.Notifier == nil {
		return
	}
	event := &models.BookingEvent{
		EventID:    uuid.New().String(),
		BookingID:  outcome.BookingID,
		UserID:     userID,
		BusID:      bus.ID,
		Amount:     outcome.AmountCharged,
		NewBalance: outcome.NewBalance,
		OccurredAt: time.Now(),
	}
	if err := h.Notifier.BookingConfirmed(r.Context(), event); err != nil {
		slog.Error("CRITICAL: booking settled but event publish failed",
			"bookingId", outcome.BookingID, "error", err)
	}
}

// GetBookingById handles the logic for retrieving a booking by its ID.
func (h *ApiHandler) GetBookingById(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")

	booking, err := h.Store.GetBooking(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, storage.ErrBookingNotFound) {
			http.Error(w, "Booking not found", http.StatusNotFound)
		} else {
			http.Error(w, fmt.Sprintf("Failed to retrieve booking: %v", err), http.StatusInternalServerError)
		}
		return
	}

	apiBooking := mapping.ToApiBooking(booking)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(apiBooking); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

// ListBookingsByUserId handles the booking-history view: the user's bookings
// newest first, optionally filtered by status, one page at a time.
func (h *ApiHandler) ListBookingsByUserId(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	statusFilter := r.URL.Query().Get("status")
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", defaultHistoryPageSize)
	if page < 1 || perPage < 1 {
		http.Error(w, "page and per_page must be positive", http.StatusBadRequest)
		return
	}

	bookings, err := h.Store.ListBookingsByUserID(r.Context(), userID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve bookings: %v", err), http.StatusInternalServerError)
		return
	}

	filtered := bookings[:0:0]
	for _, booking := range bookings {
		if statusFilter == "" || statusFilter == "all" || string(booking.Status) == statusFilter {
			filtered = append(filtered, booking)
		}
	}

	total := len(filtered)
	totalPages := (total + perPage - 1) / perPage
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	pageOut := api.BookingPage{
		Bookings:   make([]api.Booking, 0, end-start),
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		Total:      total,
	}
	for i := start; i < end; i++ {
		pageOut.Bookings = append(pageOut.Bookings, mapping.ToApiBooking(&filtered[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(pageOut); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

// GetUserStats handles the dashboard stats: booking count and total spent.
// Total spent only counts settled bookings; historical Failed rows carry no
// debit.
func (h *ApiHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	bookings, err := h.Store.ListBookingsByUserID(r.Context(), userID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve bookings: %v", err), http.StatusInternalServerError)
		return
	}

	stats := api.UserStats{TotalBookings: len(bookings)}
	for _, booking := range bookings {
		if booking.Status == models.BookingSuccess {
			stats.TotalSpent += booking.Amount
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

// GetWalletByUserId handles the logic for retrieving a user's wallet.
func (h *ApiHandler) GetWalletByUserId(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	wallet, err := h.Store.GetWallet(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrWalletNotFound) {
			http.Error(w, "Wallet not found", http.StatusNotFound)
		} else {
			http.Error(w, fmt.Sprintf("Failed to retrieve wallet: %v", err), http.StatusInternalServerError)
		}
		return
	}

	apiWallet := mapping.ToApiWallet(wallet)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(apiWallet); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

// CreateWallet handles the logic for creating a new wallet.
func (h *ApiHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var newWallet api.NewWallet
	if err := json.NewDecoder(r.Body).Decode(&newWallet); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	wallet := mapping.ToDomainNewWallet(&newWallet)
	createdWallet, err := h.Store.CreateWallet(r.Context(), wallet)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to create wallet: %v", err), http.StatusInternalServerError)
		return
	}

	apiWallet := mapping.ToApiWallet(createdWallet)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(apiWallet); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

// DeleteWallet handles the logic for deleting a user's wallet.
func (h *ApiHandler) DeleteWallet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	if err := h.Store.DeleteWallet(r.Context(), userID); err != nil {
		if errors.Is(err, storage.ErrWalletNotFound) {
			http.Error(w, "Wallet not found", http.StatusNotFound)
		} else {
			http.Error(w, fmt.Sprintf("Failed to delete wallet: %v", err), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListWallets handles the logic for retrieving all wallets.
func (h *ApiHandler) ListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.Store.ListWallets(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve wallets: %v", err), http.StatusInternalServerError)
		return
	}

	apiWallets := make([]*api.Wallet, len(wallets))
	for i := range wallets {
		apiWallets[i] = mapping.ToApiWallet(&wallets[i])
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(apiWallets); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

// ListBuses handles the route-search view: all buses, optionally narrowed by
// origin and destination city.
func (h *ApiHandler) ListBuses(w http.ResponseWriter, r *http.Request) {
	filter := storage.BusFilter{
		FromCity: r.URL.Query().Get("from"),
		ToCity:   r.URL.Query().Get("to"),
	}

	buses, err := h.Store.ListBuses(r.Context(), filter)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve buses: %v", err), http.StatusInternalServerError)
		return
	}

	apiBuses := make([]api.Bus, len(buses))
	for i := range buses {
		apiBuses[i] = mapping.ToApiBus(&buses[i])
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(apiBuses); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

// GetBusById handles the logic for retrieving a bus by its ID.
func (h *ApiHandler) GetBusById(w http.ResponseWriter, r *http.Request) {
	busID := chi.URLParam(r, "busId")

	bus, err := h.Store.GetBus(r.Context(), busID)
	if err != nil {
		if errors.Is(err, storage.ErrBusNotFound) {
			http.Error(w, "Bus not found", http.StatusNotFound)
		} else {
			http.Error(w, fmt.Sprintf("Failed to retrieve bus: %v", err), http.StatusInternalServerError)
		}
		return
	}

	apiBus := mapping.ToApiBus(bus)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(apiBus); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
