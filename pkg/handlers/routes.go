package handlers

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the API handlers on a chi router.
func Routes(h *ApiHandler) chi.Router {
	r := chi.NewRouter()

	r.Post("/bookings", h.CreateBooking)
	r.Get("/bookings/{bookingId}", h.GetBookingById)

	r.Get("/users/{userId}/bookings", h.ListBookingsByUserId)
	r.Get("/users/{userId}/stats", h.GetUserStats)
	r.Get("/users/{userId}/wallet", h.GetWalletByUserId)

	r.Post("/wallets", h.CreateWallet)
	r.Get("/wallets", h.ListWallets)
	r.Delete("/wallets/{userId}", h.DeleteWallet)

	r.Get("/buses", h.ListBuses)
	r.Get("/buses/{busId}", h.GetBusById)

	return r
}
