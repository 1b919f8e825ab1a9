package server

import (
	"net/http"

	"github.com/SwipeSavdev/camp-card-sub001/internal/handler"
	appMiddleware "github.com/SwipeSavdev/camp-card-sub001/internal/middleware"
	"github.com/SwipeSavdev/camp-card-sub001/internal/ws"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Health        *handler.HealthHandler
	Auth          *handler.AuthHandler
	Subscriptions *handler.SubscriptionHandler
	CampCards     *handler.CampCardHandler
	Troops        *handler.TroopHandler
	Users         *handler.UserHandler
	Referrals     *handler.ReferralHandler
	QRCodes       *handler.QRCodeHandler
	Location      *handler.LocationHandler
	Positions     *ws.PositionStream
}

// Options tunes the cross-cutting middleware.
type Options struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	// SharedLimits is optional; without it limits are per process.
	SharedLimits   *appMiddleware.RedisWindow
}

// NewRouter builds the API router.
func NewRouter(h Handlers, verifier appMiddleware.TokenVerifier, opts Options) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if opts.RateLimitRPS > 0 {
		globalRL := appMiddleware.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
		if opts.SharedLimits != nil {
			globalRL.WithShared(opts.SharedLimits, "api")
		}
		r.Use(globalRL.Middleware())
	}

	// Health check and public routes (no auth)
	r.Get("/health", h.Health.Check)
	r.Get("/api/v1/subscription-plans", h.Subscriptions.ListPlans)
	r.Get("/api/v1/qr/validate/{code}", h.QRCodes.ValidateQRCode)
	r.Get("/api/v1/offers/link/{code}", h.QRCodes.ValidateOfferLink)

	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter(opts.SharedLimits))
		r.Post("/api/v1/auth/login", h.Auth.Login)
	})

	// WebSocket stream (auth via query param)
	if h.Positions != nil {
		r.Get("/api/v1/location/device/{deviceId}/stream", h.Positions.Handle)
	}

	// Protected API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(appMiddleware.Auth(verifier))

		r.Get("/auth/me", h.Auth.Me)

		// Subscriptions
		r.Post("/subscriptions", h.Subscriptions.Create)
		r.Get("/subscriptions/me", h.Subscriptions.GetMine)
		r.Patch("/subscriptions/me", h.Subscriptions.UpdateMine)
		r.Delete("/subscriptions/me", h.Subscriptions.CancelMine)
		r.Post("/subscriptions/me/reactivate", h.Subscriptions.Reactivate)
		r.Post("/subscriptions/me/renew", h.Subscriptions.Renew)

		// Troops: specific routes BEFORE generic {id} route
		r.Get("/troops", h.Troops.List)
		r.Post("/troops", h.Troops.Create)
		r.Get("/troops/search", h.Troops.Search)
		r.Get("/troops/top-performers", h.Troops.TopPerformers)
		r.Get("/troops/number/{troopNumber}", h.Troops.GetByNumber)
		r.Get("/troops/council/{councilId}", h.Troops.ListByCouncil)
		r.Get("/troops/{id}", h.Troops.Get)
		r.Put("/troops/{id}", h.Troops.Update)
		r.Delete("/troops/{id}", h.Troops.Delete)
		r.Patch("/troops/{id}/status", h.Troops.UpdateStatus)
		r.Post("/troops/{id}/stats", h.Troops.RefreshStats)

		// Users
		r.Get("/users", h.Users.List)
		r.Get("/users/search", h.Users.Search)
		r.Get("/users/scouts/unassigned", h.Users.UnassignedScouts)
		r.Get("/users/council/{councilId}", h.Users.ListByCouncil)
		r.Get("/users/troop/{troopId}", h.Users.ListByTroop)
		r.Get("/users/troop/{troopId}/scouts", h.Users.ListScoutsByTroop)
		r.Get("/users/{id}", h.Users.Get)
		r.Put("/users/{id}", h.Users.Update)
		r.Put("/users/{id}/troop/{troopId}", h.Users.AssignToTroop)
		r.Delete("/users/{id}/troop", h.Users.RemoveFromTroop)

		// Referrals
		r.Get("/referrals/my-code", h.Referrals.MyCode)
		r.Post("/referrals/apply", h.Referrals.Apply)
		r.Get("/referrals/my-referrals", h.Referrals.MyReferrals)
		r.Post("/referrals/{id}/claim", h.Referrals.Claim)

		// Offers
		r.Post("/offers/generate-link", h.QRCodes.GenerateOfferLink)
		r.Post("/offers/link/{code}/redeem", h.QRCodes.RedeemOfferLink)

		// Location
		r.Route("/location", func(r chi.Router) {
			r.Get("/geocode", h.Location.Geocode)
			r.Get("/reverse-geocode", h.Location.ReverseGeocode)
			r.Get("/search", h.Location.Search)
			r.Get("/search/merchants", h.Location.SearchMerchants)
			r.Get("/suggestions", h.Location.Suggestions)
			r.Get("/place/{placeId}", h.Location.PlaceDetails)
			r.Get("/route", h.Location.Route)
			r.Get("/route/driving", h.Location.RouteDriving)
			r.Get("/route/walking", h.Location.RouteWalking)
			r.Get("/distance", h.Location.Distance)
			r.Post("/distances", h.Location.Distances)
			r.Put("/device/{deviceId}/position", h.Location.UpdatePosition)
			r.Get("/device/{deviceId}/position", h.Location.GetPosition)
			r.Post("/geofence/merchant/{merchantId}", h.Location.CreateGeofence)
			r.Delete("/geofence/merchant/{merchantId}", h.Location.DeleteGeofence)
			r.Get("/geofences", h.Location.ListGeofences)
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminOnly)
			r.Get("/camp-cards", h.CampCards.List)
			r.Get("/camp-cards/{uuid}", h.CampCards.Get)
			r.Delete("/camp-cards/{uuid}", h.CampCards.Revoke)
			r.Post("/users", h.Users.Create)
			r.Delete("/users/{id}", h.Users.Delete)
			r.Get("/users/{id}/qr-code", h.QRCodes.UserQRCode)
		})
	})

	return r
}
