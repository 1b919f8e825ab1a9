package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/go-chi/chi/v5"
)

const (
	defaultSearchResults     = 10
	defaultSuggestionResults = 5
	defaultSearchRadius      = 50000.0
)

// LocationProvider is the collaborator behind the location endpoints.
type LocationProvider interface {
	Geocode(ctx context.Context, address string) (*domain.GeocodingResult, error)
	ReverseGeocode(ctx context.Context, at domain.Coordinate) (*domain.GeocodingResult, error)
	Search(ctx context.Context, query string, at domain.Coordinate, maxResults int, radius float64) ([]domain.PlaceSearchResult, error)
	SearchMerchants(ctx context.Context, category string, at domain.Coordinate, maxResults int, radius float64) ([]domain.PlaceSearchResult, error)
	Suggestions(ctx context.Context, text string, bias *domain.Coordinate, maxResults int) ([]domain.PlaceSearchResult, error)
	PlaceDetails(ctx context.Context, placeID string) (*domain.PlaceSearchResult, error)
	Route(ctx context.Context, from, to domain.Coordinate, travelMode string) (*domain.RouteResult, error)
	Distance(from, to domain.Coordinate) (*domain.DistanceResult, error)
	Distances(origin domain.Coordinate, destinations map[string]domain.Coordinate) (map[string]float64, error)
	UpdatePosition(ctx context.Context, deviceID string, req *domain.DevicePositionRequest) (*domain.DevicePosition, error)
	GetPosition(ctx context.Context, deviceID string) (*domain.DevicePosition, error)
	CreateGeofence(ctx context.Context, merchantID int64, req *domain.GeofenceRequest) (*domain.GeofenceInfo, error)
	DeleteGeofence(ctx context.Context, merchantID int64) error
	ListGeofences(ctx context.Context) ([]domain.GeofenceInfo, error)
}

// LocationHandler handles geocoding, search, routing, device tracking and
// geofence endpoints.
type LocationHandler struct {
	loc LocationProvider
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(loc LocationProvider) *LocationHandler {
	return &LocationHandler{loc: loc}
}

// Geocode handles GET /api/v1/location/geocode.
func (h *LocationHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		Error(w, domain.ErrValidation("address is required"))
		return
	}
	result, err := h.loc.Geocode(r.Context(), address)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, result)
}

// ReverseGeocode handles GET /api/v1/location/reverse-geocode.
func (h *LocationHandler) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
	at, err := coordinateQuery(r, "latitude", "longitude")
	if err != nil {
		Error(w, err)
		return
	}
	result, err := h.loc.ReverseGeocode(r.Context(), at)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, result)
}

// Search handles GET /api/v1/location/search.
func (h *LocationHandler) Search(w http.ResponseWriter, r *http.Request) {
	at, maxResults, radius, err := nearbyQuery(r)
	if err != nil {
		Error(w, err)
		return
	}
	results, err := h.loc.Search(r.Context(), r.URL.Query().Get("query"), at, maxResults, radius)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, results)
}

// SearchMerchants handles GET /api/v1/location/search/merchants.
func (h *LocationHandler) SearchMerchants(w http.ResponseWriter, r *http.Request) {
	at, maxResults, radius, err := nearbyQuery(r)
	if err != nil {
		Error(w, err)
		return
	}
	results, err := h.loc.SearchMerchants(r.Context(), r.URL.Query().Get("category"), at, maxResults, radius)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, results)
}

// Suggestions handles GET /api/v1/location/suggestions.
func (h *LocationHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	maxResults, err := intQuery(r, "maxResults", defaultSuggestionResults)
	if err != nil {
		Error(w, err)
		return
	}
	var bias *domain.Coordinate
	q := r.URL.Query()
	if q.Get("latitude") != "" || q.Get("longitude") != "" {
		at, err := coordinateQuery(r, "latitude", "longitude")
		if err != nil {
			Error(w, err)
			return
		}
		bias = &at
	}
	results, err := h.loc.Suggestions(r.Context(), q.Get("text"), bias, maxResults)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, results)
}

// PlaceDetails handles GET /api/v1/location/place/{placeId}.
func (h *LocationHandler) PlaceDetails(w http.ResponseWriter, r *http.Request) {
	place, err := h.loc.PlaceDetails(r.Context(), chi.URLParam(r, "placeId"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, place)
}

// Route handles GET /api/v1/location/route.
func (h *LocationHandler) Route(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("travelMode")
	if mode == "" {
		mode = domain.TravelCar
	}
	h.route(w, r, mode)
}

// RouteDriving handles GET /api/v1/location/route/driving.
func (h *LocationHandler) RouteDriving(w http.ResponseWriter, r *http.Request) {
	h.route(w, r, domain.TravelCar)
}

// RouteWalking handles GET /api/v1/location/route/walking.
func (h *LocationHandler) RouteWalking(w http.ResponseWriter, r *http.Request) {
	h.route(w, r, domain.TravelPedestrian)
}

func (h *LocationHandler) route(w http.ResponseWriter, r *http.Request, mode string) {
	from, err := coordinateQuery(r, "startLatitude", "startLongitude")
	if err != nil {
		Error(w, err)
		return
	}
	to, err := coordinateQuery(r, "endLatitude", "endLongitude")
	if err != nil {
		Error(w, err)
		return
	}
	route, err := h.loc.Route(r.Context(), from, to, mode)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, route)
}

// Distance handles GET /api/v1/location/distance.
func (h *LocationHandler) Distance(w http.ResponseWriter, r *http.Request) {
	from, err := coordinateQuery(r, "lat1", "lon1")
	if err != nil {
		Error(w, err)
		return
	}
	to, err := coordinateQuery(r, "lat2", "lon2")
	if err != nil {
		Error(w, err)
		return
	}
	d, err := h.loc.Distance(from, to)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, d)
}

// Distances handles POST /api/v1/location/distances.
func (h *LocationHandler) Distances(w http.ResponseWriter, r *http.Request) {
	var req domain.DistancesRequest
	if err := DecodeValid(r, &req); err != nil {
		Error(w, err)
		return
	}
	out, err := h.loc.Distances(req.Origin, req.Destinations)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, out)
}

// UpdatePosition handles PUT /api/v1/location/device/{deviceId}/position.
func (h *LocationHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	var req domain.DevicePositionRequest
	if err := DecodeValid(r, &req); err != nil {
		Error(w, err)
		return
	}
	pos, err := h.loc.UpdatePosition(r.Context(), chi.URLParam(r, "deviceId"), &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, pos)
}

// GetPosition handles GET /api/v1/location/device/{deviceId}/position.
func (h *LocationHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	pos, err := h.loc.GetPosition(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, pos)
}

// CreateGeofence handles POST /api/v1/location/geofence/merchant/{merchantId}.
func (h *LocationHandler) CreateGeofence(w http.ResponseWriter, r *http.Request) {
	merchantID, err := int64Param(chi.URLParam(r, "merchantId"), "merchantId")
	if err != nil {
		Error(w, err)
		return
	}
	var req domain.GeofenceRequest
	if err := DecodeValid(r, &req); err != nil {
		Error(w, err)
		return
	}
	info, err := h.loc.CreateGeofence(r.Context(), merchantID, &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, info)
}

// DeleteGeofence handles DELETE /api/v1/location/geofence/merchant/{merchantId}.
func (h *LocationHandler) DeleteGeofence(w http.ResponseWriter, r *http.Request) {
	merchantID, err := int64Param(chi.URLParam(r, "merchantId"), "merchantId")
	if err != nil {
		Error(w, err)
		return
	}
	if err := h.loc.DeleteGeofence(r.Context(), merchantID); err != nil {
		Error(w, err)
		return
	}
	NoContent(w)
}

// ListGeofences handles GET /api/v1/location/geofences.
func (h *LocationHandler) ListGeofences(w http.ResponseWriter, r *http.Request) {
	fences, err := h.loc.ListGeofences(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, fences)
}

func coordinateQuery(r *http.Request, latName, lonName string) (domain.Coordinate, error) {
	lat, err := floatQuery(r, latName)
	if err != nil {
		return domain.Coordinate{}, err
	}
	lon, err := floatQuery(r, lonName)
	if err != nil {
		return domain.Coordinate{}, err
	}
	c := domain.Coordinate{Latitude: lat, Longitude: lon}
	if err := Validate(c); err != nil {
		return domain.Coordinate{}, err
	}
	return c, nil
}

func nearbyQuery(r *http.Request) (domain.Coordinate, int, float64, error) {
	at, err := coordinateQuery(r, "latitude", "longitude")
	if err != nil {
		return domain.Coordinate{}, 0, 0, err
	}
	maxResults, err := intQuery(r, "maxResults", defaultSearchResults)
	if err != nil {
		return domain.Coordinate{}, 0, 0, err
	}
	radius, err := floatQueryDefault(r, "radiusMeters", defaultSearchRadius)
	if err != nil {
		return domain.Coordinate{}, 0, 0, err
	}
	if radius <= 0 {
		return domain.Coordinate{}, 0, 0, domain.ErrBadRequest("radiusMeters must be positive")
	}
	return at, maxResults, radius, nil
}
