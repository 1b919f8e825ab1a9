package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/stretchr/testify/require"
)

type searchCall struct {
	query      string
	at         domain.Coordinate
	maxResults int
	radius     float64
}

type fakeLocation struct {
	LocationProvider
	calls    int
	search   searchCall
	mode     string
	geofence int64
}

func (f *fakeLocation) Geocode(ctx context.Context, address string) (*domain.GeocodingResult, error) {
	f.calls++
	return &domain.GeocodingResult{Relevance: 1}, nil
}

func (f *fakeLocation) ReverseGeocode(ctx context.Context, at domain.Coordinate) (*domain.GeocodingResult, error) {
	f.calls++
	return &domain.GeocodingResult{Coordinate: at}, nil
}

func (f *fakeLocation) Search(ctx context.Context, query string, at domain.Coordinate, maxResults int, radius float64) ([]domain.PlaceSearchResult, error) {
	f.calls++
	f.search = searchCall{query, at, maxResults, radius}
	return []domain.PlaceSearchResult{}, nil
}

func (f *fakeLocation) Route(ctx context.Context, from, to domain.Coordinate, mode string) (*domain.RouteResult, error) {
	f.calls++
	f.mode = mode
	return &domain.RouteResult{TravelMode: mode}, nil
}

func (f *fakeLocation) CreateGeofence(ctx context.Context, merchantID int64, req *domain.GeofenceRequest) (*domain.GeofenceInfo, error) {
	f.calls++
	f.geofence = merchantID
	return &domain.GeofenceInfo{MerchantID: merchantID, Status: domain.GeofenceActive}, nil
}

func TestGeocode_RequiresAddress(t *testing.T) {
	fake := &fakeLocation{}
	h := NewLocationHandler(fake)

	rec := serve(h.Geocode, http.MethodGet, "/g", "/g?address=%20%20", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, fake.calls)

	rec = serve(h.Geocode, http.MethodGet, "/g", "/g?address=1+Main+St", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, fake.calls)
}

func TestReverseGeocode_ValidatesCoordinates(t *testing.T) {
	for name, target := range map[string]string{
		"latitude out of range":  "/r?latitude=91&longitude=0",
		"longitude out of range": "/r?latitude=0&longitude=-181",
		"missing longitude":      "/r?latitude=10",
		"not a number":           "/r?latitude=north&longitude=0",
	} {
		t.Run(name, func(t *testing.T) {
			fake := &fakeLocation{}
			rec := serve(NewLocationHandler(fake).ReverseGeocode, http.MethodGet, "/r", target, "", nil)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Zero(t, fake.calls)
		})
	}
}

func TestSearch_Defaults(t *testing.T) {
	fake := &fakeLocation{}
	h := NewLocationHandler(fake)

	rec := serve(h.Search, http.MethodGet, "/s", "/s?query=pizza&latitude=28.5&longitude=-81.4", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, searchCall{"pizza", domain.Coordinate{Latitude: 28.5, Longitude: -81.4}, defaultSearchResults, defaultSearchRadius}, fake.search)

	rec = serve(h.Search, http.MethodGet, "/s", "/s?latitude=28.5&longitude=-81.4&radiusMeters=0", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 1, fake.calls)
}

func TestRoute_TravelModes(t *testing.T) {
	const coords = "startLatitude=28.5&startLongitude=-81.4&endLatitude=27.9&endLongitude=-82.4"
	tests := []struct {
		name  string
		route func(*LocationHandler) http.HandlerFunc
		query string
		want  string
	}{
		{"default", func(h *LocationHandler) http.HandlerFunc { return h.Route }, coords, domain.TravelCar},
		{"explicit", func(h *LocationHandler) http.HandlerFunc { return h.Route }, coords + "&travelMode=BICYCLE", "BICYCLE"},
		{"driving", func(h *LocationHandler) http.HandlerFunc { return h.RouteDriving }, coords, domain.TravelCar},
		{"walking", func(h *LocationHandler) http.HandlerFunc { return h.RouteWalking }, coords, domain.TravelPedestrian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeLocation{}
			rec := serve(tt.route(NewLocationHandler(fake)), http.MethodGet, "/route", "/route?"+tt.query, "", nil)

			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, tt.want, fake.mode)
		})
	}
}

func TestCreateGeofence(t *testing.T) {
	const pattern = "/api/v1/location/geofence/merchant/{merchantId}"
	body := `{"name":"Store","latitude":28.5,"longitude":-81.4,"radiusMeters":150}`

	fake := &fakeLocation{}
	rec := serve(NewLocationHandler(fake).CreateGeofence, http.MethodPost, pattern, "/api/v1/location/geofence/merchant/12", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, int64(12), fake.geofence)

	fake = &fakeLocation{}
	rec = serve(NewLocationHandler(fake).CreateGeofence, http.MethodPost, pattern, "/api/v1/location/geofence/merchant/twelve", body, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(NewLocationHandler(fake).CreateGeofence, http.MethodPost, pattern, "/api/v1/location/geofence/merchant/12",
		`{"name":"Store","latitude":28.5,"longitude":-81.4,"radiusMeters":0}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, fake.calls)
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	rec := serve(NewHealthHandler(fakePinger{}).Check, http.MethodGet, "/health", "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok","database":"ok"}`, rec.Body.String())

	rec = serve(NewHealthHandler(fakePinger{err: errors.New("down")}).Check, http.MethodGet, "/health", "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"status":"degraded","database":"error"}`, rec.Body.String())
}
