package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/SwipeSavdev/camp-card-sub001/pkg/geo"
)

const (
	geocodeCacheTTL      = 24 * time.Hour
	reverseGeocodeRadius = 1000.0
	placeCandidateLimit  = 500
)

// PositionPublisher fans a device position out to live subscribers.
type PositionPublisher interface {
	Publish(pos domain.DevicePosition)
}

// LocationService answers geocoding, search and routing queries from the
// local place directory, and tracks device positions and merchant geofences.
type LocationService struct {
	store     LocationStore
	cache     Cache
	publisher PositionPublisher
	now       func() time.Time
}

// NewLocationService creates a new LocationService. publisher may be nil.
func NewLocationService(store LocationStore, cache Cache, publisher PositionPublisher) *LocationService {
	return &LocationService{store: store, cache: cache, publisher: publisher, now: time.Now}
}

// Geocode resolves a free-text address to the best matching place.
func (s *LocationService) Geocode(ctx context.Context, address string) (*domain.GeocodingResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, domain.ErrBadRequest("address is required")
	}

	key := "geocode:" + strings.ToLower(address)
	if raw, err := s.cache.Get(ctx, key, geocodeCacheTTL); err != nil {
		slog.Warn("geocode cache read failed", "key", key, "error", err)
	} else if raw != nil {
		var cached domain.GeocodingResult
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	}

	places, err := s.store.SearchPlaces(ctx, domain.PlaceQuery{Text: address, Limit: placeCandidateLimit})
	if err != nil {
		return nil, domain.ErrInternal("failed to search places", err)
	}
	if len(places) == 0 {
		return nil, domain.ErrNotFound("no location matches the address")
	}

	best, bestScore := places[0], -1.0
	for _, p := range places {
		if score := textRelevance(address, p); score > bestScore {
			best, bestScore = p, score
		}
	}
	result := &domain.GeocodingResult{
		Coordinate: best.Coordinate,
		Address:    best.Address,
		Relevance:  geo.Round(bestScore, 2),
	}

	if raw, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, key, raw); err != nil {
			slog.Warn("geocode cache write failed", "key", key, "error", err)
		}
	}
	return result, nil
}

// ReverseGeocode returns the address of the nearest place within 1 km.
func (s *LocationService) ReverseGeocode(ctx context.Context, at domain.Coordinate) (*domain.GeocodingResult, error) {
	if err := checkCoordinate(at); err != nil {
		return nil, err
	}
	places, err := s.nearby(ctx, at, reverseGeocodeRadius, domain.PlaceQuery{})
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, domain.ErrNotFound("no address found near the coordinate")
	}
	nearest := places[0]
	return &domain.GeocodingResult{
		Coordinate: nearest.Coordinate,
		Address:    nearest.Address,
		Relevance:  geo.Round(1-nearest.Distance/reverseGeocodeRadius, 2),
	}, nil
}

// Search returns places matching query within radius meters of at, nearest
// first.
func (s *LocationService) Search(ctx context.Context, query string, at domain.Coordinate, maxResults int, radius float64) ([]domain.PlaceSearchResult, error) {
	if err := checkCoordinate(at); err != nil {
		return nil, err
	}
	results, err := s.nearby(ctx, at, radius, domain.PlaceQuery{Text: query})
	if err != nil {
		return nil, err
	}
	return limitResults(results, maxResults), nil
}

// SearchMerchants returns merchant places of category within radius meters
// of at, nearest first.
func (s *LocationService) SearchMerchants(ctx context.Context, category string, at domain.Coordinate, maxResults int, radius float64) ([]domain.PlaceSearchResult, error) {
	if err := checkCoordinate(at); err != nil {
		return nil, err
	}
	results, err := s.nearby(ctx, at, radius, domain.PlaceQuery{Category: category, MerchantsOnly: true})
	if err != nil {
		return nil, err
	}
	return limitResults(results, maxResults), nil
}

// Suggestions completes partial text against place names. Prefix matches
// rank first, then nearer places when a bias coordinate is given.
func (s *LocationService) Suggestions(ctx context.Context, text string, bias *domain.Coordinate, maxResults int) ([]domain.PlaceSearchResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []domain.PlaceSearchResult{}, nil
	}
	if bias != nil {
		if err := checkCoordinate(*bias); err != nil {
			return nil, err
		}
	}

	places, err := s.store.SearchPlaces(ctx, domain.PlaceQuery{Text: text, Limit: placeCandidateLimit})
	if err != nil {
		return nil, domain.ErrInternal("failed to search places", err)
	}

	lower := strings.ToLower(text)
	results := make([]rankedPlace, 0, len(places))
	for _, p := range places {
		r := toRanked(p, textRelevance(text, p))
		if bias != nil {
			r.Distance = geo.Round(geo.Haversine(bias.Latitude, bias.Longitude, p.Coordinate.Latitude, p.Coordinate.Longitude), 1)
		}
		r.prefix = strings.HasPrefix(strings.ToLower(p.Name), lower)
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].prefix != results[j].prefix {
			return results[i].prefix
		}
		if bias != nil && results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Name < results[j].Name
	})
	return limitResults(results, maxResults), nil
}

// PlaceDetails returns one place.
func (s *LocationService) PlaceDetails(ctx context.Context, placeID string) (*domain.PlaceSearchResult, error) {
	p, err := s.store.FindPlace(ctx, placeID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find place", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound("place not found")
	}
	r := toRanked(p, 1).PlaceSearchResult
	return &r, nil
}

// Route estimates a route between two points for a travel mode. Paths
// beyond the mode's maximum distance are unroutable.
func (s *LocationService) Route(ctx context.Context, from, to domain.Coordinate, travelMode string) (*domain.RouteResult, error) {
	if err := checkCoordinate(from); err != nil {
		return nil, err
	}
	if err := checkCoordinate(to); err != nil {
		return nil, err
	}
	mode, ok := geo.LookupMode(travelMode)
	if !ok {
		return nil, domain.ErrBadRequest(fmt.Sprintf("unknown travel mode %q", travelMode))
	}

	straight := geo.Haversine(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
	distance := straight * mode.DetourFactor
	if distance > mode.MaxMeters {
		return nil, domain.ErrNotFound("no route found for travel mode " + mode.Name)
	}
	duration := distance / mode.SpeedMPS

	direction := geo.CompassDirection(geo.Bearing(from.Latitude, from.Longitude, to.Latitude, to.Longitude))
	return &domain.RouteResult{
		Distance:   geo.Round(distance, 1),
		Duration:   geo.Round(duration, 0),
		TravelMode: mode.Name,
		Steps: []domain.RouteStep{
			{
				Instruction: "Head " + direction + " toward the destination",
				Distance:    geo.Round(distance, 1),
				Duration:    geo.Round(duration, 0),
				Start:       from,
				End:         to,
			},
			{
				Instruction: "Arrive at the destination",
				Start:       to,
				End:         to,
			},
		},
	}, nil
}

// Distance returns the great-circle distance between two points.
func (s *LocationService) Distance(from, to domain.Coordinate) (*domain.DistanceResult, error) {
	if err := checkCoordinate(from); err != nil {
		return nil, err
	}
	if err := checkCoordinate(to); err != nil {
		return nil, err
	}
	m := geo.Haversine(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
	return &domain.DistanceResult{
		Meters:     geo.Round(m, 2),
		Kilometers: geo.Round(geo.MetersToKilometers(m), 3),
		Miles:      geo.Round(geo.MetersToMiles(m), 3),
	}, nil
}

// Distances returns the distance in meters from origin to each named
// destination.
func (s *LocationService) Distances(origin domain.Coordinate, destinations map[string]domain.Coordinate) (map[string]float64, error) {
	if err := checkCoordinate(origin); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(destinations))
	for name, c := range destinations {
		if err := checkCoordinate(c); err != nil {
			return nil, domain.ErrBadRequest(fmt.Sprintf("destination %q: %s", name, err.Error()))
		}
		out[name] = geo.Round(geo.Haversine(origin.Latitude, origin.Longitude, c.Latitude, c.Longitude), 2)
	}
	return out, nil
}

// UpdatePosition stores the latest position of a device and publishes it.
func (s *LocationService) UpdatePosition(ctx context.Context, deviceID string, req *domain.DevicePositionRequest) (*domain.DevicePosition, error) {
	at := domain.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := checkCoordinate(at); err != nil {
		return nil, err
	}
	now := s.now()
	pos := &domain.DevicePosition{
		Coordinate: at,
		DeviceID:   deviceID,
		Accuracy:   req.Accuracy,
		SampleTime: now,
		ReceivedAt: now,
	}
	if req.SampleTime != nil {
		pos.SampleTime = *req.SampleTime
	}
	if err := s.store.SavePosition(ctx, pos); err != nil {
		return nil, domain.ErrInternal("failed to save device position", err)
	}
	if s.publisher != nil {
		s.publisher.Publish(*pos)
	}
	return pos, nil
}

// GetPosition returns the latest position of a device.
func (s *LocationService) GetPosition(ctx context.Context, deviceID string) (*domain.DevicePosition, error) {
	pos, err := s.store.FindPosition(ctx, deviceID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find device position", err)
	}
	if pos == nil {
		return nil, domain.ErrNotFound("device position not found")
	}
	return pos, nil
}

// CreateGeofence creates or replaces the geofence of a merchant.
func (s *LocationService) CreateGeofence(ctx context.Context, merchantID int64, req *domain.GeofenceRequest) (*domain.GeofenceInfo, error) {
	center := domain.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := checkCoordinate(center); err != nil {
		return nil, err
	}
	if req.ValidFrom != nil && req.ValidUntil != nil && !req.ValidUntil.After(*req.ValidFrom) {
		return nil, domain.ErrBadRequest("validUntil must be after validFrom")
	}

	now := s.now()
	g := &domain.Geofence{
		MerchantID:   merchantID,
		Name:         req.Name,
		Center:       center,
		RadiusMeters: req.RadiusMeters,
		ValidFrom:    req.ValidFrom,
		ValidUntil:   req.ValidUntil,
		CreatedAt:    now,
	}
	if err := s.store.UpsertGeofence(ctx, g); err != nil {
		return nil, domain.ErrInternal("failed to save geofence", err)
	}
	slog.Info("geofence saved", "merchant_id", merchantID, "radius_meters", req.RadiusMeters)
	info := domain.NewGeofenceInfo(g, now)
	return &info, nil
}

// DeleteGeofence removes the geofence of a merchant.
func (s *LocationService) DeleteGeofence(ctx context.Context, merchantID int64) error {
	deleted, err := s.store.DeleteGeofence(ctx, merchantID)
	if err != nil {
		return domain.ErrInternal("failed to delete geofence", err)
	}
	if !deleted {
		return domain.ErrNotFound("geofence not found")
	}
	return nil
}

// ListGeofences returns every geofence with its status at the current time.
func (s *LocationService) ListGeofences(ctx context.Context) ([]domain.GeofenceInfo, error) {
	fences, err := s.store.ListGeofences(ctx)
	if err != nil {
		return nil, domain.ErrInternal("failed to list geofences", err)
	}
	now := s.now()
	out := make([]domain.GeofenceInfo, len(fences))
	for i, g := range fences {
		out[i] = domain.NewGeofenceInfo(g, now)
	}
	return out, nil
}

type rankedPlace struct {
	domain.PlaceSearchResult
	prefix bool
}

func (r rankedPlace) result() domain.PlaceSearchResult { return r.PlaceSearchResult }

// nearby returns places matching q within radius of at, nearest first.
func (s *LocationService) nearby(ctx context.Context, at domain.Coordinate, radius float64, q domain.PlaceQuery) ([]rankedPlace, error) {
	if radius <= 0 {
		return nil, domain.ErrBadRequest("radiusMeters must be positive")
	}
	minLat, maxLat, minLon, maxLon := geo.BoundingBox(at.Latitude, at.Longitude, radius)
	q.Box = &domain.BoundingBox{MinLatitude: minLat, MaxLatitude: maxLat, MinLongitude: minLon, MaxLongitude: maxLon}
	q.Near = &at
	q.Limit = placeCandidateLimit

	places, err := s.store.SearchPlaces(ctx, q)
	if err != nil {
		return nil, domain.ErrInternal("failed to search places", err)
	}

	results := make([]rankedPlace, 0, len(places))
	for _, p := range places {
		d := geo.Haversine(at.Latitude, at.Longitude, p.Coordinate.Latitude, p.Coordinate.Longitude)
		if d > radius {
			continue
		}
		r := toRanked(p, geo.Round(1-d/radius, 2))
		if q.Text != "" {
			r.Relevance = geo.Round(textRelevance(q.Text, p), 2)
		}
		r.Distance = geo.Round(d, 1)
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	return results, nil
}

func toRanked(p *domain.Place, relevance float64) rankedPlace {
	categories := []string{}
	if p.Category != "" {
		categories = append(categories, p.Category)
	}
	return rankedPlace{
		PlaceSearchResult: domain.PlaceSearchResult{
			Coordinate: p.Coordinate,
			PlaceID:    p.ID,
			Name:       p.Name,
			Address:    p.Address,
			Relevance:  relevance,
			Categories: categories,
		},
	}
}

func limitResults(results []rankedPlace, maxResults int) []domain.PlaceSearchResult {
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	out := make([]domain.PlaceSearchResult, len(results))
	for i, r := range results {
		out[i] = r.result()
	}
	return out
}

// textRelevance scores how well query matches a place, in 0..1.
func textRelevance(query string, p *domain.Place) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	best := 0.0
	for _, field := range []string{p.Name, p.Address.Label, p.Address.Street, p.Address.City} {
		f := strings.ToLower(field)
		switch {
		case f == "":
			continue
		case f == q:
			return 1
		case strings.HasPrefix(f, q):
			best = max(best, 0.5+0.5*float64(len(q))/float64(len(f)))
		case strings.Contains(f, q):
			best = max(best, float64(len(q))/float64(len(f)))
		}
	}
	return best
}

func checkCoordinate(c domain.Coordinate) error {
	if !geo.ValidCoordinate(c.Latitude, c.Longitude) {
		return domain.ErrBadRequest("latitude must be within [-90, 90] and longitude within [-180, 180]")
	}
	return nil
}
