package domain

import "time"

// Travel modes.
const (
	TravelCar        = "CAR"
	TravelPedestrian = "PEDESTRIAN"
	TravelBicycle    = "BICYCLE"
)

// Geofence statuses.
const (
	GeofenceActive    = "ACTIVE"
	GeofenceScheduled = "SCHEDULED"
	GeofenceExpired   = "EXPIRED"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Address is a structured postal address.
type Address struct {
	Label      string `json:"label"`
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Place is an entry in the local place directory.
type Place struct {
	ID         string
	Name       string
	Category   string
	MerchantID *int64
	Address    Address
	Coordinate Coordinate
}

// GeocodingResult is a resolved address.
type GeocodingResult struct {
	Coordinate
	Address   Address `json:"address"`
	Relevance float64 `json:"relevance"`
}

// PlaceSearchResult is a place matched by a search.
type PlaceSearchResult struct {
	Coordinate
	PlaceID    string   `json:"placeId"`
	Name       string   `json:"name"`
	Address    Address  `json:"address"`
	Distance   float64  `json:"distance"`
	Relevance  float64  `json:"relevance"`
	Categories []string `json:"categories"`
}

// RouteStep is one instruction of a route.
type RouteStep struct {
	Instruction string     `json:"instruction"`
	Distance    float64    `json:"distance"`
	Duration    float64    `json:"duration"`
	Start       Coordinate `json:"start"`
	End         Coordinate `json:"end"`
}

// RouteResult is a computed route. Distance is in meters and Duration in
// seconds.
type RouteResult struct {
	Distance   float64     `json:"distance"`
	Duration   float64     `json:"duration"`
	TravelMode string      `json:"travelMode"`
	Steps      []RouteStep `json:"steps"`
}

// DistanceResult expresses one distance in several units.
type DistanceResult struct {
	Meters     float64 `json:"meters"`
	Kilometers float64 `json:"kilometers"`
	Miles      float64 `json:"miles"`
}

// DistancesRequest is the input for a batch distance calculation.
type DistancesRequest struct {
	Origin       Coordinate            `json:"origin"`
	Destinations map[string]Coordinate `json:"destinations" validate:"required,min=1,dive"`
}

// DevicePosition is the last known position of a device.
type DevicePosition struct {
	Coordinate
	DeviceID   string    `json:"deviceId"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	SampleTime time.Time `json:"sampleTime"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// DevicePositionRequest reports a device position.
type DevicePositionRequest struct {
	Latitude   float64    `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64    `json:"longitude" validate:"gte=-180,lte=180"`
	Accuracy   *float64   `json:"accuracy" validate:"omitempty,gte=0"`
	SampleTime *time.Time `json:"sampleTime"`
}

// Geofence is a circular region around a merchant.
type Geofence struct {
	MerchantID   int64
	Name         string
	Center       Coordinate
	RadiusMeters float64
	ValidFrom    *time.Time
	ValidUntil   *time.Time
	CreatedAt    time.Time
}

// StatusAt returns the geofence status at now.
func (g *Geofence) StatusAt(now time.Time) string {
	if g.ValidUntil != nil && !now.Before(*g.ValidUntil) {
		return GeofenceExpired
	}
	if g.ValidFrom != nil && now.Before(*g.ValidFrom) {
		return GeofenceScheduled
	}
	return GeofenceActive
}

// GeofenceInfo is the API view of a geofence.
type GeofenceInfo struct {
	Coordinate
	MerchantID   int64      `json:"merchantId"`
	Name         string     `json:"name"`
	RadiusMeters float64    `json:"radiusMeters"`
	Status       string     `json:"status"`
	ValidFrom    *time.Time `json:"validFrom,omitempty"`
	ValidUntil   *time.Time `json:"validUntil,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// NewGeofenceInfo projects a geofence at now.
func NewGeofenceInfo(g *Geofence, now time.Time) GeofenceInfo {
	return GeofenceInfo{
		MerchantID:   g.MerchantID,
		Name:         g.Name,
		Coordinate:   g.Center,
		RadiusMeters: g.RadiusMeters,
		Status:       g.StatusAt(now),
		ValidFrom:    g.ValidFrom,
		ValidUntil:   g.ValidUntil,
		CreatedAt:    g.CreatedAt,
	}
}

// GeofenceRequest is the input for creating a merchant geofence.
type GeofenceRequest struct {
	Name         string     `json:"name" validate:"required,max=200"`
	Latitude     float64    `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64    `json:"longitude" validate:"gte=-180,lte=180"`
	RadiusMeters float64    `json:"radiusMeters" validate:"required,gt=0,lte=50000"`
	ValidFrom    *time.Time `json:"validFrom"`
	ValidUntil   *time.Time `json:"validUntil"`
}

// BoundingBox is a latitude/longitude rectangle.
type BoundingBox struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

// PlaceQuery filters the place directory. Empty fields do not filter. With
// Near set, results come nearest first before Limit applies.
type PlaceQuery struct {
	Text          string
	Category      string
	MerchantsOnly bool
	Box           *BoundingBox
	Near          *Coordinate
	Limit         int
}
