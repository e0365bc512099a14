package models

import "time"

// Aircraft is one OpenSky state vector keyed by ICAO24 hex address.
type Aircraft struct {
	ICAO24        string  `json:"icao24"`
	Callsign      string  `json:"callsign,omitempty"`
	OriginCountry string  `json:"originCountry,omitempty"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	AltitudeM     float64 `json:"altitudeM"`
	VelocityMS    float64 `json:"velocityMs"`
	Heading       float64 `json:"heading"`
	OnGround      bool    `json:"onGround"`
}

// Vessel is one AIS position report keyed by MMSI.
type Vessel struct {
	MMSI      int64     `json:"mmsi"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	SpeedKn   float64   `json:"speedKn"`
	Course    float64   `json:"course"`
	Heading   float64   `json:"heading"`
	NavStatus int       `json:"navStatus"`
	SeenAt    time.Time `json:"seenAt"`
}

// PredictionMarket is one Polymarket market summary.
type PredictionMarket struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Slug      string    `json:"slug,omitempty"`
	YesPrice  float64   `json:"yesPrice"`
	NoPrice   float64   `json:"noPrice"`
	Volume    float64   `json:"volume"`
	Liquidity float64   `json:"liquidity"`
	EndDate   time.Time `json:"endDate,omitempty"`
	Active    bool      `json:"active"`
}
