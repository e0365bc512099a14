package models

import "time"

// ConflictEvent is a conflict or cyber news item classified from GDELT
// headlines. Type is a best-effort keyword classification of the title,
// not an upstream guarantee.
type ConflictEvent struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Source    string    `json:"source,omitempty"`
	Type      string    `json:"type"` // "airstrike", "ground", "naval", "drone", "cyber", "nuclear", "other"
	Country   string    `json:"country,omitempty"`
	SeenAt    time.Time `json:"seenAt"`
	Language  string    `json:"language,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
}

// NewsItem is a normalized RSS headline.
type NewsItem struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Feed        string    `json:"feed"`
	PublishedAt time.Time `json:"publishedAt"`
	Description string    `json:"description,omitempty"`
}

// FireHotspot is one NASA FIRMS thermal-anomaly detection.
type FireHotspot struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Brightness float64   `json:"brightness"`
	Confidence string    `json:"confidence"` // "l", "n", "h" or numeric string per sensor
	FRP        float64   `json:"frp"`
	AcquiredAt time.Time `json:"acquiredAt"`
	DayNight   string    `json:"dayNight,omitempty"`
}

// CveEntry is a normalized vulnerability record from the CIRCL feed.
type CveEntry struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	CVSS        float64   `json:"cvss"`
	PublishedAt time.Time `json:"publishedAt"`
	References  []string  `json:"references,omitempty"`
}
