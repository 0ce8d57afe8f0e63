package models

import "time"

// LocationPing is a timestamped worker-reported position.
type LocationPing struct {
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// ArrivalRecord is a location ping plus the geofence verification outcome.
// Verification failure is informational only; it never blocks the transition.
type ArrivalRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Verified       bool      `json:"verified"`
	DistanceMeters int       `json:"distance_meters"`
}

// CompletionPhoto is photographic evidence attached to work completion.
type CompletionPhoto struct {
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
}

// CompletionRecord marks the worker's completion claim.
type CompletionRecord struct {
	Timestamp  time.Time         `json:"timestamp"`
	Photos     []CompletionPhoto `json:"photos"`
	WorkerNote string            `json:"worker_note,omitempty"`
}

// RatingRecord is a timestamped rating with optional review text.
type RatingRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Rating    *int      `json:"rating,omitempty"`
	Review    string    `json:"review,omitempty"`
}

// Tracking holds the timestamped execution trail of a job. Each field is set
// at most once, by the transition that produces it.
type Tracking struct {
	WorkerOnWay    *LocationPing     `json:"worker_on_way,omitempty"`
	WorkerArrived  *ArrivalRecord    `json:"worker_arrived,omitempty"`
	WorkStarted    *time.Time        `json:"work_started,omitempty"`
	WorkCompleted  *CompletionRecord `json:"work_completed,omitempty"`
	ClientApproval *RatingRecord     `json:"client_approval,omitempty"`
	WorkerRating   *RatingRecord     `json:"worker_rating,omitempty"`
}
