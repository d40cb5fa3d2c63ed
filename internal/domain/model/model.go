// Package model contains domain models passed between layers.
package model

import "time"

// Document is a schemaless record as read from or written to the document store.
type Document = map[string]any

// PlayerRatingSnapshot is a player's rating state read at transaction time.
type PlayerRatingSnapshot struct {
	PlayerID      string
	CurrentRating float64
	GamesPlayed   int
}

// TeamRatingResult is the engine output for one side of a match.
type TeamRatingResult struct {
	TeamRating             float64
	PlayerRatings          map[string]float64
	ExpectedWinProbability float64
	RatingChange           float64
	NewRatings             map[string]float64
}

// RatingHistoryEntry is appended once per player per rated match.
type RatingHistoryEntry struct {
	GameID       string
	OldRating    float64
	NewRating    float64
	RatingChange float64
	OpponentTeam string
	Won          bool
	Timestamp    time.Time
}

// ToFields renders the entry with its stored field names.
func (e RatingHistoryEntry) ToFields() Document {
	return Document{
		FieldGameID:       e.GameID,
		FieldOldRating:    e.OldRating,
		FieldNewRating:    e.NewRating,
		FieldRatingChange: e.RatingChange,
		FieldOpponentTeam: e.OpponentTeam,
		FieldWon:          e.Won,
		FieldTimestamp:    e.Timestamp,
	}
}

// MatchTeams is the validated shape of a completed match.
type MatchTeams struct {
	TeamA     []string
	TeamB     []string
	TeamAWon  bool
	PlayerIDs []string // TeamA then TeamB
}

// PlayerView is the read-only rating view of a player.
type PlayerView struct {
	PlayerID      string     `json:"playerId"`
	EloRating     float64    `json:"eloRating"`
	GamesPlayed   int64      `json:"eloGamesPlayed"`
	EloPeak       float64    `json:"eloPeak"`
	EloPeakDate   *time.Time `json:"eloPeakDate,omitempty"`
	LastUpdated   *time.Time `json:"eloLastUpdated,omitempty"`
	CurrentStreak int64      `json:"currentStreak,omitempty"`
}

// Notification is one delivery of a match-record change.
type Notification struct {
	DeliveryID string
	MatchID    string
	Before     Document
	After      Document
	Attempt    int
}
