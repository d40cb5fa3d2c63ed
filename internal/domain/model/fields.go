package model

// Collections.
const (
	CollectionGames   = "games"
	CollectionUsers   = "users"
	CollectionHistory = "ratingHistory"
)

// Match record fields.
const (
	FieldStatus          = "status"
	FieldTeams           = "teams"
	FieldTeamAPlayerIDs  = "teamAPlayerIds"
	FieldTeamBPlayerIDs  = "teamBPlayerIds"
	FieldResult          = "result"
	FieldOverallWinner   = "overallWinner"
	FieldEloCalculated   = "eloCalculated"
	FieldEloCalculatedAt = "eloCalculatedAt"
	FieldEloUpdates      = "eloUpdates"

	StatusCompleted = "completed"
	WinnerTeamA     = "teamA"
	WinnerTeamB     = "teamB"
)

// Player record fields.
const (
	FieldEloRating      = "eloRating"
	FieldEloGamesPlayed = "eloGamesPlayed"
	FieldEloPeak        = "eloPeak"
	FieldEloPeakDate    = "eloPeakDate"
	FieldEloLastUpdated = "eloLastUpdated"
	FieldDisplayName    = "displayName"
	FieldEmail          = "email"
	FieldCurrentStreak  = "currentStreak"
	FieldRecentGameIDs  = "recentGameIds"

	// Lifetime counters kept with extended stats.
	FieldGamesPlayed  = "gamesPlayed"
	FieldWins         = "wins"
	FieldLosses       = "losses"
	FieldGamesWon     = "gamesWon"
	FieldGamesLost    = "gamesLost"
	FieldLastGameDate = "lastGameDate"
)

// Rating history fields.
const (
	FieldGameID       = "gameId"
	FieldOldRating    = "oldRating"
	FieldNewRating    = "newRating"
	FieldRatingChange = "ratingChange"
	FieldOpponentTeam = "opponentTeam"
	FieldWon          = "won"
	FieldTimestamp    = "timestamp"
)

// Per-match update map fields.
const (
	FieldPreviousRating = "previousRating"
	FieldChange         = "change"
)

// UnknownPlayerName labels a player without displayName or email.
const UnknownPlayerName = "Unknown"

// RecentGamesLimit caps recentGameIds.
const RecentGamesLimit = 10
