// Package rating implements the Weak-Link Elo formulas for 2v2 matches.
//
// A team is rated as 0.7 of its weaker player plus 0.3 of its stronger one.
// Win expectation and rating change follow the standard Elo curve with K=32,
// and both teammates receive the same change.
package rating

import (
	"fmt"
	"math"

	"github.com/okian/weaklink/internal/domain/model"
)

// Engine constants.
const (
	KFactor       = 32.0
	DefaultRating = 1600.0
	WeakWeight    = 0.7
	StrongWeight  = 0.3
	TeamSize      = 2

	eloScale = 400.0
)

// TeamRating returns the Weak-Link rating of a two-player team.
func TeamRating(ratings []float64) (float64, error) {
	if len(ratings) != TeamSize {
		return 0, fmt.Errorf("%w: expected exactly %d ratings, got %d", ErrInvalidTeamSize, TeamSize, len(ratings))
	}
	lo, hi := math.Min(ratings[0], ratings[1]), math.Max(ratings[0], ratings[1])
	return WeakWeight*lo + StrongWeight*hi, nil
}

// ExpectedWinProbability returns the Elo expectation of team beating opponent.
func ExpectedWinProbability(team, opponent float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opponent-team)/eloScale))
}

// RatingChange returns K*(S-E) where S is 1 for a win and 0 for a loss.
func RatingChange(expected float64, won bool) float64 {
	score := 0.0
	if won {
		score = 1.0
	}
	return KFactor * (score - expected)
}

// ComputeTeamRatings computes both sides of a match. Each side's change is
// derived from its own expectation.
func ComputeTeamRatings(teamA, teamB []model.PlayerRatingSnapshot, teamAWon bool) (model.TeamRatingResult, model.TeamRatingResult, error) {
	if len(teamA) != TeamSize {
		return model.TeamRatingResult{}, model.TeamRatingResult{},
			fmt.Errorf("%w: Team A must have exactly %d players, got %d", ErrInvalidTeamSize, TeamSize, len(teamA))
	}
	if len(teamB) != TeamSize {
		return model.TeamRatingResult{}, model.TeamRatingResult{},
			fmt.Errorf("%w: Team B must have exactly %d players, got %d", ErrInvalidTeamSize, TeamSize, len(teamB))
	}

	ratingA, _ := TeamRating(ratingsOf(teamA))
	ratingB, _ := TeamRating(ratingsOf(teamB))

	expectedA := ExpectedWinProbability(ratingA, ratingB)
	expectedB := ExpectedWinProbability(ratingB, ratingA)

	a := sideResult(teamA, ratingA, expectedA, RatingChange(expectedA, teamAWon))
	b := sideResult(teamB, ratingB, expectedB, RatingChange(expectedB, !teamAWon))
	return a, b, nil
}

// NextStreak advances a signed win/loss streak.
func NextStreak(current int, won bool) int {
	if won {
		if current >= 0 {
			return current + 1
		}
		return 1
	}
	if current <= 0 {
		return current - 1
	}
	return -1
}

func ratingsOf(team []model.PlayerRatingSnapshot) []float64 {
	out := make([]float64, len(team))
	for i, p := range team {
		out[i] = p.CurrentRating
	}
	return out
}

func sideResult(team []model.PlayerRatingSnapshot, teamRating, expected, change float64) model.TeamRatingResult {
	res := model.TeamRatingResult{
		TeamRating:             teamRating,
		PlayerRatings:          make(map[string]float64, len(team)),
		ExpectedWinProbability: expected,
		RatingChange:           change,
		NewRatings:             make(map[string]float64, len(team)),
	}
	for _, p := range team {
		res.PlayerRatings[p.PlayerID] = p.CurrentRating
		res.NewRatings[p.PlayerID] = p.CurrentRating + change
	}
	return res
}
