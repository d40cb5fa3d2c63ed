package service

import (
	"fmt"

	"github.com/okian/weaklink/internal/domain/model"
	"github.com/okian/weaklink/internal/domain/rating"
)

// ParseMatchData extracts the teams and winner of a completed match.
// ok is false when the result or teams are missing, which callers treat as
// a no-op. Malformed data returns an error.
func ParseMatchData(matchID string, data model.Document) (model.MatchTeams, bool, error) {
	result, present, err := nested(data, model.FieldResult)
	if err != nil || !present {
		return model.MatchTeams{}, false, err
	}
	teams, present, err := nested(data, model.FieldTeams)
	if err != nil || !present {
		return model.MatchTeams{}, false, err
	}

	teamA, err := teamIDs(teams, model.FieldTeamAPlayerIDs, "Team A")
	if err != nil {
		return model.MatchTeams{}, false, err
	}
	teamB, err := teamIDs(teams, model.FieldTeamBPlayerIDs, "Team B")
	if err != nil {
		return model.MatchTeams{}, false, err
	}

	var teamAWon bool
	switch winner := result[model.FieldOverallWinner]; winner {
	case model.WinnerTeamA:
		teamAWon = true
	case model.WinnerTeamB:
	default:
		return model.MatchTeams{}, false, fmt.Errorf("%w: %v", ErrInvalidWinner, winner)
	}

	ids := append(append(make([]string, 0, 2*rating.TeamSize), teamA...), teamB...)
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return model.MatchTeams{}, false, fmt.Errorf("%w: %s appears twice in match %s", ErrDuplicatePlayer, id, matchID)
		}
		seen[id] = struct{}{}
	}

	return model.MatchTeams{TeamA: teamA, TeamB: teamB, TeamAWon: teamAWon, PlayerIDs: ids}, true, nil
}

// nested reads a map field. Missing, null and empty maps are absent.
func nested(data model.Document, field string) (model.Document, bool, error) {
	v, ok := data[field]
	if !ok || v == nil {
		return nil, false, nil
	}
	m, ok := model.Map(v)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s is not an object", ErrInvalidMatchData, field)
	}
	return m, len(m) > 0, nil
}

func teamIDs(teams model.Document, field, label string) ([]string, error) {
	var ids []string
	if v, ok := teams[field]; ok && v != nil {
		var valid bool
		if ids, valid = model.Strings(v); !valid {
			return nil, fmt.Errorf("%w: %s must be a list of player ids", ErrInvalidMatchData, field)
		}
	}
	if len(ids) != rating.TeamSize {
		return nil, fmt.Errorf("%w: %s must have exactly %d players, got %d",
			rating.ErrInvalidTeamSize, label, rating.TeamSize, len(ids))
	}
	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("%w: %s has an empty player id", ErrInvalidMatchData, label)
		}
	}
	return ids, nil
}
