package rating

import "errors"

// ErrInvalidTeamSize is returned when a team does not have exactly two players.
var ErrInvalidTeamSize = errors.New("invalid team size")
