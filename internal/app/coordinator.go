package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/weaklink/internal/domain/model"
	"github.com/okian/weaklink/internal/domain/rating"
	"github.com/okian/weaklink/internal/domain/store"
	"github.com/okian/weaklink/pkg/logger"
	"github.com/okian/weaklink/pkg/metrics"
)

// Coordinator applies one rated match to the document store as a single
// idempotent transaction.
type Coordinator struct {
	store    store.Store
	now      func() time.Time
	newID    func() string
	extended bool
	logger   logger.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithClock overrides the time source. Called once per transaction attempt.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides how rating history ids are generated.
func WithIDGenerator(gen func() string) CoordinatorOption {
	return func(c *Coordinator) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// WithExtendedStats also maintains streaks, recent games and the per-match
// update map.
func WithExtendedStats(enabled bool) CoordinatorOption {
	return func(c *Coordinator) {
		c.extended = enabled
	}
}

// WithCoordinatorLogger sets the logger.
func WithCoordinatorLogger(l logger.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCoordinator creates a coordinator over st.
func NewCoordinator(st store.Store, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:  st,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("coordinator")
	return c
}

// Process handles one change notification for match matchID. before is the
// previous record state and may be nil. Store failures are returned as
// errors so the delivery can be retried; every other result is an Outcome.
func (c *Coordinator) Process(ctx context.Context, matchID string, before, after model.Document) (model.Outcome, error) {
	start := time.Now()
	log := c.logger.With(logger.String("matchID", matchID))

	out, err := c.process(ctx, log, matchID, before, after)
	if err != nil {
		log.Error(ctx, "rating update failed", logger.Error(err))
		return model.Outcome{}, err
	}

	metrics.RecordOutcome(string(out.Status), string(out.Reason))
	metrics.RecordProcessingLatency(time.Since(start).Seconds())
	return out, nil
}

func (c *Coordinator) process(ctx context.Context, log logger.Logger, matchID string, before, after model.Document) (model.Outcome, error) {
	if model.Bool(after[model.FieldEloCalculated]) {
		log.Info(ctx, "ratings already calculated, skipping")
		return model.Skipped(model.ReasonAlreadyCalculated), nil
	}
	if st := after[model.FieldStatus]; st != model.StatusCompleted {
		log.Info(ctx, "match not completed, skipping", logger.Any("status", st))
		return model.Skipped(model.ReasonNotCompleted), nil
	}
	if before != nil {
		log.Debug(ctx, "match completed", logger.Any("previousStatus", before[model.FieldStatus]))
	}

	teams, ok, err := ParseMatchData(matchID, after)
	if err != nil {
		log.Warn(ctx, "invalid match data", logger.Error(err))
		return model.Invalid(err.Error()), nil
	}
	if !ok {
		log.Info(ctx, "match data incomplete, skipping")
		return model.Skipped(model.ReasonIncompleteData), nil
	}

	var applied *update
	err = c.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		applied = nil
		u, err := c.apply(ctx, tx, matchID, teams)
		applied = u
		return err
	})
	if err != nil {
		if isValidation(err) {
			return model.Invalid(err.Error()), nil
		}
		return model.Outcome{}, fmt.Errorf("process match %s: %w", matchID, err)
	}
	if applied == nil {
		log.Info(ctx, "match already processed by a concurrent update")
		return model.Skipped(model.ReasonTransactionSkipped), nil
	}

	metrics.RecordRatingChange(applied.teamA.RatingChange)
	metrics.RecordRatingChange(applied.teamB.RatingChange)
	log.Info(ctx, "ratings updated",
		logger.Float64("teamARating", applied.teamA.TeamRating),
		logger.Float64("teamBRating", applied.teamB.TeamRating),
		logger.Float64("teamAChange", applied.teamA.RatingChange),
		logger.Float64("teamBChange", applied.teamB.RatingChange),
		logger.Bool("teamAWon", teams.TeamAWon),
	)
	return model.Success(), nil
}

func isValidation(err error) bool {
	return errors.Is(err, rating.ErrInvalidTeamSize) ||
		errors.Is(err, ErrInvalidWinner) ||
		errors.Is(err, ErrDuplicatePlayer) ||
		errors.Is(err, ErrInvalidMatchData) ||
		errors.Is(err, ErrInvalidPlayerRecord)
}

// update is what one successful transaction attempt staged.
type update struct {
	teamA, teamB model.TeamRatingResult
}

// player is a user record read inside the transaction.
type player struct {
	path     string
	doc      model.Document
	snapshot model.PlayerRatingSnapshot
	peak     float64
}

// apply runs one transaction attempt. It returns nil, nil when the match is
// gone or already rated. All reads happen before the first write.
func (c *Coordinator) apply(ctx context.Context, tx store.Tx, matchID string, teams model.MatchTeams) (*update, error) {
	matchPath := store.Doc(model.CollectionGames, matchID)
	match, exists, err := tx.Get(ctx, matchPath)
	if err != nil {
		return nil, err
	}
	if !exists || model.Bool(match[model.FieldEloCalculated]) {
		return nil, nil
	}

	players := make(map[string]player, len(teams.PlayerIDs))
	for _, id := range teams.PlayerIDs {
		p, err := readPlayer(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		players[id] = p
	}

	resA, resB, err := rating.ComputeTeamRatings(
		snapshots(players, teams.TeamA), snapshots(players, teams.TeamB), teams.TeamAWon)
	if err != nil {
		return nil, err
	}

	now := c.now()
	names := displayNames(players)
	eloUpdates := model.Document{}

	sides := []struct {
		ids, opponents []string
		res            model.TeamRatingResult
		won            bool
	}{
		{teams.TeamA, teams.TeamB, resA, teams.TeamAWon},
		{teams.TeamB, teams.TeamA, resB, !teams.TeamAWon},
	}
	for _, side := range sides {
		opponent := opponentLabel(names, side.opponents)
		for _, id := range side.ids {
			p := players[id]
			oldRating := p.snapshot.CurrentRating
			newRating := side.res.NewRatings[id]

			if err := tx.Merge(p.path, c.playerFields(p, matchID, newRating, side.won, now)); err != nil {
				return nil, err
			}
			entry := model.RatingHistoryEntry{
				GameID:       matchID,
				OldRating:    oldRating,
				NewRating:    newRating,
				RatingChange: side.res.RatingChange,
				OpponentTeam: opponent,
				Won:          side.won,
				Timestamp:    now,
			}
			if err := tx.Create(store.Child(p.path, model.CollectionHistory, c.newID()), entry.ToFields()); err != nil {
				return nil, err
			}
			eloUpdates[id] = map[string]any{
				model.FieldPreviousRating: oldRating,
				model.FieldNewRating:      newRating,
				model.FieldChange:         side.res.RatingChange,
			}
		}
	}

	matchFields := model.Document{
		model.FieldEloCalculated:   true,
		model.FieldEloCalculatedAt: now,
	}
	if c.extended {
		matchFields[model.FieldEloUpdates] = eloUpdates
	}
	if err := tx.Merge(matchPath, matchFields); err != nil {
		return nil, err
	}
	return &update{teamA: resA, teamB: resB}, nil
}

func readPlayer(ctx context.Context, tx store.Tx, id string) (player, error) {
	path := store.Doc(model.CollectionUsers, id)
	doc, _, err := tx.Get(ctx, path)
	if err != nil {
		return player{}, err
	}
	p := player{
		path:     path,
		doc:      doc,
		snapshot: model.PlayerRatingSnapshot{PlayerID: id, CurrentRating: rating.DefaultRating},
	}

	r, ok, err := numberField(doc, id, model.FieldEloRating)
	if err != nil {
		return player{}, err
	}
	if ok {
		p.snapshot.CurrentRating = r
	}
	p.peak = p.snapshot.CurrentRating
	if v, ok, err := numberField(doc, id, model.FieldEloPeak); err != nil {
		return player{}, err
	} else if ok {
		p.peak = v
	}
	if n, ok, err := numberField(doc, id, model.FieldEloGamesPlayed); err != nil {
		return player{}, err
	} else if ok {
		p.snapshot.GamesPlayed = int(n)
	}
	return p, nil
}

// numberField reads a numeric player field. Missing and null values are
// absent; any other non-number is ErrInvalidPlayerRecord.
func numberField(doc model.Document, playerID, field string) (float64, bool, error) {
	v, present := doc[field]
	if !present || v == nil {
		return 0, false, nil
	}
	f, ok := model.Float(v)
	if !ok {
		return 0, false, fmt.Errorf("%w: %s.%s is %T, not a number", ErrInvalidPlayerRecord, playerID, field, v)
	}
	return f, true, nil
}

// playerFields builds the user record update. The peak date moves only when
// the peak is strictly exceeded.
func (c *Coordinator) playerFields(p player, matchID string, newRating float64, won bool, now time.Time) model.Document {
	fields := model.Document{
		model.FieldEloRating:      newRating,
		model.FieldEloLastUpdated: now,
		model.FieldEloPeak:        max(p.peak, newRating),
		model.FieldEloGamesPlayed: store.Increment(1),
	}
	if newRating > p.peak {
		fields[model.FieldEloPeakDate] = now
	}

	if c.extended {
		streak, _ := model.Int(p.doc[model.FieldCurrentStreak])
		fields[model.FieldCurrentStreak] = rating.NextStreak(int(streak), won)

		recent, _ := model.Strings(p.doc[model.FieldRecentGameIDs])
		ids := append([]any{matchID}, toAny(recent)...)
		if len(ids) > model.RecentGamesLimit {
			ids = ids[:model.RecentGamesLimit]
		}
		fields[model.FieldRecentGameIDs] = ids

		var win, loss int64
		if won {
			win = 1
		} else {
			loss = 1
		}
		fields[model.FieldGamesPlayed] = store.Increment(1)
		fields[model.FieldWins] = store.Increment(win)
		fields[model.FieldLosses] = store.Increment(loss)
		fields[model.FieldGamesWon] = store.Increment(win)
		fields[model.FieldGamesLost] = store.Increment(loss)
		fields[model.FieldLastGameDate] = now
	}
	return fields
}

func snapshots(players map[string]player, ids []string) []model.PlayerRatingSnapshot {
	out := make([]model.PlayerRatingSnapshot, len(ids))
	for i, id := range ids {
		out[i] = players[id].snapshot
	}
	return out
}

// displayNames picks displayName, then email, then a placeholder.
func displayNames(players map[string]player) map[string]string {
	names := make(map[string]string, len(players))
	for id, p := range players {
		name := model.UnknownPlayerName
		if v, ok := model.String(p.doc[model.FieldDisplayName]); ok {
			name = v
		} else if v, ok := model.String(p.doc[model.FieldEmail]); ok {
			name = v
		}
		names[id] = name
	}
	return names
}

func opponentLabel(names map[string]string, ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = names[id]
	}
	return strings.Join(parts, " & ")
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
