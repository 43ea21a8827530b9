// Package reaction applies like/dislike toggles to a post's reaction sets.
package reaction

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/inkwell/blogmind/internal/errs"
	"github.com/inkwell/blogmind/internal/models"
	"github.com/inkwell/blogmind/pkg/logging"
	"github.com/inkwell/blogmind/pkg/telemetry"
)

var reactionsTotal = telemetry.NewCounter("blogmind_reactions_total", "Reaction toggles by resulting state")

// Store persists reaction sets. UpdateReactions must run fn and persist its
// result as one critical section per post.
type Store interface {
	UpdateReactions(ctx context.Context, postID string, fn func(models.ReactionSets) models.ReactionSets) (models.ReactionSets, error)
}

// Result is the outcome of a toggle
type Result struct {
	Kind       models.ReactionKind `json:"kind"`
	Active     bool                `json:"active"`
	Likes      int                 `json:"likesCount"`
	Dislikes   int                 `json:"dislikesCount"`
	LikedBy    []string            `json:"likes"`
	DislikedBy []string            `json:"dislikes"`
}

// Ledger enforces that a user holds at most one reaction per post
type Ledger struct {
	store  Store
	logger *zap.Logger
}

// NewLedger creates a reaction ledger
func NewLedger(store Store) *Ledger {
	return &Ledger{
		store:  store,
		logger: logging.WithComponent("reaction-ledger"),
	}
}

// React toggles userID's kind reaction on postID. Reacting with the kind the
// user already holds removes it; reacting with the other kind moves the user.
func (l *Ledger) React(ctx context.Context, postID, userID string, kind models.ReactionKind) (*Result, error) {
	if !kind.Valid() {
		return nil, errs.Newf(errs.KindInvalid, "Unknown reaction %q", kind)
	}
	if userID == "" {
		return nil, errs.New(errs.KindUnauthorized, "Not authorized")
	}
	if _, err := uuid.Parse(postID); err != nil {
		return nil, errs.New(errs.KindNotFound, "Blog not found")
	}

	var active bool
	sets, err := l.store.UpdateReactions(ctx, postID, func(prev models.ReactionSets) models.ReactionSets {
		var next models.ReactionSets
		next, active = Toggle(prev, userID, kind)
		return next
	})
	if err != nil {
		return nil, err
	}

	l.logger.Debug("Reaction toggled",
		zap.String("post_id", postID),
		zap.String("user_id", userID),
		zap.String("kind", string(kind)),
		zap.Bool("active", active))
	reactionsTotal.Inc(ctx, stateLabel(kind, active))

	return &Result{
		Kind:       kind,
		Active:     active,
		Likes:      len(sets.LikedBy),
		Dislikes:   len(sets.DislikedBy),
		LikedBy:    sets.LikedBy,
		DislikedBy: sets.DislikedBy,
	}, nil
}

// Toggle computes the next reaction sets. It reports whether the user holds
// kind afterwards.
func Toggle(sets models.ReactionSets, userID string, kind models.ReactionKind) (models.ReactionSets, bool) {
	same := sets.Set(kind)
	other := sets.Set(kind.Opposite())

	active := !lo.Contains(same, userID)
	if active {
		same = append(lo.Without(same, userID), userID)
	} else {
		same = lo.Without(same, userID)
	}
	other = lo.Without(other, userID)

	if kind == models.ReactionLike {
		return models.ReactionSets{LikedBy: same, DislikedBy: other}, active
	}
	return models.ReactionSets{LikedBy: other, DislikedBy: same}, active
}

func stateLabel(kind models.ReactionKind, active bool) string {
	if active {
		return string(kind)
	}
	return "un" + string(kind)
}
