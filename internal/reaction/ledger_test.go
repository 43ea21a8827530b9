package reaction

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/blogmind/internal/errs"
	"github.com/inkwell/blogmind/internal/models"
)

// memoryStore serializes updates per post like the row lock in postgres
type memoryStore struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	sets  map[string]models.ReactionSets
}

func newMemoryStore(postIDs ...string) *memoryStore {
	s := &memoryStore{locks: map[string]*sync.Mutex{}, sets: map[string]models.ReactionSets{}}
	for _, id := range postIDs {
		s.locks[id] = &sync.Mutex{}
		s.sets[id] = models.ReactionSets{}
	}
	return s
}

func (s *memoryStore) UpdateReactions(_ context.Context, postID string, fn func(models.ReactionSets) models.ReactionSets) (models.ReactionSets, error) {
	s.mu.Lock()
	lock, ok := s.locks[postID]
	s.mu.Unlock()
	if !ok {
		return models.ReactionSets{}, errs.New(errs.KindNotFound, "Blog not found")
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	prev := s.sets[postID]
	s.mu.Unlock()

	next := fn(prev)

	s.mu.Lock()
	s.sets[postID] = next
	s.mu.Unlock()
	return next, nil
}

func TestToggle(t *testing.T) {
	tests := []struct {
		name         string
		sets         models.ReactionSets
		kind         models.ReactionKind
		wantLiked    []string
		wantDisliked []string
		wantActive   bool
	}{
		{
			name:       "first like",
			sets:       models.ReactionSets{},
			kind:       models.ReactionLike,
			wantLiked:  []string{"u1"},
			wantActive: true,
		},
		{
			name:       "like again toggles off",
			sets:       models.ReactionSets{LikedBy: []string{"u1"}},
			kind:       models.ReactionLike,
			wantLiked:  []string{},
			wantActive: false,
		},
		{
			name:         "dislike while liked moves",
			sets:         models.ReactionSets{LikedBy: []string{"u1", "u2"}},
			kind:         models.ReactionDislike,
			wantLiked:    []string{"u2"},
			wantDisliked: []string{"u1"},
			wantActive:   true,
		},
		{
			name:         "like while disliked moves",
			sets:         models.ReactionSets{DislikedBy: []string{"u1"}},
			kind:         models.ReactionLike,
			wantLiked:    []string{"u1"},
			wantDisliked: []string{},
			wantActive:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, active := Toggle(tt.sets, "u1", tt.kind)
			assert.Equal(t, tt.wantActive, active)
			assert.ElementsMatch(t, tt.wantLiked, next.LikedBy)
			assert.ElementsMatch(t, tt.wantDisliked, next.DislikedBy)
		})
	}
}

func TestLedger_LikeTwice(t *testing.T) {
	postID := uuid.NewString()
	ledger := NewLedger(newMemoryStore(postID))
	ctx := context.Background()

	_, err := ledger.React(ctx, postID, "u1", models.ReactionLike)
	require.NoError(t, err)

	res, err := ledger.React(ctx, postID, "u1", models.ReactionLike)
	require.NoError(t, err)
	assert.False(t, res.Active)
	assert.NotContains(t, res.LikedBy, "u1")
	assert.NotContains(t, res.DislikedBy, "u1")
}

func TestLedger_LikeDislikeDislike(t *testing.T) {
	postID := uuid.NewString()
	ledger := NewLedger(newMemoryStore(postID))
	ctx := context.Background()

	res, err := ledger.React(ctx, postID, "u1", models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Likes)

	res, err = ledger.React(ctx, postID, "u1", models.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Likes)
	assert.Equal(t, 1, res.Dislikes)

	res, err = ledger.React(ctx, postID, "u1", models.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Likes)
	assert.Equal(t, 0, res.Dislikes)
}

func TestLedger_Errors(t *testing.T) {
	postID := uuid.NewString()
	ledger := NewLedger(newMemoryStore(postID))
	ctx := context.Background()

	_, err := ledger.React(ctx, postID, "u1", models.ReactionKind("love"))
	assert.Equal(t, errs.KindInvalid, errs.KindOf(err))

	_, err = ledger.React(ctx, "not-a-uuid", "u1", models.ReactionLike)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	_, err = ledger.React(ctx, uuid.NewString(), "u1", models.ReactionLike)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	_, err = ledger.React(ctx, postID, "", models.ReactionLike)
	assert.Equal(t, errs.KindUnauthorized, errs.KindOf(err))
}

func TestLedger_ConcurrentTogglesKeepSetsDisjoint(t *testing.T) {
	postID := uuid.NewString()
	store := newMemoryStore(postID)
	ledger := NewLedger(store)
	ctx := context.Background()

	users := []string{"u1", "u2", "u3", "u4"}
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := models.ReactionLike
			if i%3 == 0 {
				kind = models.ReactionDislike
			}
			_, err := ledger.React(ctx, postID, users[i%len(users)], kind)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	final := store.sets[postID]
	assert.Empty(t, lo.Intersect(final.LikedBy, final.DislikedBy))
	assert.Len(t, lo.Uniq(final.LikedBy), len(final.LikedBy))
	assert.Len(t, lo.Uniq(final.DislikedBy), len(final.DislikedBy))
}
