package fraud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RecordAndList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Record(ctx, &Assessment{
			ID:          "a-" + string(rune('1'+i)),
			UserID:      "user-1",
			Score:       float64(i) * 0.1,
			Source:      SourceLocal,
			EvaluatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.Record(ctx, &Assessment{ID: "other", UserID: "user-2", Source: SourceLocal}))

	got, err := s.ListByUser(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a-3", got[0].ID, "most recent first")

	limited, err := s.ListByUser(ctx, "user-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := s.ListByUser(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_ListReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, &Assessment{
		ID:      "a-1",
		UserID:  "user-1",
		Factors: map[string]float64{"amount": 0.3},
		Source:  SourceLocal,
	}))

	got, err := s.ListByUser(ctx, "user-1", 1)
	require.NoError(t, err)
	got[0].Factors["amount"] = 999

	again, err := s.ListByUser(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 0.3, again[0].Factors["amount"])
}
