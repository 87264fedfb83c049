package service

import (
	"context"
	"testing"
	"time"

	"github.com/habitlog/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormLogStoreGetOrCreate(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	ctx := context.Background()
	habit, err := NewHabitService(db.DB).Create(ctx, HabitInput{Name: "Read"})
	require.NoError(t, err)

	store := NewGormLogStore(db.DB)
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	created, ok, err := store.GetOrCreate(ctx, habit.ID, day)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, created.Done)

	again, ok, err := store.GetOrCreate(ctx, habit.ID, day)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, created.ID, again.ID)

	require.NoError(t, store.Delete(ctx, again))
	assert.ErrorIs(t, store.Delete(ctx, again), ErrLogConflict)
}

func TestGormLogStoreRanges(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	ctx := context.Background()
	habit, err := NewHabitService(db.DB).Create(ctx, HabitInput{Name: "Read"})
	require.NoError(t, err)
	other, err := NewHabitService(db.DB).Create(ctx, HabitInput{Name: "Run"})
	require.NoError(t, err)

	for _, date := range []string{"2025-02-27", "2025-03-01", "2025-02-28", "2025-03-02"} {
		require.NoError(t, db.DB.Create(&db.HabitLog{HabitID: habit.ID, Date: date, Done: true}).Error)
	}
	require.NoError(t, db.DB.Create(&db.HabitLog{HabitID: other.ID, Date: "2025-03-01", Done: true}).Error)

	store := NewGormLogStore(db.DB)

	since, err := store.Since(ctx, habit.ID, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, since, 3)
	assert.Equal(t, "2025-03-02", since[0].Date)
	assert.Equal(t, "2025-02-28", since[2].Date)

	between, err := store.Between(ctx, habit.ID,
		time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, between, 2)
	assert.Equal(t, "2025-02-28", between[0].Date)

	_, err = store.Between(ctx, habit.ID, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestGormLogStoreDuplicateInsertIsConflict(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	ctx := context.Background()
	habit, err := NewHabitService(db.DB).Create(ctx, HabitInput{Name: "Read"})
	require.NoError(t, err)
	require.NoError(t, db.DB.Create(&db.HabitLog{HabitID: habit.ID, Date: "2025-03-01", Done: true}).Error)

	second := db.HabitLog{HabitID: habit.ID, Date: "2025-03-02", Done: true}
	require.NoError(t, db.DB.Create(&second).Error)

	second.Date = "2025-03-01"
	assert.ErrorIs(t, NewGormLogStore(db.DB).Update(ctx, &second), ErrLogConflict)
}
