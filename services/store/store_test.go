package store

import (
	"context"
	"testing"
	"time"

	"beykent-notifier/lib/scrapers/obs"
	"beykent-notifier/lib/testutil"
	"beykent-notifier/services/store/db"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestSeenSet(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/store",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := New(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	result := obs.Result{
		LessonID:   "101",
		LessonName: "Algorithms",
		ExamType:   obs.ExamMidterm,
		Score:      85,
	}

	exists, err := store.Exists(ctx, result.LessonID, result.ExamType)
	require.NoError(t, err)
	require.False(t, exists)

	err = store.Insert(ctx, result)
	require.NoError(t, err)

	exists, err = store.Exists(ctx, result.LessonID, result.ExamType)
	require.NoError(t, err)
	require.True(t, exists)

	// same lesson, different exam type is a distinct fact
	exists, err = store.Exists(ctx, result.LessonID, obs.ExamFinal)
	require.NoError(t, err)
	require.False(t, exists)

	final := result
	final.ExamType = obs.ExamFinal
	final.Score = 90
	err = store.Insert(ctx, final)
	require.NoError(t, err)
}

func TestDedupKeyUniqueness(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/store",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := New(setup.DB)

	ctx := context.Background()
	result := obs.Result{
		LessonID:   "205",
		LessonName: "Databases",
		ExamType:   obs.ExamFinal,
		Score:      74.5,
	}

	require.NoError(t, store.Insert(ctx, result))

	// the unique index rejects a second record with the same identity
	// even if the score differs
	dup := result
	dup.Score = 99
	require.Error(t, store.Insert(ctx, dup))
}

func TestAlertGate(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/store",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := New(setup.DB)

	ctx := context.Background()

	require.True(t, store.ShouldSend(ctx, obs.AlertKindContactInfo))

	store.MarkSent(ctx, obs.AlertKindContactInfo)
	require.False(t, store.ShouldSend(ctx, obs.AlertKindContactInfo))

	// a stale send no longer suppresses
	err := db.New(setup.DB).MarkAlertSent(ctx, db.MarkAlertSentParams{
		Kind:     obs.AlertKindContactInfo,
		LastSent: time.Now().Add(-25 * time.Hour).Unix(),
	})
	require.NoError(t, err)
	require.True(t, store.ShouldSend(ctx, obs.AlertKindContactInfo))
}
