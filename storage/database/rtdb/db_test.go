package rtdb_test

import (
	"context"
	"os"
	"testing"

	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/storage/database/rtdb"
	"github.com/trezcool/alama/tests"
)

const emulatorHostEnv = "FIREBASE_DATABASE_EMULATOR_HOST"

// openEmulator returns a store on a fresh namespace of the Realtime Database emulator.
func openEmulator(t *testing.T) *rtdb.DB {
	if os.Getenv(emulatorHostEnv) == "" {
		t.Skipf("%s is not set", emulatorHostEnv)
	}
	ctx := context.Background()
	ns := "alama-" + uuid.NewString()
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:   "alama-test",
		DatabaseURL: "https://" + ns + ".firebaseio.com",
	})
	require.NoError(t, err)

	db, err := rtdb.Open(ctx, app)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDB(t *testing.T) {
	testutil.RunStoreSuite(t, func(t *testing.T) core.DocumentStore { return openEmulator(t) })
}

func TestDB_arrayNode(t *testing.T) {
	ctx := context.Background()
	db := openEmulator(t)

	// subjects written as a plain list
	err := db.UpdatePaths(ctx, map[string]interface{}{
		"subjects/0": core.Record{"name": "Math", "grade": 1},
		"subjects/1": core.Record{"name": "Science", "grade": 1},
	})
	require.NoError(t, err)

	recs, err := db.List(ctx, core.SubjectsCollection)
	require.NoError(t, err)
	assert.Equal(t, map[string]core.Record{
		"0": {"name": "Math", "grade": float64(1)},
		"1": {"name": "Science", "grade": float64(1)},
	}, recs)

	rec, err := db.Get(ctx, "subjects/1")
	require.NoError(t, err)
	assert.Equal(t, "Science", rec["name"])
}
