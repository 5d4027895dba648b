package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"school_transport_echo/internal/models"
)

// attendanceStores returns the memory store plus every database store whose
// TEST_DATABASE_URL / TEST_MONGODB_URI is set.
func attendanceStores(t *testing.T) map[string]AttendanceStore {
	t.Helper()
	ctx := context.Background()
	stores := map[string]AttendanceStore{"memory": NewMemoryStore()}

	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		db, err := InitDB(dsn, false, testLogger())
		require.NoError(t, err)
		require.NoError(t, AutoMigrate(db, testLogger()))
		store := NewGormStore(db)
		t.Cleanup(func() { _ = store.Close(ctx) })
		stores["postgres"] = store
	}
	if uri := os.Getenv("TEST_MONGODB_URI"); uri != "" {
		db, err := InitMongo(ctx, uri, "transport_test", testLogger())
		require.NoError(t, err)
		store := NewMongoStore(db)
		require.NoError(t, store.EnsureIndexes(ctx))
		t.Cleanup(func() { _ = store.Close(ctx) })
		stores["mongo"] = store
	}
	return stores
}

func TestUpsertAttendanceKeepsStoredRecord(t *testing.T) {
	for name, store := range attendanceStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			// fresh id so reruns against a real database start clean
			student := primitive.NewObjectID().Hex()
			bus := "bus-3"

			first := &models.TransportAttendance{StudentID: student, RouteID: "r1", Date: "2024-03-04", Present: true}
			require.NoError(t, store.UpsertAttendance(ctx, first))
			require.NotEmpty(t, first.ID)

			second := &models.TransportAttendance{StudentID: student, RouteID: "r1", Date: "2024-03-04", BusID: &bus}
			require.NoError(t, store.UpsertAttendance(ctx, second))
			assert.Equal(t, first.ID, second.ID)
			assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
			assert.False(t, second.Present)
			require.NotNil(t, second.BusID)
			assert.Equal(t, bus, *second.BusID)

			records, err := store.FindAttendance(ctx, "2024-03-04", "r1")
			require.NoError(t, err)
			var mine []models.TransportAttendance
			for _, r := range records {
				if r.StudentID == student {
					mine = append(mine, r)
				}
			}
			require.Len(t, mine, 1)
			assert.Equal(t, first.ID, mine[0].ID)
			assert.False(t, mine[0].Present)
		})
	}
}
