package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"fieldbridge/pkg/models"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	store := NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	t.Run("Record and Recent", func(t *testing.T) {
		first := models.AuditEntry{
			ExecutionID: uuid.New().String(),
			WorkflowID:  "clinical_summary",
			Connector:   "voice_ai",
			Trigger:     "CTRL+ALT+V",
			UserID:      "dr-jones",
			Status:      "success",
			ElapsedMs:   120,
			Attempts:    1,
			OccurredAt:  time.Now().UTC().Add(-time.Minute),
		}
		second := models.AuditEntry{
			ExecutionID: uuid.New().String(),
			WorkflowID:  "clinical_summary",
			Connector:   "voice_ai",
			Trigger:     "CTRL+ALT+V",
			Status:      "error",
			ErrorCode:   "ConnectorError",
			ElapsedMs:   3050,
			Attempts:    3,
			OccurredAt:  time.Now().UTC(),
		}

		assert.NoError(t, store.Record(ctx, first))
		assert.NoError(t, store.Record(ctx, second))

		entries, err := store.Recent(ctx, 10)
		assert.NoError(t, err)
		assert.Len(t, entries, 2)
		assert.Equal(t, second.ExecutionID, entries[0].ExecutionID)
		assert.Equal(t, "ConnectorError", entries[0].ErrorCode)
		assert.Equal(t, 3, entries[0].Attempts)
		assert.Equal(t, first.ExecutionID, entries[1].ExecutionID)
		assert.Equal(t, "dr-jones", entries[1].UserID)
	})
}
