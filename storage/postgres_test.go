package storage_test

import (
	"context"
	"flag"
	"os"
	"testing"
	"time"

	"github.com/PRobi23/doodlekong/migrations"
	"github.com/PRobi23/doodlekong/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var repo *storage.PostgresRepo

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(0)
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine3.22",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testusername"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		panic(err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	if err := migrations.Migrate(connString); err != nil {
		panic(err)
	}

	repo, err = storage.NewPostgresRepo(ctx, connString)
	if err != nil {
		panic(err)
	}

	code := m.Run()

	repo.Close()
	postgresContainer.Terminate(ctx)
	os.Exit(code)
}

func TestPostgresRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("CountWords_Empty", func(t *testing.T) {
		count, err := repo.CountWords(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("Generate_EmptyTable", func(t *testing.T) {
		assert.Empty(t, repo.Generate(3))
	})

	t.Run("SeedWords", func(t *testing.T) {
		added, err := repo.SeedWords(ctx, []string{"apple", "banana", "cherry", "kiwi"})
		require.NoError(t, err)
		assert.EqualValues(t, 4, added)

		count, err := repo.CountWords(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, count)
	})

	t.Run("SeedWords_Idempotent", func(t *testing.T) {
		added, err := repo.SeedWords(ctx, []string{"apple", "kiwi", "mango"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, added)

		count, err := repo.CountWords(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, count)
	})

	t.Run("Generate", func(t *testing.T) {
		words := repo.Generate(3)
		assert.Len(t, words, 3)

		seen := map[string]bool{}
		for _, w := range words {
			assert.Contains(t, []string{"apple", "banana", "cherry", "kiwi", "mango"}, w)
			assert.False(t, seen[w], "duplicate word %q", w)
			seen[w] = true
		}
	})

	t.Run("Generate_MoreThanStored", func(t *testing.T) {
		assert.Len(t, repo.Generate(20), 5)
	})
}
