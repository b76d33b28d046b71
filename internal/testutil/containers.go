package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/journalforest/forest-backend/internal/db"
	"github.com/journalforest/forest-backend/internal/db/migrations"
	"github.com/journalforest/forest-backend/internal/storage"
)

// TestBucket is created in MinIO for every test environment.
const TestBucket = "forest-test"

const (
	minioUser     = "minioadmin"
	minioPassword = "minioadmin"
)

// journalTables lists every table CleanDB empties.
var journalTables = []string{
	"prompts",
	"threads",
	"streak_days",
	"trees",
	"entry_analysis",
	"journal_entries",
	"sessions",
}

// TestEnvironment is a migrated PostgreSQL database plus a MinIO bucket.
type TestEnvironment struct {
	DB      *db.DB
	Storage *storage.S3Storage
	Ctx     context.Context
}

// SetupTestEnvironment starts PostgreSQL and MinIO in parallel, applies the
// migrations and creates the test bucket. Everything stops when the test ends.
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	ctx := context.Background()
	env := &TestEnvironment{Ctx: ctx}

	var pgDSN, minioEndpoint string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		pgDSN, err = startPostgres(gctx, t)
		return err
	})
	g.Go(func() (err error) {
		minioEndpoint, err = startMinio(gctx, t)
		return err
	})
	if err := g.Wait(); err != nil {
		t.Fatalf("failed to start test containers: %v", err)
	}

	database, err := db.Connect(pgDSN)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := migrations.Up(database.Conn()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	env.DB = database

	env.Storage, err = connectBucket(ctx, minioEndpoint)
	if err != nil {
		t.Fatalf("failed to prepare bucket: %v", err)
	}
	return env
}

func startPostgres(ctx context.Context, t *testing.T) (string, error) {
	c, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("forest_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if c != nil {
		t.Cleanup(func() { terminate(t, "postgres", c) })
	}
	if err != nil {
		return "", fmt.Errorf("postgres: %w", err)
	}
	return c.ConnectionString(ctx, "sslmode=disable")
}

func startMinio(ctx context.Context, t *testing.T) (string, error) {
	c, err := minio.Run(ctx,
		"minio/minio:latest",
		minio.WithUsername(minioUser),
		minio.WithPassword(minioPassword),
	)
	if c != nil {
		t.Cleanup(func() { terminate(t, "minio", c) })
	}
	if err != nil {
		return "", fmt.Errorf("minio: %w", err)
	}
	return c.ConnectionString(ctx)
}

func terminate(t *testing.T, name string, c testcontainers.Container) {
	if err := c.Terminate(context.Background()); err != nil {
		t.Logf("warning: failed to terminate %s container: %v", name, err)
	}
}

// connectBucket creates TestBucket, retrying while MinIO finishes starting.
func connectBucket(ctx context.Context, endpoint string) (*storage.S3Storage, error) {
	client, err := miniogo.New(endpoint, &miniogo.Options{
		Creds: credentials.NewStaticV4(minioUser, minioPassword, ""),
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for range 10 {
		exists, err := client.BucketExists(ctx, TestBucket)
		if err == nil && !exists {
			err = client.MakeBucket(ctx, TestBucket, miniogo.MakeBucketOptions{})
		}
		if err == nil {
			return storage.NewS3Storage(storage.S3Config{
				Endpoint:        endpoint,
				AccessKeyID:     minioUser,
				SecretAccessKey: minioPassword,
				BucketName:      TestBucket,
			})
		}
		lastErr = err
		time.Sleep(500 * time.Millisecond)
	}
	return nil, fmt.Errorf("minio not ready: %w", lastErr)
}

// CleanDB empties every journal table. Call it at the start of each test
// that shares an environment.
func (e *TestEnvironment) CleanDB(t *testing.T) {
	t.Helper()
	query := "TRUNCATE TABLE " + strings.Join(journalTables, ", ") + " RESTART IDENTITY CASCADE"
	if _, err := e.DB.Exec(e.Ctx, query); err != nil {
		t.Fatalf("failed to truncate journal tables: %v", err)
	}
}

// SemanticKeys lists the object keys stored under a session's semantic prefix.
func (e *TestEnvironment) SemanticKeys(t *testing.T, sessionID string) []string {
	t.Helper()
	keys, err := e.Storage.List(e.Ctx, "semantic/"+sessionID+"/")
	if err != nil {
		t.Fatalf("failed to list semantic records: %v", err)
	}
	return keys
}
