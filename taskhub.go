package taskhub

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/grpc"

	"github.com/petrijr/taskhub/internal/deadletter"
	"github.com/petrijr/taskhub/internal/sidecar"
	"github.com/petrijr/taskhub/pkg/api"
	"github.com/petrijr/taskhub/pkg/worker"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Worker       = worker.Worker
	WorkerConfig = worker.Config
	Client       = sidecar.Client

	Activity             = api.Activity
	ActivityContext      = api.ActivityContext
	Orchestrator         = api.Orchestrator
	OrchestrationContext = api.OrchestrationContext

	OrchestrationExecutor = api.OrchestrationExecutor
	ActivityExecutor      = api.ActivityExecutor
	HistoryEvent          = api.HistoryEvent
	OrchestratorAction    = api.OrchestratorAction
	FailureDetails        = api.FailureDetails
	ApplicationError      = api.ApplicationError
	ConnectionError       = api.ConnectionError

	RetryPolicy            = api.RetryPolicy
	DeliveryResult         = api.DeliveryResult
	DeliveryFailure        = api.DeliveryFailure
	DeliveryFailureHandler = api.DeliveryFailureHandler
	DeadLetter             = api.DeadLetter
	DeadLetterStore        = deadletter.Store
	DeadLetterFilter       = deadletter.Filter

	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common helpers and errors.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	NewApplicationError  = api.NewApplicationError

	ErrIllegalState        = api.ErrIllegalState
	ErrMalformedRequest    = api.ErrMalformedRequest
	ErrUnknownOrchestrator = api.ErrUnknownOrchestrator
	ErrUnknownActivity     = api.ErrUnknownActivity
	ErrDeadLetterNotFound  = deadletter.ErrNotFound
)

// DefaultSidecarAddress is used by Dial when addr is empty.
const DefaultSidecarAddress = sidecar.DefaultAddress

// Dial opens a client connection to the sidecar at addr with plaintext
// transport and OpenTelemetry instrumentation. Extra options are appended.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if addr == "" {
		addr = DefaultSidecarAddress
	}
	return sidecar.Dial(addr, opts...)
}

// NewClient wraps a connection in a sidecar protocol client.
func NewClient(cc grpc.ClientConnInterface) Client {
	return sidecar.NewClient(cc)
}

// NewWorker returns a worker with default settings.
func NewWorker(client Client) *Worker {
	return worker.New(client)
}

// NewWorkerWithConfig returns a worker using cfg.
func NewWorkerWithConfig(client Client, cfg WorkerConfig) *Worker {
	return worker.NewWithConfig(client, cfg)
}

// Dead-letter stores
// These wrap internal/deadletter so external callers never need to import
// internal packages.

// NewMemoryDeadLetterStore returns a non-durable dead-letter store.
func NewMemoryDeadLetterStore() DeadLetterStore {
	return deadletter.NewMemoryStore()
}

// NewSQLiteDeadLetterStore stores dead letters in a SQLite database.
func NewSQLiteDeadLetterStore(db *sql.DB) (DeadLetterStore, error) {
	return deadletter.NewSQLiteStore(db)
}

// NewPostgresDeadLetterStore stores dead letters in PostgreSQL.
func NewPostgresDeadLetterStore(db *sql.DB) (DeadLetterStore, error) {
	return deadletter.NewPostgresStore(db)
}

// NewRedisDeadLetterStore stores dead letters in Redis under prefix.
func NewRedisDeadLetterStore(client *redis.Client, prefix string) DeadLetterStore {
	return deadletter.NewRedisStore(client, prefix)
}

// NewMongoDeadLetterStore stores dead letters in a MongoDB collection.
func NewMongoDeadLetterStore(client *mongo.Client, dbName, collName string) DeadLetterStore {
	return deadletter.NewMongoStore(client, dbName, collName)
}

// OpenDeadLetterStore opens the store described by a DSN such as
// "sqlite://letters.db" or "redis://localhost:6379/0". The returned
// function closes the underlying connection.
func OpenDeadLetterStore(ctx context.Context, dsn string) (DeadLetterStore, func() error, error) {
	return deadletter.Open(ctx, dsn)
}

// NewDeadLetterRecorder returns a DeliveryFailureHandler that saves
// undeliverable completions to store.
func NewDeadLetterRecorder(store DeadLetterStore, logger *slog.Logger) DeliveryFailureHandler {
	return deadletter.NewRecorder(store, logger).Handle
}

// RedeliverDeadLetter sends a stored completion to the sidecar again and
// removes it from store on success.
func RedeliverDeadLetter(ctx context.Context, store DeadLetterStore, client Client, id string) error {
	return deadletter.Redeliver(ctx, store, client, id)
}
