package deadletter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite"
)

// Open returns the store described by dsn together with a function that
// releases its connection. Supported schemes:
//
//	memory://
//	sqlite://<path>          (sqlite://:memory: for a throwaway database)
//	postgres://... or postgresql://...
//	redis://... or rediss://...
//	mongodb://... or mongodb+srv://...   (database taken from the path, default "taskhub")
func Open(ctx context.Context, dsn string) (Store, func() error, error) {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return nil, nil, fmt.Errorf("dead letter dsn %q has no scheme", dsn)
	}

	switch scheme {
	case "memory":
		return NewMemoryStore(), func() error { return nil }, nil

	case "sqlite":
		db, err := sql.Open("sqlite", rest)
		if err != nil {
			return nil, nil, err
		}
		s, err := NewSQLiteStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil

	case "postgres", "postgresql":
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s, err := NewPostgresStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil

	case "redis", "rediss":
		opts, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return NewRedisStore(client, ""), client.Close, nil

	case "mongodb", "mongodb+srv":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
		}
		closeFn := func() error { return client.Disconnect(context.Background()) }
		return NewMongoStore(client, mongoDatabase(rest), ""), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unsupported dead letter dsn scheme %q", scheme)
	}
}

// mongoDatabase extracts the database name from the part of a MongoDB URI
// after the scheme. Host lists are not valid URL hosts, so net/url is not
// used here.
func mongoDatabase(rest string) string {
	_, path, ok := strings.Cut(rest, "/")
	if !ok {
		return ""
	}
	db, _, _ := strings.Cut(path, "?")
	return db
}
