// Package store persists curated weather records with an idempotent,
// replace-or-insert contract keyed by (location_name, time).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/climafeed/climafeed/internal/pipeline"
)

// Index names, stable across runs so creation stays idempotent.
const (
	indexLocationTime = "uq_location_time"
	indexDate         = "idx_date"
	indexCityInput    = "idx_city_input"
)

// StoreError represents a connection or write failure against the document
// store. It is retryable at the orchestrator level.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Retryable marks store failures as transient.
func (e *StoreError) Retryable() bool { return true }

// MongoConfig holds connection parameters for the Mongo-backed store.
type MongoConfig struct {
	// URI is the connection string, including any TLS options (required).
	URI string

	// Database and Collection name the target collection (required).
	Database   string
	Collection string

	// Timeout bounds connect, server selection and socket reads.
	// Default: 8 seconds.
	Timeout time.Duration

	// Logger for store operations.
	Logger zerolog.Logger
}

// MongoStore implements pipeline.Store on a MongoDB collection. The
// connection is scoped to a single Upsert call: opened lazily, released on
// return, so an empty batch never touches the network.
type MongoStore struct {
	cfg    MongoConfig
	logger zerolog.Logger
}

// NewMongoStore creates a Mongo-backed store.
func NewMongoStore(cfg MongoConfig) *MongoStore {
	if cfg.Timeout == 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &MongoStore{cfg: cfg, logger: cfg.Logger}
}

// Upsert writes the batch as one unordered bulk of replace-or-insert
// operations keyed by (location_name, time). A failure on one record does
// not block the others; the returned counts reflect actual outcomes. An
// empty batch returns a zero result without connecting.
func (s *MongoStore) Upsert(ctx context.Context, records []pipeline.CuratedRecord) (pipeline.UpsertResult, error) {
	if len(records) == 0 {
		return pipeline.UpsertResult{}, nil
	}

	client, err := s.connect(ctx)
	if err != nil {
		return pipeline.UpsertResult{}, err
	}
	defer func() {
		if dcErr := client.Disconnect(context.WithoutCancel(ctx)); dcErr != nil {
			s.logger.Warn().Err(dcErr).Msg("mongo disconnect failed")
		}
	}()

	col := client.Database(s.cfg.Database).Collection(s.cfg.Collection)

	if err := s.ensureIndexes(ctx, col); err != nil {
		return pipeline.UpsertResult{}, &StoreError{Op: "ensure indexes", Err: err}
	}

	res, err := col.BulkWrite(ctx, writeModels(records), options.BulkWrite().SetOrdered(false))
	if err != nil {
		return s.handleBulkError(err, res, len(records))
	}

	return toResult(res), nil
}

// handleBulkError classifies a bulk write failure. A BulkWriteException with
// a result means the unordered bulk still applied the remaining operations;
// the landed counts are returned and the per-write errors are logged as one
// aggregated warning. Anything else is a retryable StoreError.
func (s *MongoStore) handleBulkError(err error, res *mongo.BulkWriteResult, requested int) (pipeline.UpsertResult, error) {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || res == nil {
		return pipeline.UpsertResult{}, &StoreError{Op: "bulk write", Err: err}
	}

	var merr *multierror.Error
	for _, we := range bwe.WriteErrors {
		merr = multierror.Append(merr, fmt.Errorf("index %d: %s", we.Index, we.Message))
	}
	s.logger.Warn().
		Err(merr.ErrorOrNil()).
		Int("failed", len(bwe.WriteErrors)).
		Int("requested", requested).
		Msg("partial bulk upsert")

	return toResult(res), nil
}

func (s *MongoStore) connect(ctx context.Context) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(s.cfg.URI).
		SetConnectTimeout(s.cfg.Timeout).
		SetServerSelectionTimeout(s.cfg.Timeout).
		SetSocketTimeout(s.cfg.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, &StoreError{Op: "connect", Err: err}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx)) //nolint:errcheck // best effort cleanup
		return nil, &StoreError{Op: "ping", Err: err}
	}

	return client, nil
}

// ensureIndexes creates the uniqueness constraint that enforces idempotency
// plus the two secondary lookup indexes. Safe to call on every run.
func (s *MongoStore) ensureIndexes(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "location_name", Value: 1},
				{Key: "time", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName(indexLocationTime),
		},
		{
			Keys:    bson.D{{Key: "date", Value: 1}},
			Options: options.Index().SetName(indexDate),
		},
		{
			Keys:    bson.D{{Key: "city_input", Value: 1}},
			Options: options.Index().SetName(indexCityInput),
		},
	})
	return err
}

// writeModels builds one replace-with-upsert per record. Replacement is a
// full overwrite, not a merge: last write wins, no history retained.
func writeModels(records []pipeline.CuratedRecord) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(records))
	for _, r := range records {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{
				{Key: "location_name", Value: r.LocationName},
				{Key: "time", Value: r.Time},
			}).
			SetReplacement(r).
			SetUpsert(true))
	}
	return models
}

func toResult(res *mongo.BulkWriteResult) pipeline.UpsertResult {
	return pipeline.UpsertResult{
		Matched:  res.MatchedCount,
		Modified: res.ModifiedCount,
		Upserted: res.UpsertedCount,
	}
}
