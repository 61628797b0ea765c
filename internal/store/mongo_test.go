package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/climafeed/climafeed/internal/pipeline"
)

func TestMongoStore_EmptyBatchDoesNotConnect(t *testing.T) {
	// The URI points nowhere; an empty batch must return before dialing.
	s := NewMongoStore(MongoConfig{
		URI:        "mongodb://127.0.0.1:1",
		Database:   "clima_data",
		Collection: "clima_data",
		Timeout:    50 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result, err := s.Upsert(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, pipeline.UpsertResult{}, result)
}

func TestMongoStore_ConnectFailureIsRetryable(t *testing.T) {
	s := NewMongoStore(MongoConfig{
		URI:        "mongodb://127.0.0.1:1",
		Database:   "clima_data",
		Collection: "clima_data",
		Timeout:    50 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := s.Upsert(ctx, []pipeline.CuratedRecord{{
		Time:          time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Temperature2M: 19.4,
		LocationName:  "San José, Costa Rica",
	}})
	require.Error(t, err)

	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable())
}

func TestWriteModels_ReplaceWithUpsertKeyedByLocationAndTime(t *testing.T) {
	ts := time.Date(2026, 1, 15, 17, 0, 0, 0, time.UTC)
	records := []pipeline.CuratedRecord{{
		Time:          ts,
		Temperature2M: 24.1,
		LocationName:  "San José, Costa Rica",
	}}

	models := writeModels(records)
	require.Len(t, models, 1)

	replace, ok := models[0].(*mongo.ReplaceOneModel)
	require.True(t, ok)

	assert.Equal(t, bson.D{
		{Key: "location_name", Value: "San José, Costa Rica"},
		{Key: "time", Value: ts},
	}, replace.Filter)
	require.NotNil(t, replace.Upsert)
	assert.True(t, *replace.Upsert)
	assert.Equal(t, records[0], replace.Replacement)
}

func TestHandleBulkError_PartialSuccessReturnsLandedCounts(t *testing.T) {
	s := NewMongoStore(MongoConfig{Logger: zerolog.Nop()})

	bwe := mongo.BulkWriteException{
		WriteErrors: []mongo.BulkWriteError{
			{WriteError: mongo.WriteError{Index: 7, Code: 11000, Message: "duplicate key"}},
			{WriteError: mongo.WriteError{Index: 12, Code: 121, Message: "validation failed"}},
		},
	}
	res := &mongo.BulkWriteResult{
		MatchedCount:  10,
		ModifiedCount: 2,
		UpsertedCount: 12,
	}

	result, err := s.handleBulkError(bwe, res, 24)
	require.NoError(t, err, "partial bulk failures must not fail the run")
	assert.Equal(t, pipeline.UpsertResult{Matched: 10, Modified: 2, Upserted: 12}, result)
}

func TestHandleBulkError_NoResultIsRetryable(t *testing.T) {
	s := NewMongoStore(MongoConfig{Logger: zerolog.Nop()})

	bwe := mongo.BulkWriteException{
		WriteErrors: []mongo.BulkWriteError{
			{WriteError: mongo.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}},
		},
	}

	_, err := s.handleBulkError(bwe, nil, 24)
	require.Error(t, err)

	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable())
}

func TestHandleBulkError_OtherErrorsAreRetryable(t *testing.T) {
	s := NewMongoStore(MongoConfig{Logger: zerolog.Nop()})

	inner := errors.New("connection reset by peer")
	_, err := s.handleBulkError(inner, nil, 24)
	require.Error(t, err)

	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable())
	assert.ErrorIs(t, err, inner)
}

func TestToResult(t *testing.T) {
	result := toResult(&mongo.BulkWriteResult{
		MatchedCount:  24,
		ModifiedCount: 3,
		UpsertedCount: 1,
	})
	assert.Equal(t, pipeline.UpsertResult{Matched: 24, Modified: 3, Upserted: 1}, result)
}

func TestStoreError(t *testing.T) {
	inner := errors.New("connection refused")
	err := &StoreError{Op: "connect", Err: inner}

	assert.Equal(t, "store connect: connection refused", err.Error())
	assert.ErrorIs(t, err, inner)
}
