package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"qtumor/internal/jobs"
)

const redisKeyPrefix = "qtumor:job:"

// Redis keeps handles as JSON values with a TTL so that several API
// processes can poll jobs submitted by each other.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis wraps a client. A zero ttl keeps handles until deleted.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (r *Redis) Put(ctx context.Context, h jobs.Handle) error {
	rec := jobs.Record{Handle: h, Status: jobs.StatusPending, UpdatedAt: time.Now().UTC()}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, redisKey(h.ID), payload, r.ttl).Err()
}

func (r *Redis) get(ctx context.Context, id string) (jobs.Record, bool, error) {
	raw, err := r.rdb.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return jobs.Record{}, false, nil
	}
	if err != nil {
		return jobs.Record{}, false, err
	}
	var rec jobs.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return jobs.Record{}, false, err
	}
	return rec, true, nil
}

func (r *Redis) Get(ctx context.Context, id string) (jobs.Handle, bool, error) {
	rec, ok, err := r.get(ctx, id)
	return rec.Handle, ok, err
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	n, err := r.rdb.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return jobs.ErrHandleNotFound
	}
	return nil
}

// RecordResult updates the stored record in place, keeping its TTL.
func (r *Redis) RecordResult(ctx context.Context, id string, status jobs.Status, result json.RawMessage) error {
	rec, ok, err := r.get(ctx, id)
	if err != nil || !ok {
		return err
	}
	rec.Status = status
	rec.Result = result
	rec.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	err = r.rdb.SetArgs(ctx, redisKey(id), payload, redis.SetArgs{KeepTTL: true, Mode: "XX"}).Err()
	if errors.Is(err, redis.Nil) {
		// Expired or deleted since the read.
		return nil
	}
	return err
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
