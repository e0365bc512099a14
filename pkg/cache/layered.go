package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache composes a fast local cache in front of a remote one.
// Reads hit the local layer first and backfill it from the remote
// layer on a miss. Writes go through to both layers.
type LayeredCache struct {
	local  Service
	remote Service
}

// NewLayeredCache builds a two-layer cache.
func NewLayeredCache(local, remote Service) *LayeredCache {
	return &LayeredCache{local: local, remote: remote}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if err := lc.remote.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	// Local layer is best effort.
	_ = lc.local.Set(ctx, key, value, expiration)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string) (string, error) {
	if value, err := lc.local.Get(ctx, key); err == nil {
		return value, nil
	}

	value, err := lc.remote.Get(ctx, key)
	if err != nil {
		return "", err
	}

	_ = lc.local.Set(ctx, key, value, time.Minute)
	return value, nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	localErr := lc.local.Delete(ctx, keys...)
	remoteErr := lc.remote.Delete(ctx, keys...)
	return errors.Join(localErr, remoteErr)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, err := lc.local.Exists(ctx, keys...); err == nil && ok {
		return true, nil
	}
	return lc.remote.Exists(ctx, keys...)
}

// Close closes both layers.
func (lc *LayeredCache) Close() error {
	return errors.Join(lc.local.Close(), lc.remote.Close())
}
