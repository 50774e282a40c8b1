// Package cache stores encoded batches so repeated runs with the same
// configuration skip rendering.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for several feeds or machines
//   - [MongoCache]: a shared MongoDB collection with a TTL index
//   - [NullCache]: caching disabled
//
// # Keys
//
// A [Keyer] derives keys from the catalog fingerprint, the options that
// affect pixel output ([BatchKeyOpts]) and the batch index. Two runs that
// would draw identical batches map to the same key, and [ScopedKeyer]
// separates datasets sharing one backend:
//
//	key := keyer.BatchKey(cat.Fingerprint(), opts.BatchKeyOpts(), 3)
//	data, hit, err := c.Get(ctx, key)
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// TTLBatch is how long an encoded batch stays cached.
const TTLBatch = 7 * 24 * time.Hour

// BatchKeyOpts are the options that change a batch's content.
type BatchKeyOpts struct {
	StampSize    float64  `json:"stamp_size"`
	PSFStampSize int      `json:"psf_stamp_size"`
	MaxNumber    int      `json:"max_number"`
	BatchSize    int      `json:"batch_size"`
	Bands        []string `json:"bands"`
	AddNoise     bool     `json:"add_noise"`
	Seed         uint64   `json:"seed"`
	Survey       string   `json:"survey"`
	SeeingJitter float64  `json:"seeing_jitter"`
	ShiftMaxFrac float64  `json:"shift_max_frac"`
	ShiftMinFrac float64  `json:"shift_min_frac"`
	Radial       bool     `json:"radial"`
	CutBand      string   `json:"cut_band"`
	MagCut       float64  `json:"mag_cut"`
	IncludeMax   bool     `json:"include_max"`
	MinSNR       float64  `json:"min_snr"`
}

// NullCache never stores anything. It backs --no-cache.
type NullCache struct{}

// NewNullCache returns a NullCache.
func NewNullCache() Cache { return &NullCache{} }

// Get always misses.
func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (*NullCache) Delete(context.Context, string) error                     { return nil }
func (*NullCache) Close() error                                             { return nil }
