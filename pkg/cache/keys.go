package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
)

// Keyer generates cache keys.
type Keyer interface {
	// BatchKey returns the key of batch index drawn from the catalog with
	// fingerprint catalogHash.
	BatchKey(catalogHash string, opts BatchKeyOpts, index int64) string
}

// DefaultKeyer generates keys of the form "batch:<digest>:<index>". The
// digest covers the catalog fingerprint and opts, so every batch of one
// run shares it and a key names its batch index in the clear.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// BatchKey implements [Keyer].
func (DefaultKeyer) BatchKey(catalogHash string, opts BatchKeyOpts, index int64) string {
	return "batch:" + runDigest(catalogHash, opts) + ":" + strconv.FormatInt(index, 10)
}

// BatchIndex returns the batch index named by a key from [DefaultKeyer],
// with or without a scope prefix.
func BatchIndex(key string) (int64, bool) {
	i := strings.LastIndexByte(key, ':')
	if i < 0 || !strings.Contains(key[:i], "batch:") {
		return 0, false
	}
	index, err := strconv.ParseInt(key[i+1:], 10, 64)
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// ScopedKeyer prefixes another Keyer's keys so several datasets, e.g.
// training and validation feeds, can share one backend:
//
//	train := NewScopedKeyer(NewDefaultKeyer(), "train:")
//	valid := NewScopedKeyer(NewDefaultKeyer(), "valid:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns a keyer prepending prefix to inner's keys. A nil
// inner uses [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// BatchKey implements [Keyer].
func (k *ScopedKeyer) BatchKey(catalogHash string, opts BatchKeyOpts, index int64) string {
	return k.prefix + k.inner.BatchKey(catalogHash, opts, index)
}

// runDigest returns 32 hex characters of the SHA-256 of the JSON encoding
// of the catalog fingerprint and opts.
func runDigest(catalogHash string, opts BatchKeyOpts) string {
	data, _ := json.Marshal(struct {
		Catalog string       `json:"catalog"`
		Opts    BatchKeyOpts `json:"opts"`
	}{catalogHash, opts})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
