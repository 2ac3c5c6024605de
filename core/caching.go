package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
)

// currentCacheVersion defines the version of the cached fit payload.
const currentCacheVersion = 1

// fingerprintInput is everything that determines a fit. Workers only change
// scheduling, so it is left out.
type fingerprintInput struct {
	Version       int              `json:"version"`
	Kind          schema.ModelKind `json:"kind"`
	NChangepoints int              `json:"n_changepoints"`
	Draws         int              `json:"draws"`
	Tune          int              `json:"tune"`
	Chains        int              `json:"chains"`
	Seed          uint64           `json:"seed"`
	Dataset       *schema.Dataset  `json:"dataset"`
}

// Fingerprint returns the cache key of a fit of kind with m change points
// over data.
func Fingerprint(data *schema.Dataset, kind schema.ModelKind, m int, opts schema.SampleOptions) (string, error) {
	h := sha256.New()
	err := json.NewEncoder(h).Encode(fingerprintInput{
		Version:       currentCacheVersion,
		Kind:          kind,
		NChangepoints: m,
		Draws:         opts.Draws,
		Tune:          opts.Tune,
		Chains:        opts.Chains,
		Seed:          opts.Seed,
		Dataset:       data,
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// checkCacheHit returns the cached fit for key, or nil on any miss.
func checkCacheHit(store contract.CacheStore, key string) *schema.FitResult {
	if store == nil {
		return nil
	}
	data, version, _, err := store.Get(key)
	if err != nil || version != currentCacheVersion {
		return nil
	}
	var fit schema.FitResult
	if err := contract.DecodePayload(data, &fit); err != nil || fit.Posterior == nil {
		return nil
	}
	return &fit
}

// storeFit caches fit under key. Failures only cost a recomputation later.
func storeFit(store contract.CacheStore, key string, fit *schema.FitResult) error {
	if store == nil {
		return nil
	}
	data, err := contract.EncodePayload(fit)
	if err != nil {
		return err
	}
	return store.Set(key, data, currentCacheVersion, time.Now().Unix())
}
