package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	reportKeyPrefix = "governance:report:"
	latestReportKey = "governance:report:latest"
)

// ErrReportNotCached indicates no audit has been stored yet.
var ErrReportNotCached = errors.New("rbac: governance report not cached")

// AuditRecord is a governance report tagged with the policy revision it was
// computed for.
type AuditRecord struct {
	RunID         string    `json:"run_id"`
	PolicyVersion string    `json:"policy_version"`
	Fingerprint   string    `json:"fingerprint"`
	GeneratedAt   time.Time `json:"generated_at"`
	Report        Report    `json:"report"`
}

// ReportCache stores audit records in Redis keyed by policy fingerprint. A nil
// cache or client turns every call into a miss.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache instantiates the cache helper.
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl}
}

// Get loads the record computed for fingerprint.
func (c *ReportCache) Get(ctx context.Context, fingerprint string) (AuditRecord, error) {
	return c.load(ctx, reportKeyPrefix+fingerprint)
}

// Latest loads the most recently stored record regardless of fingerprint.
func (c *ReportCache) Latest(ctx context.Context) (AuditRecord, error) {
	return c.load(ctx, latestReportKey)
}

// Store saves rec under its fingerprint and as the latest record.
func (c *ReportCache) Store(ctx context.Context, rec AuditRecord) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, reportKeyPrefix+rec.Fingerprint, raw, c.ttl)
	pipe.Set(ctx, latestReportKey, raw, 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *ReportCache) load(ctx context.Context, key string) (AuditRecord, error) {
	if c == nil || c.client == nil {
		return AuditRecord{}, ErrReportNotCached
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return AuditRecord{}, ErrReportNotCached
	}
	if err != nil {
		return AuditRecord{}, err
	}
	var rec AuditRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return AuditRecord{}, err
	}
	return rec, nil
}
