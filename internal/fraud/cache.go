package fraud

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/lead-intake/pkg/logger"
	"github.com/richxcame/lead-intake/pkg/redis"
)

// Fingerprint derives a stable cache key from the fields that determine a
// lead's score. Two leads with identical scoring inputs share a fingerprint.
func Fingerprint(lead *Lead) string {
	h := sha256.New()
	h.Write([]byte(lead.ContactEmail))
	h.Write([]byte{0})
	h.Write([]byte(lead.ContactPhone))
	h.Write([]byte{0})
	h.Write([]byte(lead.Address))
	h.Write([]byte{0})
	h.Write([]byte(lead.LocationSuburb))
	h.Write([]byte{0})
	h.Write([]byte(lead.LocationCity))
	h.Write([]byte{0})
	h.Write([]byte(lead.Title))
	h.Write([]byte{0})
	h.Write([]byte(lead.Description))
	h.Write([]byte{0})
	h.Write([]byte(lead.Urgency))
	return hex.EncodeToString(h.Sum(nil))
}

// RedisResultCache stores assessments in Redis with a TTL. Cache failures are
// logged and treated as misses so Redis outages never block scoring.
type RedisResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisResultCache creates an assessment cache backed by Redis
func NewRedisResultCache(client *redis.Client, ttl time.Duration) *RedisResultCache {
	return &RedisResultCache{client: client, ttl: ttl}
}

func cacheKey(fingerprint string) string {
	return "fraud:assessment:" + fingerprint
}

// Get returns the cached assessment for a fingerprint, if present
func (c *RedisResultCache) Get(ctx context.Context, fingerprint string) (*LeadAssessment, bool) {
	raw, err := c.client.GetString(ctx, cacheKey(fingerprint))
	if err != nil || raw == "" {
		return nil, false
	}

	var assessment LeadAssessment
	if err := json.Unmarshal([]byte(raw), &assessment); err != nil {
		logger.Warn("failed to decode cached assessment", zap.Error(err))
		return nil, false
	}

	return &assessment, true
}

// Set stores an assessment under its fingerprint
func (c *RedisResultCache) Set(ctx context.Context, fingerprint string, assessment *LeadAssessment) {
	data, err := json.Marshal(assessment)
	if err != nil {
		logger.Warn("failed to encode assessment for cache", zap.Error(err))
		return
	}

	if err := c.client.SetWithExpiration(ctx, cacheKey(fingerprint), string(data), c.ttl); err != nil {
		logger.Warn("failed to cache assessment", zap.Error(err))
	}
}

// noopCache is used when Redis is not configured
type noopCache struct{}

func (noopCache) Get(ctx context.Context, fingerprint string) (*LeadAssessment, bool) {
	return nil, false
}

func (noopCache) Set(ctx context.Context, fingerprint string, assessment *LeadAssessment) {}
