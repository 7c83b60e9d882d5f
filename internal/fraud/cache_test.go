package fraud

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redispkg "github.com/richxcame/lead-intake/pkg/redis"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisResultCache, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	cache := NewRedisResultCache(&redispkg.Client{Client: db}, ttl)
	return cache, mock
}

func TestRedisResultCache_Miss(t *testing.T) {
	cache, mock := newTestCache(t, time.Minute)
	mock.ExpectGet(cacheKey("abc")).RedisNil()

	assessment, ok := cache.Get(context.Background(), "abc")

	assert.False(t, ok)
	assert.Nil(t, assessment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisResultCache_Hit(t *testing.T) {
	cache, mock := newTestCache(t, time.Minute)

	stored := &LeadAssessment{
		ID:           uuid.New(),
		ContactEmail: "jane.doe@webmail.co.za",
		Result: FraudDetectionResult{
			AutoApprove: true,
			FraudScore:  FraudScore{TotalScore: 0, RiskLevel: RiskLevelLow, Reasons: []string{}, Recommendations: []string{}},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	data, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectGet(cacheKey("abc")).SetVal(string(data))

	assessment, ok := cache.Get(context.Background(), "abc")

	require.True(t, ok)
	assert.Equal(t, stored.ID, assessment.ID)
	assert.Equal(t, stored.ContactEmail, assessment.ContactEmail)
	assert.True(t, assessment.Result.AutoApprove)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisResultCache_CorruptEntryIsMiss(t *testing.T) {
	cache, mock := newTestCache(t, time.Minute)
	mock.ExpectGet(cacheKey("abc")).SetVal("{not json")

	assessment, ok := cache.Get(context.Background(), "abc")

	assert.False(t, ok)
	assert.Nil(t, assessment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisResultCache_Set(t *testing.T) {
	ttl := 5 * time.Minute
	cache, mock := newTestCache(t, ttl)

	assessment := &LeadAssessment{ID: uuid.New(), ContactEmail: "jane.doe@webmail.co.za"}
	data, err := json.Marshal(assessment)
	require.NoError(t, err)

	mock.ExpectSet(cacheKey("abc"), string(data), ttl).SetVal("OK")

	cache.Set(context.Background(), "abc", assessment)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisResultCache_SetFailureIsSwallowed(t *testing.T) {
	cache, mock := newTestCache(t, time.Minute)

	assessment := &LeadAssessment{ID: uuid.New()}
	data, err := json.Marshal(assessment)
	require.NoError(t, err)

	mock.ExpectSet(cacheKey("abc"), string(data), time.Minute).SetErr(assertError{})

	// Must not panic or propagate.
	cache.Set(context.Background(), "abc", assessment)

	assert.NoError(t, mock.ExpectationsWereMet())
}

type assertError struct{}

func (assertError) Error() string { return "redis write failed" }
