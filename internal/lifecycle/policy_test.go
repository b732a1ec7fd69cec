package lifecycle

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/relaykeeper/internal/models"
	"github.com/stretchr/testify/assert"
)

func keyExpiring(at time.Time) *models.AccessKey {
	return &models.AccessKey{ExpiresAt: &at, DataLimitBytes: 1 << 30}
}

func TestIsExpired_Boundary(t *testing.T) {
	now := time.Now()

	assert.True(t, IsExpired(keyExpiring(now.Add(-time.Second)), now))
	assert.False(t, IsExpired(keyExpiring(now.Add(time.Second)), now))
	// expiry exactly at now is not yet past
	assert.False(t, IsExpired(keyExpiring(now), now))
}

func TestIsExpired_NoExpiry(t *testing.T) {
	key := &models.AccessKey{DataLimitBytes: 1 << 30}
	assert.False(t, IsExpired(key, time.Now()))
}

func TestIsQuotaExhausted_Boundary(t *testing.T) {
	key := &models.AccessKey{DataLimitBytes: 1000, UsedBytes: 1000}
	assert.True(t, IsQuotaExhausted(key))

	key.UsedBytes = 999
	assert.False(t, IsQuotaExhausted(key))
}

func TestShouldRevoke(t *testing.T) {
	now := time.Now()

	expired := keyExpiring(now.Add(-time.Second))
	assert.True(t, ShouldRevoke(expired, now))

	exhausted := &models.AccessKey{DataLimitBytes: 10, UsedBytes: 10}
	assert.True(t, ShouldRevoke(exhausted, now))

	healthy := keyExpiring(now.Add(time.Hour))
	healthy.UsedBytes = 5
	healthy.DataLimitBytes = 10
	assert.False(t, ShouldRevoke(healthy, now))
}
