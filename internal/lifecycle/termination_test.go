package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agent-portal-api/internal/models"
)

func TestCancelPolicyDefaultsToFirstStatus(t *testing.T) {
	policy := CancelPolicy{}
	process := sampleProcess()

	assert.True(t, policy.Allows(process, &models.Application{CurrentStatusID: "new"}))
	assert.False(t, policy.Allows(process, &models.Application{CurrentStatusID: "docs-pending"}))
	assert.False(t, policy.Allows(process, &models.Application{CurrentStatusID: "new", IsRejected: true}))
}

func TestCancelPolicyConfiguredStatuses(t *testing.T) {
	policy := CancelPolicy{CancellableStatuses: []string{"docs-pending", "offer-pending"}}
	process := sampleProcess()

	assert.True(t, policy.Allows(process, &models.Application{CurrentStatusID: "offer-pending"}))
	assert.False(t, policy.Allows(process, &models.Application{CurrentStatusID: "new"}))
}

func TestNormalizeReason(t *testing.T) {
	reason, err := NormalizeReason("  duplicate application ")
	require.NoError(t, err)
	assert.Equal(t, "duplicate application", reason)

	_, err = NormalizeReason("   ")
	assert.Error(t, err)
}
