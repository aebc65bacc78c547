package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSigningKeyInfo(t *testing.T) {
	provider, err := NewProvider("identity_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	err = RegisterSigningKeyInfo(provider.MeterProvider(), "identity_test", "3f1c7c1e-kid", "RS256")
	require.NoError(t, err)

	output := scrape(t, provider)
	assertMetricLine(t, output, `identity_test_signing_key_info`, `alg="RS256".*kid="3f1c7c1e-kid"`, `1`)
}
