package artifact

import (
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

func TestArtifactRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	issuer := NewIssuer(priv, "keygate")
	verifier := NewVerifier(pub)

	key := domain.GenerateLicenseKey()
	boundAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	signed, err := issuer.Issue(key, "fp-a", "desktop-studio", "pro", boundAt)
	require.NoError(t, err)

	t.Run("verifies on the bound device", func(t *testing.T) {
		claim, err := verifier.Verify(signed, "fp-a")
		require.NoError(t, err)
		assert.Equal(t, key, claim.Key)
		assert.Equal(t, "desktop-studio", claim.Product)
		assert.Equal(t, "pro", claim.PlanType)
		assert.Equal(t, boundAt, claim.BoundAt)
	})

	t.Run("rejects a foreign device", func(t *testing.T) {
		_, err := verifier.Verify(signed, "fp-b")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeDeviceMismatch))
	})

	t.Run("rejects a tampered artifact", func(t *testing.T) {
		parts := strings.Split(signed, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1] + "x." + parts[2]
		_, err := verifier.Verify(tampered, "fp-a")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	})

	t.Run("rejects an artifact signed by another key", func(t *testing.T) {
		_, otherPriv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		forged, err := NewIssuer(otherPriv, "keygate").Issue(key, "fp-a", "desktop-studio", "pro", boundAt)
		require.NoError(t, err)
		_, err = verifier.Verify(forged, "fp-a")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := verifier.Verify("not-a-token", "fp-a")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	})
}
