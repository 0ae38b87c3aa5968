// Package artifact issues and verifies the signed license file the desktop
// application stores locally. Verification is fully offline: the verifier
// needs only the artifact bytes, the embedded public key, and the current
// device fingerprint.
package artifact

import (
	"crypto/ed25519"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// Claims is the signed content of a license artifact.
type Claims struct {
	Fingerprint string `json:"fingerprint"`
	Product     string `json:"product"`
	PlanType    string `json:"plan_type"`
	BoundAt     int64  `json:"bound_at"`
	jwt.RegisteredClaims
}

// Claim is the verified payload returned to the calling application. Only
// what the application needs to trust; the key itself stays in the subject.
type Claim struct {
	Key      domain.LicenseKey
	Product  string
	PlanType string
	BoundAt  time.Time
}

// Issuer signs license artifacts with the service's Ed25519 private key.
type Issuer struct {
	signingKey ed25519.PrivateKey
	issuer     string
}

func NewIssuer(signingKey ed25519.PrivateKey, issuer string) *Issuer {
	return &Issuer{signingKey: signingKey, issuer: issuer}
}

// Issue produces the signed artifact binding key, device, and plan. Artifacts
// carry no expiry: a bound license works offline indefinitely until the local
// file is replaced or invalidated.
func (i *Issuer) Issue(key domain.LicenseKey, fingerprint, product, planType string, boundAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, Claims{
		Fingerprint: fingerprint,
		Product:     product,
		PlanType:    planType,
		BoundAt:     boundAt.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  string(key),
			Issuer:   i.issuer,
			IssuedAt: jwt.NewNumericDate(boundAt),
		},
	})
	return token.SignedString(i.signingKey)
}

// Verifier checks artifacts on the device side. It holds only the public key
// and never touches the network.
type Verifier struct {
	publicKey ed25519.PublicKey
}

func NewVerifier(publicKey ed25519.PublicKey) *Verifier {
	return &Verifier{publicKey: publicKey}
}

// Verify parses the artifact, checks its signature, and compares the embedded
// fingerprint against the device's. Tampering surfaces as INVALID_SIGNATURE,
// a copied file on foreign hardware as DEVICE_MISMATCH.
func (v *Verifier) Verify(artifact, currentFingerprint string) (*Claim, error) {
	parsed, err := jwt.ParseWithClaims(artifact, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.publicKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidSignature, "license file is corrupted or has been modified")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidSignature, "license file is corrupted or has been modified")
	}
	if claims.Fingerprint != currentFingerprint {
		return nil, dErrors.New(dErrors.CodeDeviceMismatch, "this license is bound to another device")
	}

	return &Claim{
		Key:      domain.LicenseKey(claims.Subject),
		Product:  claims.Product,
		PlanType: claims.PlanType,
		BoundAt:  time.Unix(claims.BoundAt, 0).UTC(),
	}, nil
}
