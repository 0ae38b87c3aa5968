// Command verify checks a local license artifact entirely offline: it reads
// the artifact file, computes this device's fingerprint, and validates the
// signature and binding against the configured public key. Exit code 0 means
// the license is valid on this machine.
package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"strings"

	"keygate/internal/artifact"
	"keygate/internal/device"
)

func main() {
	artifactPath := flag.String("artifact", "license.key", "path to the license artifact file")
	publicKey := flag.String("public-key", os.Getenv("KEYGATE_PUBLIC_KEY"), "base64 raw-url-encoded Ed25519 public key")
	flag.Parse()

	if err := run(*artifactPath, *publicKey); err != nil {
		fmt.Fprintln(os.Stderr, "license invalid:", err)
		os.Exit(1)
	}
}

func run(artifactPath, encodedKey string) error {
	if encodedKey == "" {
		return fmt.Errorf("no public key: pass -public-key or set KEYGATE_PUBLIC_KEY")
	}
	keyBytes, err := base64.RawURLEncoding.DecodeString(encodedKey)
	if err != nil {
		return fmt.Errorf("decode public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(keyBytes))
	}

	raw, err := os.ReadFile(artifactPath)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	fp := device.Compute()
	verifier := artifact.NewVerifier(ed25519.PublicKey(keyBytes))
	claim, err := verifier.Verify(strings.TrimSpace(string(raw)), fp.Value)
	if err != nil {
		return err
	}

	fmt.Println("license valid on this device")
	fmt.Println("  key:     ", claim.Key.Masked())
	fmt.Println("  product: ", claim.Product)
	fmt.Println("  plan:    ", claim.PlanType)
	fmt.Println("  bound at:", claim.BoundAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}
