// Package device computes the hardware fingerprint that binds a license to
// one machine, and derives human-readable device names for support views.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"

	"github.com/mssola/useragent"
)

// Fingerprint is a stable identifier for the current machine, derived from
// hardware traits rather than anything the user configures. SHA-256 hex.
type Fingerprint struct {
	Value    string
	Hostname string
	MAC      string
	OS       string
}

// Compute derives the fingerprint from hostname, primary MAC address, and
// OS/architecture. Traits that cannot be read degrade to placeholders rather
// than failing: a fingerprint that sometimes errors would strand legitimate
// installs.
func Compute() Fingerprint {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown-host"
	}
	mac := primaryMAC()
	osArch := runtime.GOOS + "/" + runtime.GOARCH

	sum := sha256.Sum256([]byte(strings.Join([]string{hostname, mac, osArch}, "|")))
	return Fingerprint{
		Value:    hex.EncodeToString(sum[:]),
		Hostname: hostname,
		MAC:      mac,
		OS:       osArch,
	}
}

// primaryMAC returns the hardware address of the first physical-looking
// interface. Loopback and interfaces without an address are skipped.
func primaryMAC() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "no-mac"
	}
	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String()
	}
	return "no-mac"
}

// DisplayName turns a client user agent into a short label for attempt
// history and support views, e.g. "Chrome on Mac OS X".
func DisplayName(rawUserAgent string) string {
	if strings.TrimSpace(rawUserAgent) == "" {
		return "Unknown Device"
	}
	ua := useragent.New(rawUserAgent)
	browser, _ := ua.Browser()
	osName := ua.OS()
	if osName == "" {
		osName = ua.Platform()
	}
	if browser == "" && osName == "" {
		return "Unknown Device"
	}
	if browser == "" {
		browser = "Unknown Client"
	}
	if osName == "" {
		osName = "Unknown OS"
	}
	return strings.TrimSpace(fmt.Sprintf("%s on %s", browser, osName))
}
