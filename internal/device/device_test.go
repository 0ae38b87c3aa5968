package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DeviceSuite struct {
	suite.Suite
}

func TestDeviceSuite(t *testing.T) {
	suite.Run(t, new(DeviceSuite))
}

func (s *DeviceSuite) TestFingerprintStability() {
	s.Run("fingerprint is deterministic", func() {
		fp1 := Compute()
		fp2 := Compute()
		s.Equal(fp1.Value, fp2.Value)
	})

	s.Run("fingerprint is sha256 hex", func() {
		fp := Compute()
		s.Len(fp.Value, 64)
	})

	s.Run("traits are populated", func() {
		fp := Compute()
		s.NotEmpty(fp.Hostname)
		s.NotEmpty(fp.OS)
	})
}

func (s *DeviceSuite) TestDisplayName() {
	s.Run("empty user agent returns unknown device", func() {
		s.Equal("Unknown Device", DisplayName(""))
	})

	s.Run("chrome on mac includes browser and OS", func() {
		ua := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		result := DisplayName(ua)
		s.Contains(result, "Chrome")
		s.Contains(result, "on")
	})

	s.Run("firefox on linux includes browser", func() {
		ua := "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
		result := DisplayName(ua)
		s.Contains(result, "Firefox")
	})

	s.Run("no leading or trailing whitespace", func() {
		ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
		result := DisplayName(ua)
		s.Equal(result, strings.TrimSpace(result))
	})
}
