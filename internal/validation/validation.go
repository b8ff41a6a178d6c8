// Package validation provides input validation for zktrails.
package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/stellar/go-stellar-sdk/strkey"
	"golang.org/x/mod/semver"
)

// Mission IDs: lowercase alphanumeric with hyphens or underscores, 1-64 chars
var missionIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateMissionID validates a mission identifier
func ValidateMissionID(id string) error {
	if id == "" {
		return errors.New("mission id cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("mission id too long (max 64 chars)")
	}
	if !missionIDRegex.MatchString(id) {
		return errors.New("invalid mission id: must be lowercase alphanumeric with hyphens or underscores")
	}
	return nil
}

// ValidateVersion validates a semantic version string
func ValidateVersion(v string) error {
	normalized := strings.TrimPrefix(v, "v")
	if normalized == "" {
		return errors.New("version cannot be empty")
	}

	// semver library expects version to start with 'v'
	if !semver.IsValid("v" + normalized) {
		return errors.New("invalid semver version: must be in format X.Y.Z or X.Y.Z-prerelease")
	}

	// semver.IsValid accepts "v1" and "v1.2"; require major.minor.patch
	mainPart := strings.SplitN(normalized, "-", 2)[0]
	mainPart = strings.SplitN(mainPart, "+", 2)[0]
	if strings.Count(mainPart, ".") < 2 {
		return errors.New("invalid semver version: must be in format X.Y.Z (major.minor.patch)")
	}

	return nil
}

// NormalizeVersion normalizes a version string (strips leading 'v')
func NormalizeVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}

// CompareVersions compares two versions
// Returns -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	return semver.Compare("v"+NormalizeVersion(v1), "v"+NormalizeVersion(v2))
}

// strKeyLength is the encoded length of ed25519 and contract StrKeys.
const strKeyLength = 56

// ValidateAccountID validates a Stellar account address (G...)
func ValidateAccountID(addr string) error {
	if err := checkStrKeyShape(addr, 'G', "account address"); err != nil {
		return err
	}
	if !strkey.IsValidEd25519PublicKey(addr) {
		return errors.New("invalid account address: bad encoding or checksum")
	}
	return nil
}

// ValidateContractID validates a Soroban contract address (C...)
func ValidateContractID(addr string) error {
	if err := checkStrKeyShape(addr, 'C', "contract address"); err != nil {
		return err
	}
	if _, err := strkey.Decode(strkey.VersionByteContract, addr); err != nil {
		return fmt.Errorf("invalid contract address: %w", err)
	}
	return nil
}

// ValidateSecretSeed validates a Stellar secret seed (S...) without echoing it
func ValidateSecretSeed(seed string) error {
	if _, err := strkey.Decode(strkey.VersionByteSeed, seed); err != nil {
		return errors.New("invalid secret seed")
	}
	return nil
}

func checkStrKeyShape(s string, prefix byte, kind string) error {
	if len(s) != strKeyLength {
		return errors.New("invalid " + kind + " length: must be 56 characters")
	}
	if s[0] != prefix {
		return errors.New("invalid " + kind + ": must start with " + string(prefix))
	}
	return nil
}

// ValidateTxHash validates a ledger transaction hash (64 hex chars)
func ValidateTxHash(hash string) error {
	if len(hash) != 64 {
		return errors.New("invalid transaction hash length: must be 64 hex characters")
	}
	for _, c := range hash {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return errors.New("invalid transaction hash: contains non-hex characters")
		}
	}
	return nil
}

// ValidateCoordinates validates a latitude/longitude pair in degrees
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if lat < -90 || lat > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}
