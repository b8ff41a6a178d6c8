package validation

import (
	"math"
	"strings"
	"testing"
)

const (
	testAccount  = "GAAACAQDAQCQMBYIBEFAWDANBYHRAEISCMKBKFQXDAMRUGY4DUPB7JZX"
	testContract = "CAG5LRYQ5JVEUI5TEID72EYOVX44TTUJT5BQR2J6J77FH65PCCFAJDDH"
	testSeed     = "SAAACAQDAQCQMBYIBEFAWDANBYHRAEISCMKBKFQXDAMRUGY4DUPB6NKI"
)

func TestValidateMissionID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"short", "m0", false},
		{"with hyphen", "madrid-central", false},
		{"with underscore", "quiz_stellar_101", false},
		{"empty", "", true},
		{"uppercase", "M0", true},
		{"path traversal", "../m0", true},
		{"space", "m 0", true},
		{"too long", strings.Repeat("a", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMissionID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMissionID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid semver", "1.0.0", false},
		{"valid with v prefix", "v1.0.0", false},
		{"valid prerelease", "1.0.0-beta.1", false},
		{"valid with build metadata", "1.0.0+build.123", false},
		{"invalid no minor", "1", true},
		{"invalid no patch", "1.0", true},
		{"invalid characters", "1.0.0-beta!", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestCompareVersions(t *testing.T) {
	if got := CompareVersions("1.2.0", "v1.10.0"); got != -1 {
		t.Errorf("CompareVersions() = %d, want -1", got)
	}
	if got := CompareVersions("v2.0.0", "2.0.0"); got != 0 {
		t.Errorf("CompareVersions() = %d, want 0", got)
	}
}

func TestValidateAccountID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", testAccount, false},
		{"valid second", "GAAQEAYEAUDAOCAJBIFQYDIOB4IBCEQTCQKRMFYYDENBWHA5DYPSABOV", false},
		{"contract not account", testContract, true},
		{"seed not account", testSeed, true},
		{"bad checksum", testAccount[:55] + "A", true},
		{"lowercase", strings.ToLower(testAccount), true},
		{"too short", testAccount[:40], true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccountID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAccountID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateContractID(t *testing.T) {
	if err := ValidateContractID(testContract); err != nil {
		t.Errorf("ValidateContractID() error = %v", err)
	}
	if err := ValidateContractID(testAccount); err == nil {
		t.Error("ValidateContractID(account) expected error")
	}
}

func TestValidateSecretSeed_DoesNotEchoInput(t *testing.T) {
	if err := ValidateSecretSeed(testSeed); err != nil {
		t.Errorf("ValidateSecretSeed() error = %v", err)
	}
	bad := testSeed[:55] + "Q"
	err := ValidateSecretSeed(bad)
	if err == nil {
		t.Fatal("ValidateSecretSeed() expected error")
	}
	if strings.Contains(err.Error(), bad) {
		t.Errorf("error message leaks the seed: %v", err)
	}
}

func TestValidateTxHash(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid lower", strings.Repeat("ab", 32), false},
		{"valid upper", strings.Repeat("AB", 32), false},
		{"too short", "abc123", true},
		{"non hex", strings.Repeat("zz", 32), true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTxHash(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTxHash(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		wantErr  bool
	}{
		{"madrid", 40.414, -3.706, false},
		{"poles", 90, 180, false},
		{"lat out of range", 90.0001, 0, true},
		{"lon out of range", 0, -180.5, true},
		{"nan", math.NaN(), 0, true},
		{"inf", 0, math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.lat, tt.lon)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoordinates(%v, %v) error = %v, wantErr %v", tt.lat, tt.lon, err, tt.wantErr)
			}
		})
	}
}
