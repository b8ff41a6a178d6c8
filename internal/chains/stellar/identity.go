package stellar

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/stellar/go-stellar-sdk/keypair"

	"github.com/zktrails/zktrails/internal/validation"
)

// ErrNoIdentity is returned when no admin credential can be found.
var ErrNoIdentity = errors.New("no admin identity configured")

// placeholderSecret is the value shipped in sample env files.
const placeholderSecret = "YOUR_TESTNET_SECRET_KEY_HERE"

// Identity is the server's admin signing credential. It is loaded once at
// startup and passed to the components that sign contract calls.
type Identity struct {
	secret  string
	account string
	source  string
}

// Secret returns the S... seed.
func (i *Identity) Secret() string {
	return i.secret
}

// Account returns the G... address of the identity.
func (i *Identity) Account() string {
	return i.account
}

// Source describes where the identity was loaded from.
func (i *Identity) Source() string {
	return i.source
}

// String never includes the secret.
func (i *Identity) String() string {
	return fmt.Sprintf("identity(%s from %s)", i.account, i.source)
}

// LogValue keeps the secret out of structured logs.
func (i *Identity) LogValue() slog.Value {
	return slog.StringValue(i.String())
}

type identityFile struct {
	SecretKey  string `toml:"secret_key"`
	SeedPhrase string `toml:"seed_phrase,omitempty"`
}

// NewIdentity validates seed and derives its account.
func NewIdentity(seed, source string) (*Identity, error) {
	if err := validation.ValidateSecretSeed(seed); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	kp, err := keypair.ParseFull(seed)
	if err != nil {
		return nil, fmt.Errorf("%s: deriving account: %w", source, err)
	}
	return &Identity{secret: seed, account: kp.Address(), source: source}, nil
}

// IdentityPaths lists the identity files checked for name, in order.
func IdentityPaths(home, name string) []string {
	file := name + ".toml"
	return []string{
		filepath.Join(home, ".config", "stellar", "identity", file),
		filepath.Join(home, ".config", "soroban", "identity", file),
		filepath.Join(home, ".stellar", "identity", file),
		filepath.Join(home, ".soroban", "identity", file),
		filepath.Join(home, "Library", "Application Support", "stellar", "identity", file),
		filepath.Join(home, "Library", "Application Support", "soroban", "identity", file),
	}
}

// LoadIdentity resolves the admin credential. An explicit secret wins over
// identity files written by the stellar CLI.
func LoadIdentity(envSecret, name, home string) (*Identity, error) {
	if envSecret != "" && envSecret != placeholderSecret {
		return NewIdentity(envSecret, "environment")
	}

	for _, path := range IdentityPaths(home, name) {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading identity %s: %w", path, err)
		}

		var f identityFile
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing identity %s: %w", path, err)
		}
		if f.SecretKey == "" {
			if f.SeedPhrase != "" {
				return nil, fmt.Errorf("identity %s only has a seed phrase; set STELLAR_ADMIN_SECRET", path)
			}
			return nil, fmt.Errorf("identity %s has no secret_key", path)
		}
		return NewIdentity(f.SecretKey, path)
	}

	return nil, ErrNoIdentity
}

// WriteIdentity stores a secret in the stellar CLI identity format with
// owner-only permissions.
func WriteIdentity(path, seed string) error {
	if err := validation.ValidateSecretSeed(seed); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(identityFile{SecretKey: seed}); err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	return nil
}
