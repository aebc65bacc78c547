package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	keysDomain "github.com/allisson/identity/internal/keys/domain"
	keysService "github.com/allisson/identity/internal/keys/service"
)

// KeyProvisioner is the part of the key store used by ensure-keys.
type KeyProvisioner interface {
	EnsureKeypair(ctx context.Context) (*keysDomain.Keypair, error)
	Dir() string
}

// RunEnsureKeys loads or generates the signing keypair and prints its key id.
// Running it before starting replicas avoids a generation race on shared volumes.
func RunEnsureKeys(
	ctx context.Context,
	store KeyProvisioner,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	keys, err := store.EnsureKeypair(ctx)
	if err != nil {
		return fmt.Errorf("failed to provision signing keys: %w", err)
	}

	logger.Info("signing keys ready",
		slog.String("kid", keys.KeyID),
		slog.String("dir", store.Dir()),
	)

	if format == formatJSON {
		return writeJSON(writer, map[string]any{
			"kid":  keys.KeyID,
			"alg":  keysDomain.SigningAlgorithm,
			"bits": keys.PublicKey.N.BitLen(),
			"dir":  store.Dir(),
		})
	}

	_, _ = fmt.Fprintln(writer, "Signing keys ready")
	_, _ = fmt.Fprintf(writer, "Key ID: %s\n", keys.KeyID)
	_, _ = fmt.Fprintf(writer, "Algorithm: %s (%d bits)\n", keysDomain.SigningAlgorithm, keys.PublicKey.N.BitLen())
	_, _ = fmt.Fprintf(writer, "Directory: %s\n", store.Dir())
	return nil
}

// KeyLoader reads the persisted keypair without ever generating one.
type KeyLoader interface {
	Load(ctx context.Context) (*keysDomain.Keypair, error)
}

// LoadPublisher builds the discovery publisher from the keypair already on disk.
// Read-only commands use it so they never provision keys as a side effect.
func LoadPublisher(ctx context.Context, store KeyLoader) (*keysService.DiscoveryPublisher, error) {
	keys, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing keys: %w", err)
	}
	return keysService.NewDiscoveryPublisher(keys)
}

// RunShowJWKS prints the discovery document served at /.well-known/jwks.json.
func RunShowJWKS(publisher keysService.Publisher, writer io.Writer) error {
	return writeJSON(writer, publisher.Document())
}
