package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	apperrors "github.com/allisson/identity/internal/errors"
	"github.com/allisson/identity/internal/keys/domain"
)

const (
	defaultLockTimeout = 30 * time.Second
	lockRetryDelay     = 100 * time.Millisecond

	privateKeyPerm = 0o600
	publicFilePerm = 0o644
	dirPerm        = 0o700
)

// FileKeyStore provisions the signing keypair on the local filesystem. The first call
// against an empty directory generates and persists a keypair; every later call,
// in this or any other process, loads the same files back.
type FileKeyStore struct {
	dir         string
	bits        int
	lockTimeout time.Duration
	logger      *slog.Logger
}

// NewFileKeyStore creates a key store rooted at dir. Keys smaller than 2048 bits are rejected.
func NewFileKeyStore(dir string, bits int, lockTimeout time.Duration, logger *slog.Logger) (*FileKeyStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "keys directory is required")
	}
	if bits < domain.MinKeyBits {
		return nil, apperrors.Wrapf(
			apperrors.ErrInvalidInput,
			"key size %d is below the minimum of %d bits",
			bits,
			domain.MinKeyBits,
		)
	}
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FileKeyStore{
		dir:         dir,
		bits:        bits,
		lockTimeout: lockTimeout,
		logger:      logger,
	}, nil
}

// Dir returns the directory holding the key artifacts.
func (s *FileKeyStore) Dir() string {
	return s.dir
}

// EnsureKeypair returns the persisted keypair, generating it first when any of the
// three artifacts is missing. A complete set is read without touching the lock, so a
// provisioned read-only directory works. Generation runs under an exclusive file lock
// and re-checks the set once the lock is held, so concurrent first boots agree on a
// single keypair.
func (s *FileKeyStore) EnsureKeypair(ctx context.Context) (*domain.Keypair, error) {
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return nil, fmt.Errorf("%w: create keys directory %s: %w", domain.ErrStorage, s.dir, err)
	}

	keys, missing, err := s.loadComplete()
	if err != nil || keys != nil {
		return keys, err
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	keys, missing, err = s.loadComplete()
	if err != nil || keys != nil {
		return keys, err
	}

	if len(missing) < len(artifactNames()) {
		s.logger.Warn("incomplete signing key set, generating a new keypair",
			slog.String("dir", s.dir),
			slog.Any("missing", missing),
		)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys, err = s.generate()
	if err != nil {
		return nil, err
	}
	s.logger.Info("generated signing keypair",
		slog.String("kid", keys.KeyID),
		slog.Int("bits", s.bits),
		slog.String("dir", s.dir),
	)
	return keys, nil
}

// loadComplete reads the keypair when all artifacts exist. Otherwise it returns the
// missing names and a nil keypair.
func (s *FileKeyStore) loadComplete() (*domain.Keypair, []string, error) {
	missing, err := s.missingArtifacts()
	if err != nil {
		return nil, nil, err
	}
	if len(missing) > 0 {
		return nil, missing, nil
	}

	keys, err := s.read()
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("loaded signing keypair",
		slog.String("kid", keys.KeyID),
		slog.String("dir", s.dir),
	)
	return keys, nil, nil
}

// Load reads an existing keypair without ever generating one.
func (s *FileKeyStore) Load(ctx context.Context) (*domain.Keypair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	missing, err := s.missingArtifacts()
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf(
			"%w: missing %s in %s",
			domain.ErrKeysNotInitialized,
			strings.Join(missing, ", "),
			s.dir,
		)
	}
	return s.read()
}

func (s *FileKeyStore) lock(ctx context.Context) (func(), error) {
	fileLock := flock.New(filepath.Join(s.dir, domain.LockFile))
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire keys lock: %w", domain.ErrStorage, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: acquire keys lock: timeout after %v", domain.ErrStorage, s.lockTimeout)
	}

	return func() {
		if err := fileLock.Unlock(); err != nil {
			s.logger.Warn("failed to release keys lock", slog.Any("error", err))
		}
	}, nil
}

func artifactNames() []string {
	return []string{domain.PrivateKeyFile, domain.PublicKeyFile, domain.KeyIDFile}
}

func (s *FileKeyStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// missingArtifacts lists the artifact names that do not exist. Any other stat
// failure is a storage error: files that exist but cannot be inspected must never
// be overwritten.
func (s *FileKeyStore) missingArtifacts() ([]string, error) {
	var missing []string
	for _, name := range artifactNames() {
		_, err := os.Stat(s.path(name))
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist):
			missing = append(missing, name)
		default:
			return nil, fmt.Errorf("%w: stat %s: %w", domain.ErrStorage, name, err)
		}
	}
	return missing, nil
}

func (s *FileKeyStore) read() (*domain.Keypair, error) {
	privatePEM, err := s.readFile(domain.PrivateKeyFile)
	if err != nil {
		return nil, err
	}
	publicPEM, err := s.readFile(domain.PublicKeyFile)
	if err != nil {
		return nil, err
	}
	kidBytes, err := s.readFile(domain.KeyIDFile)
	if err != nil {
		return nil, err
	}

	privateKey, err := ParsePrivateKeyPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", domain.PrivateKeyFile, err)
	}
	publicKey, err := ParsePublicKeyPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", domain.PublicKeyFile, err)
	}
	kid := strings.TrimSpace(string(kidBytes))
	if kid == "" {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrKeyFormat, domain.KeyIDFile)
	}

	return &domain.Keypair{PrivateKey: privateKey, PublicKey: publicKey, KeyID: kid}, nil
}

func (s *FileKeyStore) readFile(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrStorage, name, err)
	}
	return data, nil
}

func (s *FileKeyStore) generate() (*domain.Keypair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, s.bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	kid, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate key id: %w", err)
	}

	privatePEM, err := EncodePrivateKeyPEM(privateKey)
	if err != nil {
		return nil, err
	}
	publicPEM, err := EncodePublicKeyPEM(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}

	// kid.txt is written last; its presence marks a complete set.
	writes := []struct {
		name string
		data []byte
		perm os.FileMode
	}{
		{domain.PrivateKeyFile, privatePEM, privateKeyPerm},
		{domain.PublicKeyFile, publicPEM, publicFilePerm},
		{domain.KeyIDFile, []byte(kid.String()), publicFilePerm},
	}
	for _, w := range writes {
		if err := writeFileAtomic(s.path(w.name), w.data, w.perm); err != nil {
			return nil, fmt.Errorf("%w: write %s: %w", domain.ErrStorage, w.name, err)
		}
	}
	syncDir(s.dir)

	return &domain.Keypair{
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
		KeyID:      kid.String(),
	}, nil
}

// writeFileAtomic writes data to a temp file in the target directory and renames it
// into place so readers never observe a partially written file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// syncDir flushes the directory entry of renamed files. Not every platform
// supports fsync on directories, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// EncodePrivateKeyPEM encodes key as a PKCS#8 "PRIVATE KEY" block.
func EncodePrivateKeyPEM(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal private key: %w", domain.ErrKeyFormat, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// EncodePublicKeyPEM encodes key as a PKIX "PUBLIC KEY" block.
func EncodePublicKeyPEM(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal public key: %w", domain.ErrKeyFormat, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// ParsePrivateKeyPEM decodes a PKCS#8 or PKCS#1 RSA private key.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", domain.ErrKeyFormat)
	}

	switch block.Type {
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKCS#8 private key: %w", domain.ErrKeyFormat, err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: private key is %T, not RSA", domain.ErrKeyFormat, key)
		}
		return rsaKey, nil
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKCS#1 private key: %w", domain.ErrKeyFormat, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block type %q", domain.ErrKeyFormat, block.Type)
	}
}

// ParsePublicKeyPEM decodes a PKIX or PKCS#1 RSA public key.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", domain.ErrKeyFormat)
	}

	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKIX public key: %w", domain.ErrKeyFormat, err)
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: public key is %T, not RSA", domain.ErrKeyFormat, key)
		}
		return rsaKey, nil
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKCS#1 public key: %w", domain.ErrKeyFormat, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block type %q", domain.ErrKeyFormat, block.Type)
	}
}
