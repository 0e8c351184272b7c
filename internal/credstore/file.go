package credstore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/sportcenterhq/client-go/internal/models"
)

const (
	saltFile       = "salt"
	credentialFile = "credential.bin"
	identityFile   = "identity.json"
)

// FileStore keeps session state in per-key files under a base directory.
// The credential pair is encrypted at rest with a scrypt-derived key; writes
// go through a temp file and rename so a record is replaced atomically.
type FileStore struct {
	dir string
	key [32]byte
}

// NewFileStore prepares the state directory and derives the sealing key.
// The salt is generated on first use and kept alongside the records.
func NewFileStore(dir, passphrase string) (*FileStore, error) {
	if dir == "" {
		dir = "./state"
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	salt, err := loadOrCreateSalt(filepath.Join(dir, saltFile))
	if err != nil {
		return nil, err
	}

	derived, err := scrypt.Key([]byte(passphrase), salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive storage key: %w", err)
	}

	s := &FileStore{dir: dir}
	copy(s.key[:], derived)
	return s, nil
}

func (s *FileStore) SaveCredential(_ context.Context, cred *models.Credential) error {
	plain, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &s.key)

	return writeAtomic(filepath.Join(s.dir, credentialFile), sealed)
}

func (s *FileStore) LoadCredential(_ context.Context) (*models.Credential, error) {
	sealed, err := os.ReadFile(filepath.Join(s.dir, credentialFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read credential: %w", err)
	}
	if len(sealed) < 24 {
		return nil, fmt.Errorf("credential record truncated")
	}

	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &s.key)
	if !ok {
		return nil, fmt.Errorf("credential record unreadable")
	}

	cred := &models.Credential{}
	if err := json.Unmarshal(plain, cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return cred, nil
}

func (s *FileStore) SaveIdentity(_ context.Context, identity *models.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	return writeAtomic(filepath.Join(s.dir, identityFile), data)
}

func (s *FileStore) LoadIdentity(_ context.Context) (*models.Identity, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, identityFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read identity: %w", err)
	}

	identity := &models.Identity{}
	if err := json.Unmarshal(data, identity); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	return identity, nil
}

// Clear removes the session records. The salt stays so a later login under
// the same passphrase can still open older backups.
func (s *FileStore) Clear(_ context.Context) error {
	for _, name := range []string{credentialFile, identityFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil && len(salt) == 16 {
		return salt, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read salt: %w", err)
	}

	salt = make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if err := writeAtomic(path, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("stage write: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("stage write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("stage write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("stage write: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit write: %w", err)
	}
	return nil
}
