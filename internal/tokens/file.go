package tokens

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"github.com/vidtube/client/internal/models"
)

const (
	fileVersion = 1
	saltSize    = 16

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var sealAAD = []byte("vidtube-session-v1")

// fileDocument is the on-disk form. Exactly one of Tokens or Ciphertext is set.
type fileDocument struct {
	Version    int                   `json:"version"`
	UpdatedAt  time.Time             `json:"updatedAt"`
	Tokens     *models.SessionTokens `json:"tokens,omitempty"`
	Salt       []byte                `json:"salt,omitempty"`
	Nonce      []byte                `json:"nonce,omitempty"`
	Ciphertext []byte                `json:"ciphertext,omitempty"`
}

// File stores the pair in a JSON document replaced atomically on every write.
// With a passphrase the pair is sealed with XChaCha20-Poly1305 under a
// scrypt-derived key.
type File struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
}

// NewFile returns a store writing to path. An empty passphrase stores the pair in clear.
func NewFile(path, passphrase string) *File {
	f := &File{path: path}
	if passphrase != "" {
		f.passphrase = []byte(passphrase)
	}
	return f
}

// Path returns the document location.
func (f *File) Path() string { return f.path }

// Set seals (when configured) and writes the pair.
func (f *File) Set(_ context.Context, tokens models.SessionTokens) error {
	if err := checkPair(tokens); err != nil {
		return err
	}

	doc := fileDocument{Version: fileVersion, UpdatedAt: time.Now().UTC()}
	if f.passphrase == nil {
		doc.Tokens = &tokens
	} else {
		if err := f.seal(&doc, tokens); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return writeFileAtomic(f.path, doc)
}

// Get reads the pair. A missing file yields the zero pair.
func (f *File) Get(_ context.Context) (models.SessionTokens, error) {
	f.mu.Lock()
	raw, err := os.ReadFile(f.path)
	f.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.SessionTokens{}, nil
		}
		return models.SessionTokens{}, fmt.Errorf("read session file: %w", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.SessionTokens{}, fmt.Errorf("decode session file: %w", err)
	}
	if doc.Version != fileVersion {
		return models.SessionTokens{}, fmt.Errorf("unsupported session file version %d", doc.Version)
	}

	if len(doc.Ciphertext) == 0 {
		if doc.Tokens == nil {
			return models.SessionTokens{}, nil
		}
		return *doc.Tokens, nil
	}
	if f.passphrase == nil {
		return models.SessionTokens{}, ErrPassphraseRequired
	}
	return f.open(doc)
}

// Clear removes the document.
func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (f *File) seal(doc *fileDocument, tokens models.SessionTokens) error {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	aead, err := f.aead(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	plain, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}

	doc.Salt = salt
	doc.Nonce = nonce
	doc.Ciphertext = aead.Seal(nil, nonce, plain, sealAAD)
	return nil
}

func (f *File) open(doc fileDocument) (models.SessionTokens, error) {
	aead, err := f.aead(doc.Salt)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if len(doc.Nonce) != aead.NonceSize() {
		return models.SessionTokens{}, ErrWrongPassphrase
	}
	plain, err := aead.Open(nil, doc.Nonce, doc.Ciphertext, sealAAD)
	if err != nil {
		return models.SessionTokens{}, ErrWrongPassphrase
	}

	var tokens models.SessionTokens
	if err := json.Unmarshal(plain, &tokens); err != nil {
		return models.SessionTokens{}, fmt.Errorf("decode sealed tokens: %w", err)
	}
	return tokens, nil
}

func (f *File) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(f.passphrase, salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return aead, nil
}

// writeFileAtomic writes JSON to a temp file in the target directory and
// renames it over dest, so readers see either the old or the new pair.
func writeFileAtomic(dest string, v any) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp session file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		cleanup()
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
