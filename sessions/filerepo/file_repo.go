package filerepo

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/jrsteele09/go-inventory-admin/sessions"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sessionsDir = "sessions"
	fileMode    = 0o600
	dirMode     = 0o700
)

var (
	ErrInvalidKey    = errors.New("session key must be 32 bytes")
	ErrCorruptedFile = errors.New("session file cannot be read")

	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9.-]+`)
)

var _ sessions.Repo = (*FileRepo)(nil)

// FileRepo keeps one JSON document per backend origin under the data folder.
// When a key is configured the document is sealed with XChaCha20-Poly1305.
type FileRepo struct {
	path string
	aead cipher.AEAD
	lock sync.Mutex
}

type Option func(*options)

type options struct {
	key []byte
}

// WithEncryptionKey seals the session file with key.
func WithEncryptionKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// ParseKey decodes a hex encoded session key.
func ParseKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// New returns the repo for origin, stored below folder.
func New(folder, origin string, opts ...Option) (*FileRepo, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := &FileRepo{path: filepath.Join(folder, sessionsDir, FileName(origin))}
	if o.key != nil {
		aead, err := chacha20poly1305.NewX(o.key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		r.aead = aead
	}
	return r, nil
}

// FileName maps an origin such as http://localhost:8080 to a file name.
func FileName(origin string) string {
	return unsafeChars.ReplaceAllString(origin, "_") + ".json"
}

// Path returns the location of the session file.
func (r *FileRepo) Path() string {
	return r.path
}

func (r *FileRepo) Load(_ context.Context, keys ...string) (map[string]string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	values, err := r.read()
	if errors.Is(err, ErrCorruptedFile) {
		log.Warn().Err(err).Str("path", r.path).Msg("Ignoring unreadable session file")
	} else if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (r *FileRepo) Store(_ context.Context, values map[string]string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	current, err := r.read()
	if err != nil && !errors.Is(err, ErrCorruptedFile) {
		return err
	}
	for k, v := range values {
		current[k] = v
	}
	return r.write(current)
}

func (r *FileRepo) Delete(_ context.Context, keys ...string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	current, err := r.read()
	if err != nil && !errors.Is(err, ErrCorruptedFile) {
		return err
	}
	for _, k := range keys {
		delete(current, k)
	}
	if len(current) == 0 {
		if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove session file: %w", err)
		}
		return nil
	}
	return r.write(current)
}

// read returns the stored document; a missing file is an empty document.
func (r *FileRepo) read() (map[string]string, error) {
	values := make(map[string]string)

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return values, fmt.Errorf("failed to read session file: %w", err)
	}

	if r.aead != nil {
		if data, err = r.open(data); err != nil {
			return values, err
		}
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return make(map[string]string), fmt.Errorf("%w: %v", ErrCorruptedFile, err)
	}
	return values, nil
}

// write replaces the file atomically: temp file in the same folder, then rename.
func (r *FileRepo) write(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if r.aead != nil {
		if data, err = r.seal(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("failed to create session folder: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set session file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// seal prefixes the ciphertext with its random nonce.
func (r *FileRepo) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, r.aead.NonceSize(), r.aead.NonceSize()+len(plaintext)+r.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return r.aead.Seal(nonce, nonce, plaintext, r.additionalData()), nil
}

// additionalData binds the ciphertext to its file name.
func (r *FileRepo) additionalData() []byte {
	return []byte(filepath.Base(r.path))
}

func (r *FileRepo) open(sealed []byte) ([]byte, error) {
	if len(sealed) < r.aead.NonceSize() {
		return nil, fmt.Errorf("%w: too short", ErrCorruptedFile)
	}
	nonce, ciphertext := sealed[:r.aead.NonceSize()], sealed[r.aead.NonceSize():]
	plaintext, err := r.aead.Open(nil, nonce, ciphertext, r.additionalData())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedFile, err)
	}
	return plaintext, nil
}
