// Package randsrc provides the pseudo-random byte sources streamed to clients.
//
// Every connection owns its own Source, sources are never shared between
// goroutines.
package randsrc

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/chacha20"
)

// Source fills p with exactly len(p) pseudo-random bytes.
type Source interface {
	Fill(p []byte) error
}

// Factory creates a new independent Source for a connection.
type Factory func() (Source, error)

const (
	KindChaCha20 = "chacha20"
	KindCrypto   = "crypto"
	KindDevice   = "urandom"
)

// FactoryFor returns the Factory for kind, device is only used by KindDevice.
func FactoryFor(kind string, device string) (Factory, error) {
	switch kind {
	case KindChaCha20, "":
		return NewChaCha20, nil
	case KindCrypto:
		return NewCrypto, nil
	case KindDevice:
		return func() (Source, error) { return NewDevice(device) }, nil
	default:
		return nil, fmt.Errorf("unknown random source %q", kind)
	}
}

type chachaSource struct {
	cipher *chacha20.Cipher
}

// NewChaCha20 returns a ChaCha20 keystream keyed from crypto/rand.
func NewChaCha20() (Source, error) {
	var seed [chacha20.KeySize + chacha20.NonceSize]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("seed chacha20: %w", err)
	}
	c, err := chacha20.NewUnauthenticatedCipher(seed[:chacha20.KeySize], seed[chacha20.KeySize:])
	if err != nil {
		return nil, err
	}
	return &chachaSource{cipher: c}, nil
}

func (s *chachaSource) Fill(p []byte) error {
	clear(p)
	s.cipher.XORKeyStream(p, p)
	return nil
}

type readerSource struct {
	r io.Reader
}

// NewCrypto returns a Source reading from crypto/rand.
func NewCrypto() (Source, error) {
	return &readerSource{r: rand.Reader}, nil
}

// NewReader wraps an arbitrary reader, mostly useful for tests.
func NewReader(r io.Reader) Source {
	return &readerSource{r: r}
}

func (s *readerSource) Fill(p []byte) error {
	_, err := io.ReadFull(s.r, p)
	return err
}

type deviceSource struct {
	readerSource
	f *os.File
}

// NewDevice opens a random device such as /dev/urandom.
//
// The returned Source implements io.Closer.
func NewDevice(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open random device: %w", err)
	}
	return &deviceSource{readerSource: readerSource{r: f}, f: f}, nil
}

func (s *deviceSource) Close() error {
	return s.f.Close()
}

// Close releases src if it holds resources.
func Close(src Source) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
