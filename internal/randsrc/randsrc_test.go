package randsrc

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFactoryFor(t *testing.T) {
	for _, kind := range []string{"", KindChaCha20, KindCrypto} {
		factory, err := FactoryFor(kind, "")
		require.NoError(t, err, kind)
		src, err := factory()
		require.NoError(t, err, kind)

		buf := make([]byte, 8192)
		require.NoError(t, src.Fill(buf))
		require.NotEqual(t, make([]byte, 8192), buf, "source %q returned all zeros", kind)
		require.NoError(t, Close(src))
	}

	_, err := FactoryFor("lava-lamp", "")
	require.Error(t, err)
}

func TestChaCha20Independent(t *testing.T) {
	a, err := NewChaCha20()
	require.NoError(t, err)
	b, err := NewChaCha20()
	require.NoError(t, err)

	bufA := make([]byte, 64)
	bufB := make([]byte, 64)
	require.NoError(t, a.Fill(bufA))
	require.NoError(t, b.Fill(bufB))
	require.NotEqual(t, bufA, bufB)

	// reused buffers must not leak the previous block
	prev := bytes.Clone(bufA)
	require.NoError(t, a.Fill(bufA))
	require.NotEqual(t, prev, bufA)
}

func TestDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "random")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xab}, 16), 0o600))

	factory, err := FactoryFor(KindDevice, path)
	require.NoError(t, err)
	src, err := factory()
	require.NoError(t, err)
	defer Close(src)

	buf := make([]byte, 16)
	require.NoError(t, src.Fill(buf))
	require.Equal(t, bytes.Repeat([]byte{0xab}, 16), buf)

	// exhausted device is an error for this connection only
	require.Error(t, src.Fill(buf))
}

func TestDeviceMissing(t *testing.T) {
	_, err := NewDevice(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
