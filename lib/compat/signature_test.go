package compat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestFindSignature(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "vyos.iso")
	writeTestFile(t, image)

	sig, err := FindSignature(image)
	require.NoError(t, err)
	require.Empty(t, sig)

	writeTestFile(t, image+".asc")
	sig, err = FindSignature(image)
	require.NoError(t, err)
	require.Equal(t, image+".asc", sig)
}

func TestFindSignatureUnsupported(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "vyos.iso")
	writeTestFile(t, image)
	writeTestFile(t, image+".minisig")

	_, err := FindSignature(image)
	require.ErrorIs(t, err, ErrUnsupportedSignature)

	// a supported signature wins over unsupported neighbors
	writeTestFile(t, image+".gpg")
	sig, err := FindSignature(image)
	require.NoError(t, err)
	require.Equal(t, image+".gpg", sig)
}

func TestFindSignatureIgnoresNonSignatureSiblings(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "vyos.iso")
	writeTestFile(t, image)
	writeTestFile(t, image+".sha256")
	writeTestFile(t, image+".torrent")

	sig, err := FindSignature(image)
	require.NoError(t, err)
	require.Empty(t, sig)

	writeTestFile(t, image+".asc")
	sig, err = FindSignature(image)
	require.NoError(t, err)
	require.Equal(t, image+".asc", sig)
}

type sigRunner struct {
	calls [][]string
	err   error
}

func (r *sigRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil, r.err
}

func TestGPGVerifier(t *testing.T) {
	runner := &sigRunner{}
	v := NewVerifier(runner)

	require.NoError(t, v.Verify(context.Background(), "/tmp/img.iso", "/tmp/img.iso.asc"))
	require.Equal(t, [][]string{{"gpg", "--verify", "/tmp/img.iso.asc", "/tmp/img.iso"}}, runner.calls)

	runner.err = errors.New("BAD signature")
	err := v.Verify(context.Background(), "/tmp/img.iso", "/tmp/img.iso.asc")
	require.ErrorContains(t, err, "signature is not valid")
}
