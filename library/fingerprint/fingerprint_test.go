package fingerprint

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	t.Parallel()

	// well-known sha256 vectors
	require.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Hash(nil))
	require.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		Hash([]byte("abc")))

	// identical content hashes identically, distinct content does not
	require.Equal(t, Hash([]byte("same")), Hash([]byte("same")))
	require.NotEqual(t, Hash([]byte("same")), Hash([]byte("not same")))
}

func TestHashReader(t *testing.T) {
	t.Parallel()

	got, err := HashReader(bytes.NewReader([]byte("abc")))
	require.NoError(t, err)
	require.Equal(t, Hash([]byte("abc")), got)
}
