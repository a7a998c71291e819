package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestGeneratorNewID ensures generated IDs are unique version 7 UUIDs.
func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewID()
	require.NoError(t, err)
	id2, err := gen.NewID()
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	parsed, err := goUUID.Parse(id1)
	require.NoError(t, err)
	require.Equal(t, goUUID.Version(7), parsed.Version())
}

func TestCanonical(t *testing.T) {
	t.Parallel()

	got, err := Canonical("0190F5A2-3C4B-7D8E-9F00-112233445566")
	require.NoError(t, err)
	require.Equal(t, "0190f5a2-3c4b-7d8e-9f00-112233445566", got)

	_, err = Canonical("not-a-uuid")
	require.Error(t, err)
}
