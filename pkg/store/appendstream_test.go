package store_test

import (
	"path/filepath"
	"testing"

	"github.com/jowpereira/bradax/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID string `json:"id"`
}

func TestAppendStream_AppendAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.json")

	s, err := store.OpenAppendStream(path, 0)
	require.NoError(t, err)

	require.NoError(t, s.Append(sample{ID: "a"}))
	require.NoError(t, s.Append(sample{ID: "b"}))
	assert.Equal(t, 2, s.Len())

	reopened, err := store.OpenAppendStream(path, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())
}

func TestAppendStream_TrimsAtCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bounded.json")
	s, err := store.OpenAppendStream(path, 3)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Append(sample{ID: string(rune('a' + i))}))
	}

	assert.Equal(t, 3, s.Len())

	var ids []string
	err = s.Each(func() interface{} { return &sample{} }, func(v interface{}) error {
		ids = append(ids, v.(*sample).ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"h", "i", "j"}, ids)
}

func TestWriteAtomic_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "value.json")
	require.NoError(t, store.WriteAtomic(path, sample{ID: "x"}))

	var got sample
	require.NoError(t, store.ReadJSON(path, &got))
	assert.Equal(t, "x", got.ID)
}
