package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexInsertGetRemove(t *testing.T) {
	idx := newIndex()

	_, ok := idx.get("key1")
	require.False(t, ok)

	prev, had := idx.insert("key1", CommandPos{Gen: 1, Offset: 0, Length: 10})
	require.False(t, had)
	require.Zero(t, prev)

	got, ok := idx.get("key1")
	require.True(t, ok)
	require.Equal(t, CommandPos{Gen: 1, Offset: 0, Length: 10}, got)

	prev, had = idx.insert("key1", CommandPos{Gen: 2, Offset: 100, Length: 20})
	require.True(t, had)
	require.Equal(t, CommandPos{Gen: 1, Offset: 0, Length: 10}, prev)

	prev, had = idx.remove("key1")
	require.True(t, had)
	require.Equal(t, CommandPos{Gen: 2, Offset: 100, Length: 20}, prev)

	_, had = idx.remove("key1")
	require.False(t, had)
}

func TestIndexAscendIsSorted(t *testing.T) {
	idx := newIndex()
	for _, k := range []string{"charlie", "alpha", "bravo"} {
		idx.insert(k, CommandPos{})
	}

	var seen []string
	idx.ascend(func(key string, pos CommandPos) bool {
		seen = append(seen, key)
		return true
	})

	require.Equal(t, []string{"alpha", "bravo", "charlie"}, seen)
}

func TestIndexLen(t *testing.T) {
	idx := newIndex()
	require.Equal(t, 0, idx.len())

	idx.insert("a", CommandPos{})
	idx.insert("b", CommandPos{})
	require.Equal(t, 2, idx.len())

	idx.remove("a")
	require.Equal(t, 1, idx.len())
}
