package brotr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSliceSplitsEvenly(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	chunks := chunkSlice(items, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{1, 2}, chunks[0])
	assert.Equal(t, []int{3, 4}, chunks[1])
	assert.Equal(t, []int{5}, chunks[2])
}

func TestChunkSliceZeroSizeReturnsOneChunk(t *testing.T) {
	items := []int{1, 2, 3}
	chunks := chunkSlice(items, 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, items, chunks[0])
}

func TestChunkSliceEmptyReturnsNil(t *testing.T) {
	var items []int
	assert.Nil(t, chunkSlice(items, 10))
}

func TestTagsToJSONProducesCanonicalArray(t *testing.T) {
	out, err := tagsToJSON([][]string{{"e", "abc"}, {"p", "def"}})
	require.NoError(t, err)
	assert.Equal(t, `[["e","abc"],["p","def"]]`, out)
}
