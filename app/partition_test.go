package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartition(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	chunks := Partition(items, 3)
	assert.Equal(t, [][]int{{0, 1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, chunks)

	var flat []int
	for _, c := range Partition(items, 4) {
		flat = append(flat, c...)
	}
	assert.Equal(t, items, flat)
}

func TestPartitionEdges(t *testing.T) {
	assert.Nil(t, Partition([]string{}, 4))
	assert.Equal(t, [][]string{{"a", "b"}}, Partition([]string{"a", "b"}, 0))
	assert.Len(t, Partition([]string{"a", "b"}, 8), 2)
}

func TestPartitionChunksDoNotAlias(t *testing.T) {
	items := []int{1, 2, 3, 4}
	chunks := Partition(items, 2)
	chunks[0] = append(chunks[0], 99)
	assert.Equal(t, []int{1, 2, 3, 4}, items)
}
