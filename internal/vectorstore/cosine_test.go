package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-6)
	require.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	require.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	require.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	require.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 0}))
}

func TestTopKOrdering(t *testing.T) {
	hits := []Hit{{ID: "b", Score: 0.5}, {ID: "a", Score: 0.5}, {ID: "c", Score: 0.9}}
	top := topK(hits, 2)
	require.Equal(t, []string{"c", "a"}, []string{top[0].ID, top[1].ID})
	require.Nil(t, topK(hits, 0))
}
