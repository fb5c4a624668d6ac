package app

// Partition splits items into at most n contiguous chunks whose sizes differ
// by at most one. Concatenating the chunks yields items in their original
// order. n < 1 is treated as 1; empty input yields no chunks.
func Partition[T any](items []T, n int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}

	chunks := make([][]T, 0, n)
	size, extra := len(items)/n, len(items)%n
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < extra {
			end++
		}
		chunks = append(chunks, items[start:end:end])
		start = end
	}
	return chunks
}
