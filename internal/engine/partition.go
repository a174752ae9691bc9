package engine

import "github.com/datallboy/fanout/internal/domain"

// Split divides units into at most numWorkers contiguous slices of
// max(len/numWorkers, 1) units each. Units left over once numWorkers slices
// exist are folded into the last slice, so with 17 units and 16 workers the
// last worker gets two. An empty list yields no partitions.
func Split(units []domain.TransferUnit, numWorkers int) []domain.Partition {
	n := len(units)
	if n == 0 {
		return nil
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	partSize := max(n/numWorkers, 1)
	parts := make([]domain.Partition, 0, min(numWorkers, n))

	for start := 0; start < n; {
		end := min(start+partSize, n)
		if len(parts) == numWorkers-1 {
			end = n
		}

		// cap the slice so a worker can never append into its neighbour
		parts = append(parts, domain.Partition{
			WorkerID: len(parts),
			Units:    units[start:end:end],
		})
		start = end
	}

	return parts
}
