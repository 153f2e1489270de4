package transport

// ExchangeHalo performs the generic, payload-agnostic 3-axis, 2-phase
// nearest-neighbor exchange described in spec.md §4.3. For each axis with
// more than one rank, it exchanges payload with the axis's two neighbors
// (only one neighbor when the axis has exactly two ranks, to avoid a
// double exchange), using rank parity to decide send-before-receive vs
// receive-before-send so the exchange never deadlocks. It returns every
// buffer received across all axes, in the order they were received;
// callers (candidate halo exchange, ghost sync) decode and merge each one
// into their own structure.
//
// Any transport error aborts the exchange immediately: per spec.md §7,
// communication failures are fatal to the step, with no partial retry.
func ExchangeHalo(comm Comm, grid Grid, tag int, payload []byte) ([][]byte, error) {
	var received [][]byte

	for axis := 0; axis < 3; axis++ {
		size := grid.GridSize(axis)
		if size == 1 {
			continue
		}

		maxLR := 2
		if size == 2 {
			maxLR = 1 // avoid double exchange when the axis has exactly two ranks
		}

		for lr := 0; lr < maxLR; lr++ {
			receiver := grid.NeighborRank(2*axis + lr)
			sender := grid.NeighborRank(2*axis + (1 - lr))

			var buf []byte
			var err error
			if grid.NodePosition(axis)%2 == 0 {
				if err = comm.Send(receiver, tag, payload); err != nil {
					return received, err
				}
				buf, err = comm.Recv(sender, tag)
			} else {
				buf, err = comm.Recv(sender, tag)
				if err != nil {
					return received, err
				}
				err = comm.Send(receiver, tag, payload)
			}
			if err != nil {
				return received, err
			}
			received = append(received, buf)
		}
	}

	return received, nil
}
