// Package ghostsync propagates the attributes of particles mutated during
// a reaction step to every rank holding a ghost copy of them (spec.md
// §4.6, C6). Only the owning rank ever mutates a particle; ghost copies
// exist purely so a rank can evaluate its own local candidates without a
// round trip, so every step's mutations must be pushed out before the
// next step's neighbor list is trusted.
package ghostsync

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/example/dcre/internal/host"
	"github.com/example/dcre/internal/particle"
	"github.com/example/dcre/internal/transport"
)

func encode(attrs []particle.Attributes) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(attrs); err != nil {
		return nil, fmt.Errorf("ghostsync: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(b []byte) ([]particle.Attributes, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var attrs []particle.Attributes
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&attrs); err != nil {
		return nil, fmt.Errorf("ghostsync: decode: %w", err)
	}
	return attrs, nil
}

// Sync snapshots every modified particle's synchronized attributes,
// exchanges them along all three halo axes, and applies each received
// snapshot to the local ghost copy of that particle, if one exists on
// this rank. Snapshots for particles this rank doesn't hold at all are
// silently dropped: a ghost only needs an update from ranks it borders.
func Sync(comm transport.Comm, grid transport.Grid, storage host.Storage, tag int, modified []*particle.Particle) error {
	seen := make(map[int64]bool, len(modified))
	attrs := make([]particle.Attributes, 0, len(modified))
	for _, p := range modified {
		if p == nil || seen[p.PID] {
			continue
		}
		seen[p.PID] = true
		attrs = append(attrs, particle.Snapshot(p))
	}

	payload, err := encode(attrs)
	if err != nil {
		return err
	}

	received, err := transport.ExchangeHalo(comm, grid, tag, payload)
	if err != nil {
		return fmt.Errorf("ghostsync: halo exchange: %w", err)
	}

	for _, buf := range received {
		incoming, err := decode(buf)
		if err != nil {
			return err
		}
		for _, a := range incoming {
			local := storage.LookupLocal(a.PID)
			if local == nil || !local.Ghost {
				continue
			}
			a.Apply(local)
		}
	}

	return nil
}
