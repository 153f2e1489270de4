package stats

import (
	"encoding/binary"
	"math"
)

// appendFloat64 and readFloat64 give the pair-distance gather payload a
// fixed-width wire format. gob is used elsewhere in this codebase for
// structured records (candidate.Map, ghost attributes); a flat slice of
// float64 gains nothing from gob's type descriptors, so this stays a
// direct binary.LittleEndian encoding.
func appendFloat64(buf []byte, v float64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(buf, tmp[:]...)
}

func readFloat64(buf []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf))
}
