package transport

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeHalo_TwoRankRingExchangesOnce(t *testing.T) {
	comms := NewLocalCommGroup(2)
	grids := NewLinearGridAlongX(2)

	results := make([][][]byte, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for r := 0; r < 2; r++ {
		r := r
		go func() {
			defer wg.Done()
			payload := []byte{byte('A' + r)}
			out, err := ExchangeHalo(comms[r], grids[r], 7, payload)
			require.NoError(t, err)
			results[r] = out
		}()
	}
	wg.Wait()

	// A 2-rank ring only exchanges lr=0 once per axis: each rank should
	// receive exactly one buffer, containing the other rank's payload.
	require.Len(t, results[0], 1)
	require.Len(t, results[1], 1)
	assert.Equal(t, []byte{'B'}, results[0][0])
	assert.Equal(t, []byte{'A'}, results[1][0])
}

func TestExchangeHalo_ThreeRankRingExchangesBothDirections(t *testing.T) {
	comms := NewLocalCommGroup(3)
	grids := NewLinearGridAlongX(3)

	results := make([][][]byte, 3)
	var wg sync.WaitGroup
	wg.Add(3)
	for r := 0; r < 3; r++ {
		r := r
		go func() {
			defer wg.Done()
			payload := []byte{byte('A' + r)}
			out, err := ExchangeHalo(comms[r], grids[r], 7, payload)
			require.NoError(t, err)
			results[r] = out
		}()
	}
	wg.Wait()

	for r := 0; r < 3; r++ {
		assert.Len(t, results[r], 2, "3-rank ring exchanges both lr=0 and lr=1")
	}
}

func TestExchangeHalo_SingleRankSkipsAllAxes(t *testing.T) {
	comms := NewLocalCommGroup(1)
	grids := NewLinearGridAlongX(1)

	out, err := ExchangeHalo(comms[0], grids[0], 7, []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, out)
}
