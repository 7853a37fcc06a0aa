package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchSerializerRoundTrip(t *testing.T) {
	var s PatchSerializer
	in := &PatchPoint{Patch: 3, Local: [2]float64{0.25, 0.75}}

	blob, err := s.SerializeBoundaryPoint(in)
	require.NoError(t, err)

	out, err := s.DeserializeBoundaryPoint(blob)
	require.NoError(t, err)
	assert.Equal(t, int32(3), out.PatchID())
	assert.True(t, Equal(in, out))
}

type foreignPoint struct{}

func (foreignPoint) PatchID() int32 { return 0 }

func TestPatchSerializerRejectsForeignPoints(t *testing.T) {
	var s PatchSerializer
	_, err := s.SerializeBoundaryPoint(foreignPoint{})
	assert.Error(t, err)

	_, err = s.DeserializeBoundaryPoint([]byte{0xff, 0x00})
	assert.ErrorIs(t, err, ErrInvalidBlob)
}

func TestInterpolate(t *testing.T) {
	var s PatchSerializer
	a := &PatchPoint{Patch: 1, Local: [2]float64{0, 0}}
	b := &PatchPoint{Patch: 1, Local: [2]float64{1, 0.5}}

	mid, ok := s.Interpolate([]Point{a, b})
	require.True(t, ok)
	assert.Equal(t, &PatchPoint{Patch: 1, Local: [2]float64{0.5, 0.25}}, mid)

	c := &PatchPoint{Patch: 2}
	_, ok = s.Interpolate([]Point{a, c})
	assert.False(t, ok)

	_, ok = s.Interpolate([]Point{a, nil})
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(&PatchPoint{}, nil))
	assert.False(t, Equal(&PatchPoint{Patch: 1}, &PatchPoint{Patch: 2}))
}
