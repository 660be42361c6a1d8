package comm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeshExchangeBetweenNeighbours(t *testing.T) {
	mesh, err := NewMesh(3)
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	got := make([][2]float64, 3)
	for r := 0; r < 3; r++ {
		wg.Add(1)
		go func(ep *MeshEndpoint) {
			defer wg.Done()
			rank := ep.Rank()
			left, right := -1.0, -1.0
			if rank > 0 {
				v, err := ep.Exchange(ctx, rank-1, float64(rank*10+1))
				assert.NoError(t, err)
				left = v
			}
			if rank < ep.Size()-1 {
				v, err := ep.Exchange(ctx, rank+1, float64(rank*10+2))
				assert.NoError(t, err)
				right = v
			}
			got[rank] = [2]float64{left, right}
		}(mesh.Endpoint(r))
	}
	wg.Wait()

	assert.Equal(t, [2]float64{-1, 11}, got[0])
	assert.Equal(t, [2]float64{2, 21}, got[1])
	assert.Equal(t, [2]float64{12, -1}, got[2])
}

func TestMeshExchangeRejectsNonNeighbour(t *testing.T) {
	mesh, err := NewMesh(4)
	require.NoError(t, err)

	_, err = mesh.Endpoint(0).Exchange(context.Background(), 2, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommunication)

	var link *LinkError
	require.True(t, errors.As(err, &link))
	assert.Equal(t, 0, link.Rank)
	assert.Equal(t, 2, link.Peer)
}

func TestMeshSegmentsArriveInOrderAndAreCopied(t *testing.T) {
	mesh, err := NewMesh(2)
	require.NoError(t, err)
	ctx := context.Background()

	values := []float64{1, 2, 3}
	require.NoError(t, mesh.Endpoint(1).SendSegment(ctx, Segment{Start: 5, Values: values}))
	values[0] = 99
	require.NoError(t, mesh.Endpoint(1).SendSegment(ctx, Segment{Start: 6, Values: []float64{4}}))

	first, err := mesh.Endpoint(0).RecvSegment(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Segment{Start: 5, Values: []float64{1, 2, 3}}, first)

	second, err := mesh.Endpoint(0).RecvSegment(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, second.Start)
}

func TestMeshCoordinatorCannotSendSegment(t *testing.T) {
	mesh, err := NewMesh(2)
	require.NoError(t, err)
	err = mesh.Endpoint(0).SendSegment(context.Background(), Segment{})
	assert.ErrorIs(t, err, ErrCommunication)
}

func TestMeshBroadcast(t *testing.T) {
	mesh, err := NewMesh(3)
	require.NoError(t, err)
	ctx := context.Background()

	sig := Signal{Pause: true, Held: 42}
	out, err := mesh.Endpoint(0).Broadcast(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, sig, out)

	for r := 1; r < 3; r++ {
		got, err := mesh.Endpoint(r).Broadcast(ctx, Signal{Quit: true})
		require.NoError(t, err)
		assert.Equal(t, sig, got, "rank %d", r)
	}
}

func TestMeshShutdownUnblocksReceivers(t *testing.T) {
	mesh, err := NewMesh(2)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := mesh.Endpoint(1).Exchange(context.Background(), 0, 1)
		done <- err
	}()
	mesh.Shutdown()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCommunication)
	case <-time.After(2 * time.Second):
		t.Fatal("exchange did not return after shutdown")
	}
}

func TestMeshReceiveTimeout(t *testing.T) {
	mesh, err := NewMesh(2, WithReceiveTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = mesh.Endpoint(0).RecvSegment(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommunication)
}

func TestNewMeshRejectsEmpty(t *testing.T) {
	_, err := NewMesh(0)
	assert.ErrorIs(t, err, ErrCommunication)
}

func TestSignalCodec(t *testing.T) {
	cases := []Signal{
		{},
		{Pause: true},
		{Reset: true, Held: 17},
		{Quit: true, Held: -1},
		{Pause: true, Reset: true, Quit: true, Held: 1 << 40},
	}
	for _, sig := range cases {
		got, err := decodeSignal(encodeSignal(sig))
		require.NoError(t, err)
		assert.Equal(t, sig, got)
	}
	_, err := decodeSignal([]byte{1, 2})
	assert.Error(t, err)
}

func TestValueChunksDecodeInto(t *testing.T) {
	values := []float64{0, -1.5, 3.25e-300}
	got := decodeValues([]float64{7}, encodeValues(values))
	assert.Equal(t, []float64{7, 0, -1.5, 3.25e-300}, got)
}

func TestSegmentHeaderBoundsCount(t *testing.T) {
	start, count, err := decodeHeader(encodeHeader(40, 25))
	require.NoError(t, err)
	assert.Equal(t, 40, start)
	assert.Equal(t, 25, count)

	for _, n := range []int{-1, MaxSegmentLen + 1, 1 << 62} {
		_, _, err := decodeHeader(encodeHeader(0, n))
		assert.Error(t, err, "count %d", n)
	}
	_, _, err = decodeHeader([]byte{1, 2, 3})
	assert.Error(t, err)
}
