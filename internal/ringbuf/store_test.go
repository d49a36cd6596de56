package ringbuf_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringlog/internal/ringbuf"
)

func newStore(t *testing.T, capacity int, records ...string) *ringbuf.Store {
	t.Helper()
	s, err := ringbuf.New(capacity)
	require.NoError(t, err)
	for _, r := range records {
		s.Add([]byte(r))
	}
	return s
}

func payloads(s *ringbuf.Store) []string {
	var out []string
	for _, e := range s.Entries() {
		out = append(out, string(e.Data))
	}
	return out
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	_, err := ringbuf.New(0)
	require.Error(t, err)
	_, err = ringbuf.New(-3)
	require.Error(t, err)
}

func TestFindByOffsetTwoRecords(t *testing.T) {
	s := newStore(t, ringbuf.DefaultCapacity, "abc\n", "de\n")

	assert.Equal(t, int64(7), s.TotalSize())

	entry, intra, err := s.FindByOffset(0)
	require.NoError(t, err)
	assert.Equal(t, "abc\n", string(entry.Data))
	assert.Equal(t, int64(0), intra)

	entry, intra, err = s.FindByOffset(4)
	require.NoError(t, err)
	assert.Equal(t, "de\n", string(entry.Data))
	assert.Equal(t, int64(0), intra)

	entry, intra, err = s.FindByOffset(5)
	require.NoError(t, err)
	assert.Equal(t, "de\n", string(entry.Data))
	assert.Equal(t, int64(1), intra)

	_, _, err = s.FindByOffset(7)
	assert.ErrorIs(t, err, ringbuf.ErrNotFound)
	_, _, err = s.FindByOffset(-1)
	assert.ErrorIs(t, err, ringbuf.ErrNotFound)
}

func TestAddEvictsOldestWhenFull(t *testing.T) {
	s := newStore(t, 2, "a\n", "b\n", "c\n")

	assert.Equal(t, []string{"b\n", "c\n"}, payloads(s))
	assert.True(t, s.Full())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, int64(4), s.TotalSize())
}

func TestLocateOnWrappedStore(t *testing.T) {
	s := newStore(t, 2, "a\n", "b\n", "c\n")

	offset, err := s.Locate(1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), offset)

	entry, intra, err := s.FindByOffset(offset)
	require.NoError(t, err)
	assert.Equal(t, "c\n", string(entry.Data))
	assert.Equal(t, int64(0), intra)

	_, err = s.Locate(5, 0)
	assert.ErrorIs(t, err, ringbuf.ErrOutOfRange)
	_, err = s.Locate(-1, 0)
	assert.ErrorIs(t, err, ringbuf.ErrOutOfRange)
}

func TestLocateRejectsOffsetPastRecord(t *testing.T) {
	s := newStore(t, 4, "abc\n", "de\n")

	_, err := s.Locate(1, 3)
	assert.ErrorIs(t, err, ringbuf.ErrInvalidOffset)
	_, err = s.Locate(0, -1)
	assert.ErrorIs(t, err, ringbuf.ErrInvalidOffset)

	offset, err := s.Locate(1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(6), offset)
}

func TestLocateEmptyStore(t *testing.T) {
	s := newStore(t, 3)
	_, err := s.Locate(0, 0)
	assert.ErrorIs(t, err, ringbuf.ErrOutOfRange)
}

func TestCapacityBoundKeepsNewestRecords(t *testing.T) {
	const capacity = 10
	s := newStore(t, capacity)

	var want []string
	for i := 0; i < 37; i++ {
		rec := fmt.Sprintf("write%d\n", i)
		s.Add([]byte(rec))
		want = append(want, rec)
		if len(want) > capacity {
			want = want[1:]
		}

		require.Equal(t, want, payloads(s), "after %d writes", i+1)

		var sum int64
		for _, e := range s.Entries() {
			sum += e.Size()
		}
		require.Equal(t, sum, s.TotalSize(), "size invariant after %d writes", i+1)
	}
}

func TestOffsetsStrictlyIncrease(t *testing.T) {
	s := newStore(t, 5, "one\n", "\n", "three\n", "4\n", "five\n", "six\n", "seven\n")

	prev := int64(-1)
	s.Each(func(index int, offset int64, entry ringbuf.Entry) bool {
		assert.Greater(t, offset, prev, "record %d", index)
		prev = offset
		return true
	})
}

func TestLocateFindRoundTrip(t *testing.T) {
	s := newStore(t, 4, "alpha\n", "be\n", "gamma\n", "d\n", "epsilon\n", "zeta\n")

	for i := 0; i < s.Len(); i++ {
		want, err := s.At(i)
		require.NoError(t, err)
		for b := int64(0); b < want.Size(); b++ {
			offset, err := s.Locate(i, b)
			require.NoError(t, err)

			got, intra, err := s.FindByOffset(offset)
			require.NoError(t, err)
			assert.Equal(t, want.Data, got.Data)
			assert.Equal(t, b, intra)
		}
	}
}

func TestTeardownThenInitMatchesFreshStore(t *testing.T) {
	s := newStore(t, 3, "x\n", "yy\n", "zzz\n", "w\n")
	s.Teardown()
	s.Init()

	fresh := newStore(t, 3)
	assert.Equal(t, fresh, s)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, int64(0), s.TotalSize())

	s.Add([]byte("again\n"))
	assert.Equal(t, []string{"again\n"}, payloads(s))
}

func TestEachStopsEarly(t *testing.T) {
	s := newStore(t, 4, "a\n", "b\n", "c\n")
	visited := 0
	s.Each(func(int, int64, ringbuf.Entry) bool {
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}
