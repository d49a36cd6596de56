package ringbuf

import "fmt"

// DefaultCapacity is the number of records kept when no capacity is configured.
const DefaultCapacity = 10

// Entry is one committed record. Data includes the trailing terminator and
// must not be modified by callers.
type Entry struct {
	Data []byte
}

// Size returns the record length in bytes.
func (e Entry) Size() int64 {
	return int64(len(e.Data))
}

// Store is a circular array of records with overwrite-oldest eviction.
type Store struct {
	slots []Entry
	in    int
	out   int
	full  bool
	total int64
}

// New allocates a store with the given number of slots.
func New(capacity int) (*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring capacity must be positive, got %d", capacity)
	}
	return &Store{slots: make([]Entry, capacity)}, nil
}

// Init resets every cursor and slot to the empty state.
func (s *Store) Init() {
	clear(s.slots)
	s.in = 0
	s.out = 0
	s.full = false
	s.total = 0
}

// Teardown releases every occupied record and leaves the store empty.
func (s *Store) Teardown() {
	s.Init()
}

// Cap returns the number of slots.
func (s *Store) Cap() int {
	return len(s.slots)
}

// Len returns the number of occupied slots.
func (s *Store) Len() int {
	if s.full {
		return len(s.slots)
	}
	n := s.in - s.out
	if n < 0 {
		n += len(s.slots)
	}
	return n
}

// Full reports whether every slot is occupied.
func (s *Store) Full() bool {
	return s.full
}

// TotalSize returns the sum of the sizes of all occupied records.
func (s *Store) TotalSize() int64 {
	return s.total
}

// Add commits rec as the newest record, evicting the oldest one when the
// store is full. The store takes ownership of rec.
func (s *Store) Add(rec []byte) {
	if s.full {
		s.out = s.next(s.out)
	}
	s.total -= s.slots[s.in].Size()
	s.slots[s.in] = Entry{Data: rec}
	s.total += int64(len(rec))
	s.in = s.next(s.in)
	s.full = s.in == s.out
}

// FindByOffset resolves an absolute byte offset to the record holding it and
// the offset within that record.
func (s *Store) FindByOffset(offset int64) (Entry, int64, error) {
	if offset < 0 || offset >= s.total {
		return Entry{}, 0, ErrNotFound
	}
	var seen int64
	for i, n := 0, s.Len(); i < n; i++ {
		entry := s.slots[s.physical(i)]
		if offset < seen+entry.Size() {
			return entry, offset - seen, nil
		}
		seen += entry.Size()
	}
	return Entry{}, 0, ErrNotFound
}

// Locate returns the absolute offset of byte intra within the record at the
// given logical index (0 is the oldest record).
func (s *Store) Locate(index int, intra int64) (int64, error) {
	if index < 0 || index >= s.Len() {
		return 0, fmt.Errorf("record %d of %d: %w", index, s.Len(), ErrOutOfRange)
	}
	var offset int64
	for i := 0; i < index; i++ {
		offset += s.slots[s.physical(i)].Size()
	}
	entry := s.slots[s.physical(index)]
	if intra < 0 || intra >= entry.Size() {
		return 0, fmt.Errorf("offset %d in record %d of size %d: %w", intra, index, entry.Size(), ErrInvalidOffset)
	}
	return offset + intra, nil
}

// At returns the record at a logical index.
func (s *Store) At(index int) (Entry, error) {
	if index < 0 || index >= s.Len() {
		return Entry{}, fmt.Errorf("record %d of %d: %w", index, s.Len(), ErrOutOfRange)
	}
	return s.slots[s.physical(index)], nil
}

// Each calls fn for every occupied record in logical order until fn returns false.
func (s *Store) Each(fn func(index int, offset int64, entry Entry) bool) {
	var offset int64
	for i, n := 0, s.Len(); i < n; i++ {
		entry := s.slots[s.physical(i)]
		if !fn(i, offset, entry) {
			return
		}
		offset += entry.Size()
	}
}

// Entries returns the occupied records oldest first.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, s.Len())
	s.Each(func(_ int, _ int64, entry Entry) bool {
		out = append(out, entry)
		return true
	})
	return out
}

func (s *Store) physical(logical int) int {
	return (s.out + logical) % len(s.slots)
}

func (s *Store) next(i int) int {
	i++
	if i == len(s.slots) {
		return 0
	}
	return i
}
