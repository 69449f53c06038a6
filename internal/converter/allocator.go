package converter

import "fmt"

// Decision tells the batch writer where the next batch goes.
type Decision struct {
	// Target is the 1-based index of the sheet or file to write to.
	Target int

	// Fresh is true when Target has just been opened and still needs its
	// header row.
	Fresh bool
}

// Allocator tracks how many rows went into each sheet or file and decides,
// before every batch, whether the current target still has room.
//
// A batch is never split: if it does not fit into the current target, the
// allocator rotates to the next one before any of its rows is written.
type Allocator struct {
	maxRows int
	rotate  bool

	target   int
	inTarget int

	processed int64
	expected  int64
}

// NewAllocator creates an allocator for targets holding at most maxRows data
// rows. With rotate false there is only one target and running out of room
// is an error.
func NewAllocator(maxRows int, rotate bool) *Allocator {
	return &Allocator{maxRows: maxRows, rotate: rotate, expected: -1}
}

// Allocate decides where a batch of n rows goes. It does not change the row
// counters; call Commit once the batch has been written.
//
// RETURNS:
//   - The decision. Fresh is set when a target was opened or rotated to.
//   - ErrConfiguration if n can never fit, or if the single target is full.
func (a *Allocator) Allocate(n int) (Decision, error) {
	if n > a.maxRows {
		return Decision{}, newError(ErrConfiguration, "allocate", "",
			fmt.Errorf("batch of %d rows exceeds the limit of %d rows per target", n, a.maxRows))
	}

	if a.target == 0 {
		a.target = 1
		a.inTarget = 0
		return Decision{Target: a.target, Fresh: true}, nil
	}

	if a.inTarget+n > a.maxRows {
		if !a.rotate {
			return Decision{}, newError(ErrConfiguration, "allocate", "",
				fmt.Errorf("input has more than %d data rows and does not fit in one sheet; use sheets or split mode", a.maxRows))
		}
		a.target++
		a.inTarget = 0
		return Decision{Target: a.target, Fresh: true}, nil
	}

	return Decision{Target: a.target}, nil
}

// Commit records that n data rows were written to the current target.
func (a *Allocator) Commit(n int) {
	a.inTarget += n
	a.processed += int64(n)
}

// Target returns the current target index, 0 before the first Allocate.
func (a *Allocator) Target() int {
	return a.target
}

// InTarget returns the data rows written to the current target.
func (a *Allocator) InTarget() int {
	return a.inTarget
}

// Processed returns the data rows written so far.
func (a *Allocator) Processed() int64 {
	return a.processed
}

// SetExpected records the estimated total number of data rows. A negative
// value means unknown.
func (a *Allocator) SetExpected(n int64) {
	a.expected = n
}

// Expected returns the estimated total number of data rows, or -1.
func (a *Allocator) Expected() int64 {
	return a.expected
}

// ExpectedTargets estimates how many targets the input will need, or -1 when
// the total is unknown. With batches of chunkSize rows, each target holds
// whole batches only, so its effective capacity rounds down to a multiple of
// chunkSize.
func (a *Allocator) ExpectedTargets(chunkSize int) int64 {
	if a.expected < 0 {
		return -1
	}
	if a.expected == 0 {
		return 1
	}
	perTarget := int64(a.maxRows)
	if chunkSize > 0 && chunkSize <= a.maxRows {
		perTarget = int64(a.maxRows/chunkSize) * int64(chunkSize)
	}
	return (a.expected + perTarget - 1) / perTarget
}
