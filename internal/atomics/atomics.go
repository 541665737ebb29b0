// Package atomics provides the portable atomic primitives the synchronization
// core is built on. Every shared word the core spins on or updates
// concurrently goes through one of these wrappers; the only plain fields in
// internal/synclock's queue nodes are the class tag (written before the node
// is published) and the freelist linkage nextCell.
//
// All operations carry sequentially-consistent semantics, matching Go's
// sync/atomic guarantees on every supported platform. There is no portable
// equivalent of the reference implementation's inlined x86 CAS/AND assembly,
// and none is needed: the stdlib atomics already compile to the same
// instructions on amd64/arm64, so a hand-rolled asm fast path would only
// reproduce what the compiler already emits.
package atomics

import "sync/atomic"

// Word is the machine-word signed integer type every primitive below
// operates on. The synchronization core never interprets a Word as
// anything wider than its bit pattern (flag bits, counts, or an offset).
type Word = atomic.Int64

// Add atomically adds delta to *p. It has no return value, matching the
// reference's void atomic_increment/atomic_add.
func Add(p *Word, delta int64) {
	p.Add(delta)
}

// And atomically ANDs *p with mask.
func And(p *Word, mask int64) {
	p.And(mask)
}

// Or atomically ORs *p with mask.
func Or(p *Word, mask int64) {
	p.Or(mask)
}

// FetchAdd atomically adds delta to *p and returns the prior value.
func FetchAdd(p *Word, delta int64) int64 {
	return p.Add(delta) - delta
}

// Exchange atomically stores v into *p and returns the prior value.
func Exchange(p *Word, v int64) int64 {
	return p.Swap(v)
}

// CAS performs a boolean compare-and-swap: if *p == old, it is set to
// newVal and CAS returns true; otherwise *p is left untouched and CAS
// returns false.
func CAS(p *Word, old, newVal int64) bool {
	return p.CompareAndSwap(old, newVal)
}

// Load atomically reads *p. Like the other primitives it is sequentially
// consistent; the synclock package uses it mainly as a spin-observation
// read in loop conditions.
func Load(p *Word) int64 {
	return p.Load()
}

// Store atomically stores v into *p. Used both for single-threaded
// initialization (see synclock's initSimple / initQueued) and for publishing
// a link (e.g. a predecessor's next pointer) once ownership of the write
// has already been established by some other atomic op (an exchange or a
// winning CAS) — the happens-before edge comes from that other op, this
// call just needs to be race-detector-safe and visible to the next atomic
// load of the same word.
func Store(p *Word, v int64) {
	p.Store(v)
}

// Ref is an offset-typed reference into a shared arena: an index/offset
// newtype rather than a native pointer, so that graphs of queue nodes can
// be modeled without the aliasing a pointer-based lock-free structure would
// otherwise force on the implementation. Zero is the sentinel "no
// reference" value throughout the core, mirroring the reference
// implementation's use of offset 0 as "null".
type Ref = uint32

// NoRef is the sentinel empty reference.
const NoRef Ref = 0

// RefWord is the atomic storage type for a Ref. Refs are stored in the same
// atomic.Int64 words as everything else so CAS/exchange/fetch-add apply
// uniformly; RefOf and WordOf convert between the two without any unsafe
// pointer cast.
type RefWord = Word

// RefOf narrows a value read back from a RefWord down to a Ref.
func RefOf(v int64) Ref {
	return Ref(v)
}

// WordOf widens a Ref up to the int64 representation used by the Word-typed
// primitives above.
func WordOf(r Ref) int64 {
	return int64(r)
}
