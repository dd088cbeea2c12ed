package shareddict

import (
	"github.com/hig-dev/nimbus/pkg/storage"
)

// SegmentRef points at one member segment of a merge plan together with
// the chunk it lives in.
type SegmentRef[T storage.Value] struct {
	Segment *storage.DictionarySegment[T]
	Chunk   *storage.Chunk
	// AlreadyMerged marks segments that referenced a shared dictionary
	// before this pass.
	AlreadyMerged bool
}

// MergePlan is the intermediate record of one group of segments that will
// share a dictionary after the rewrite.
type MergePlan[T storage.Value] struct {
	// SharedDictionary is the current union of all member dictionaries.
	SharedDictionary *storage.Dictionary[T]
	Members          []SegmentRef[T]

	// ContainsNonMergedSegment is set once a newly captured segment joins;
	// only such plans produce rewrites.
	ContainsNonMergedSegment bool
	// ContainsAlreadyMergedSegment is set when a pre-existing shared
	// segment is a member.
	ContainsAlreadyMergedSegment bool

	// NonMergedTotalBytes is the pre-pass footprint of the newly captured
	// member segments.
	NonMergedTotalBytes uint64
	// NonMergedDictionaryBytes is the pre-pass dictionary footprint of the
	// newly captured member segments.
	NonMergedDictionaryBytes uint64
}

// NewMergePlan creates a plan around an initial shared dictionary.
func NewMergePlan[T storage.Value](dict *storage.Dictionary[T]) *MergePlan[T] {
	return &MergePlan[T]{SharedDictionary: dict}
}

// AddMember appends a segment to the plan, updating flags and the byte
// accounting of newly captured segments.
func (p *MergePlan[T]) AddMember(segment *storage.DictionarySegment[T], chunk *storage.Chunk, alreadyMerged bool) {
	if alreadyMerged {
		p.ContainsAlreadyMergedSegment = true
	} else {
		p.ContainsNonMergedSegment = true
		p.NonMergedDictionaryBytes += uint64(segment.Dictionary().ByteSize())
		p.NonMergedTotalBytes += uint64(segment.MemoryUsage())
	}
	p.Members = append(p.Members, SegmentRef[T]{
		Segment:       segment,
		Chunk:         chunk,
		AlreadyMerged: alreadyMerged,
	})
}

// MemberDictionarySizes returns the dictionary sizes of all members,
// optionally extended by one candidate size. The oracle uses these for the
// all-members width check.
func (p *MergePlan[T]) MemberDictionarySizes(extra ...int) []int {
	sizes := make([]int, 0, len(p.Members)+len(extra))
	for _, member := range p.Members {
		sizes = append(sizes, member.Segment.Dictionary().Size())
	}
	sizes = append(sizes, extra...)
	return sizes
}
