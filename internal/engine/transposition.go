package engine

import (
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/nilsberg/chesscore/internal/board"
)

// TTFlag indicates the type of bound stored in a transposition table entry.
type TTFlag uint8

const (
	TTExact      TTFlag = iota
	TTLowerBound        // fail-high: score is a lower bound
	TTUpperBound        // fail-low: score is an upper bound
)

// TTEntry is the decoded, torn-read-safe view of one bucket.
type TTEntry struct {
	Move       board.Move
	Score      int16
	StaticEval int16
	Depth      int8
	Flag       TTFlag
	Generation uint8
}

// bucket holds one slot as two atomic words: data packs the entry fields,
// key is hash XOR data. A reader loads key then data (in that order) and
// recomputes hash XOR data; a mismatch means either a genuine miss or a
// write tore the two loads apart, and in both cases the probe reports a
// miss rather than ever returning corrupted fields. No lock is taken on
// either the read or the write path.
type bucket struct {
	key  atomic.Uint64
	data atomic.Uint64
}

const (
	ttScoreShift  = 0
	ttEvalShift   = 16
	ttMoveShift   = 32
	ttDepthShift  = 48
	ttBoundShift  = 56
	ttGenShift    = 58
	ttGenMask     = 0x3F
	ttGenIncr     = uint64(1) << ttGenShift
)

func packTTData(move board.Move, score, staticEval int16, depth int8, flag TTFlag, gen uint8) uint64 {
	return uint64(uint16(score))<<ttScoreShift |
		uint64(uint16(staticEval))<<ttEvalShift |
		uint64(uint16(move))<<ttMoveShift |
		uint64(uint8(depth))<<ttDepthShift |
		uint64(flag&0x3)<<ttBoundShift |
		uint64(gen&ttGenMask)<<ttGenShift
}

func unpackTTData(data uint64) TTEntry {
	return TTEntry{
		Score:      int16(uint16(data >> ttScoreShift)),
		StaticEval: int16(uint16(data >> ttEvalShift)),
		Move:       board.Move(uint16(data >> ttMoveShift)),
		Depth:      int8(uint8(data >> ttDepthShift)),
		Flag:       TTFlag((data >> ttBoundShift) & 0x3),
		Generation: uint8((data >> ttGenShift) & ttGenMask),
	}
}

// TranspositionTable is a shared, wait-free-on-probe hash table. Concurrent
// workers in a Lazy-SMP pool probe and store through the same table without
// any mutex: probes never block behind a writer (requirement a/b of the
// shared-TT contract).
type TranspositionTable struct {
	buckets []bucket
	mask    uint64
	gen     atomic.Uint32

	hits   atomic.Uint64
	probes atomic.Uint64
}

// NewTranspositionTable builds a table sized to sizeMB megabytes, rounded
// down to a power-of-two bucket count.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	const bucketSize = 16 // two uint64 words
	numBuckets := (uint64(sizeMB) * 1024 * 1024) / bucketSize
	numBuckets = roundDownToPowerOf2(numBuckets)
	if numBuckets == 0 {
		numBuckets = 1
	}
	return &TranspositionTable{
		buckets: make([]bucket, numBuckets),
		mask:    numBuckets - 1,
	}
}

func roundDownToPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

func (tt *TranspositionTable) index(hash uint64) uint64 {
	return hash & tt.mask
}

// singularKey mixes the exclude move into the probe/store key for a
// singular-extension search, through xxhash rather than a raw XOR, so the
// excluded search occupies a bucket far from the full search's entry
// instead of merely flipping a handful of low bits of the index.
func singularKey(hash uint64, exclude board.Move) uint64 {
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(hash >> (8 * i))
	}
	ex := uint64(exclude)
	for i := 0; i < 8; i++ {
		buf[8+i] = byte(ex >> (8 * i))
	}
	return xxhash.Sum64(buf[:])
}

// Probe returns the decoded entry for hash and whether it was present.
// Wait-free: it never takes a lock and never spins.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes.Add(1)
	idx := tt.index(hash)
	b := &tt.buckets[idx]

	key := b.key.Load()
	data := b.data.Load()
	if key == 0 && data == 0 {
		return TTEntry{}, false
	}
	if key^data != hash {
		return TTEntry{}, false
	}
	entry := unpackTTData(data)
	tt.hits.Add(1)
	return entry, true
}

// Store writes an entry, subject to a replacement policy: a bucket from an
// older generation is always overwritten, a same-generation bucket only
// loses to an equal-or-deeper result, and a same-generation EXACT entry is
// never clobbered by a shallower non-EXACT one.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int, staticEval int, flag TTFlag, move board.Move) {
	idx := tt.index(hash)
	b := &tt.buckets[idx]

	curGen := uint8(tt.gen.Load() & ttGenMask)

	oldData := b.data.Load()
	oldKey := b.key.Load()
	occupied := oldKey != 0 || oldData != 0
	validOld := oldKey != 0 && oldKey^oldData == hash
	old := unpackTTData(oldData)

	if move == board.NoMove && validOld && old.Move != board.NoMove {
		move = old.Move
	}

	if occupied && old.Generation == curGen {
		if depth < int(old.Depth) {
			return
		}
		if depth == int(old.Depth) && old.Flag == TTExact && flag != TTExact {
			return
		}
	}

	data := packTTData(move, int16(score), int16(staticEval), int8(depth), flag, curGen)
	// Publish data first, key second: a reader that loads the new key and
	// the old data (or vice versa) fails the key^data==hash check above.
	b.data.Store(data)
	b.key.Store(hash ^ data)
}

// NewSearch advances the generation counter so stale entries lose
// replacement priority without needing to be zeroed.
func (tt *TranspositionTable) NewSearch() {
	tt.gen.Add(1)
}

// Clear zeroes every bucket.
func (tt *TranspositionTable) Clear() {
	for i := range tt.buckets {
		tt.buckets[i].key.Store(0)
		tt.buckets[i].data.Store(0)
	}
	tt.gen.Store(0)
	tt.hits.Store(0)
	tt.probes.Store(0)
}

// HashFull samples the table and returns permille occupancy for the
// current generation, matching the UCI "hashfull" field's semantics.
func (tt *TranspositionTable) HashFull() int {
	sampleSize := 1000
	if uint64(sampleSize) > uint64(len(tt.buckets)) {
		sampleSize = len(tt.buckets)
	}
	if sampleSize == 0 {
		return 0
	}
	curGen := uint8(tt.gen.Load() & ttGenMask)
	used := 0
	for i := 0; i < sampleSize; i++ {
		data := tt.buckets[i].data.Load()
		key := tt.buckets[i].key.Load()
		if key == 0 && data == 0 {
			continue
		}
		entry := unpackTTData(data)
		if entry.Generation == curGen {
			used++
		}
	}
	return (used * 1000) / sampleSize
}

func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}

func (tt *TranspositionTable) Size() uint64 {
	return uint64(len(tt.buckets))
}

// FixMateScoreProbe converts a score read from the table into a
// root-relative score by adding back the ply distance at which the mate
// was found, so mate scores compare correctly regardless of the ply they
// were stored at.
func FixMateScoreProbe(score, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// FixMateScoreAdd is the exact inverse of FixMateScoreProbe, applied before
// a score is written to the table.
func FixMateScoreAdd(score, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
