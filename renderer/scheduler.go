package renderer

import (
	"math"
	"time"
)

// BlockStat records how long a rasterizer worker took for its block in the
// previous frame.
type BlockStat struct {
	BlockH    uint32
	BlockTime time.Duration
}

// The BlockScheduler interface is implemented by all block scheduling
// algorithms. Schedule splits a frame into horizontal blocks, one per
// worker, and returns the block height assigned to each worker. The
// assigned heights always add up to frameH.
type BlockScheduler interface {
	Schedule(last []BlockStat, frameH uint32) []uint32
}

// The even scheduler assigns the same number of rows to every worker.
type evenScheduler struct{}

// Create a scheduler that splits frames into equally sized blocks.
func NewEvenScheduler() BlockScheduler {
	return evenScheduler{}
}

func (evenScheduler) Schedule(last []BlockStat, frameH uint32) []uint32 {
	return evenSplit(len(last), frameH)
}

func evenSplit(workers int, frameH uint32) []uint32 {
	out := make([]uint32, workers)
	if workers == 0 {
		return out
	}
	rows := frameH / uint32(workers)
	for idx := range out {
		out[idx] = rows
	}
	out[0] += frameH - rows*uint32(workers)
	return out
}

// The perfect scheduler assumes that the rasterization cost of each row is
// approximately the same between two subsequent frames. Rows covered by
// window panes cost more than background rows so blocks drift toward
// equal render times.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance.
func NewPerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// When previous frame information is available the scheduler uses the
// following formula for estimating the workload for worker w and frame i+1:
// w_i, f_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i / time_i)
func (sch *perfectScheduler) Schedule(last []BlockStat, frameH uint32) []uint32 {
	// If this is the first time we schedule, the number of workers has
	// changed or we lack timings, fall back to an even split
	usable := len(sch.blockAssignment) == len(last)
	for _, stat := range last {
		usable = usable && stat.BlockTime > 0
	}
	if !usable || len(last) == 0 {
		sch.blockAssignment = evenSplit(len(last), frameH)
		return sch.blockAssignment
	}

	var total float64
	for _, stat := range last {
		total += float64(stat.BlockH) / float64(stat.BlockTime)
	}
	if total == 0 {
		sch.blockAssignment = evenSplit(len(last), frameH)
		return sch.blockAssignment
	}

	scaler := float64(frameH) / total
	scheduledRows := 0
	for idx, stat := range last {
		rows := math.Max(1.0, math.Floor(float64(stat.BlockH)/float64(stat.BlockTime)*scaler))
		sch.blockAssignment[idx] = uint32(rows)
		scheduledRows += int(rows)
	}

	// Rows that don't add up to the frame height go to the first worker;
	// a surplus is taken from the largest blocks.
	missing := int(frameH) - scheduledRows
	if missing >= 0 {
		sch.blockAssignment[0] += uint32(missing)
		return sch.blockAssignment
	}
	for missing < 0 {
		largest := 0
		for idx, rows := range sch.blockAssignment {
			if rows > sch.blockAssignment[largest] {
				largest = idx
			}
		}
		if sch.blockAssignment[largest] <= 1 {
			break
		}
		sch.blockAssignment[largest]--
		missing++
	}
	return sch.blockAssignment
}
