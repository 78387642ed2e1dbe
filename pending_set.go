package admission

import (
	"container/heap"
)

const pendingCap = 64

// recordHeap is a max-heap by priority with FIFO ties.
// Records flagged tail sort after every non-tail record.
type recordHeap []*taskRecord

func (h recordHeap) Len() int { return len(h) }

func (h recordHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.tail != b.tail {
		return !a.tail
	}
	if !a.tail && a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.seq < b.seq
}

func (h recordHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *recordHeap) Push(x any) {
	rec := x.(*taskRecord)
	rec.index = len(*h)
	*h = append(*h, rec)
}

func (h *recordHeap) Pop() any {
	old := *h
	n := len(old)
	rec := old[n-1]
	old[n-1] = nil
	rec.index = -1
	*h = old[:n-1]
	return rec
}

// pendingSet holds records that have not been dispatched yet.
// It is not safe for concurrent use; the scheduler guards it.
type pendingSet struct {
	h recordHeap
}

func newPendingSet() pendingSet {
	return pendingSet{h: make(recordHeap, 0, pendingCap)}
}

func (p *pendingSet) push(rec *taskRecord) {
	heap.Push(&p.h, rec)
}

// pop removes the highest-priority record.
func (p *pendingSet) pop() (*taskRecord, bool) {
	if p.h.Len() == 0 {
		return nil, false
	}
	return heap.Pop(&p.h).(*taskRecord), true
}

func (p *pendingSet) len() int { return p.h.Len() }

// drain empties the set and returns its records in dispatch order.
func (p *pendingSet) drain() []*taskRecord {
	out := make([]*taskRecord, 0, p.h.Len())
	for {
		rec, ok := p.pop()
		if !ok {
			return out
		}
		out = append(out, rec)
	}
}
