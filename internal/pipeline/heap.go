package pipeline

import "container/heap"

// jobHeap orders waiting items by priority, highest first, falling
// back to submission order so equal-priority items stay FIFO-ish
type jobHeap []*jobItem

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority > h[j].job.Priority
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x interface{}) {
	item := x.(*jobItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// push and pop are the lock-held helpers used by the pipeline
func (p *Pipeline) push(item *jobItem) {
	heap.Push(&p.queue, item)
}

func (p *Pipeline) pop() *jobItem {
	return heap.Pop(&p.queue).(*jobItem)
}
