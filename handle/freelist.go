package handle

import "container/heap"

// freeList is a min-heap of recycled handles so the lowest free index is
// always reused first.
type freeList []Handle

func (f freeList) Len() int           { return len(f) }
func (f freeList) Less(i, j int) bool { return f[i] < f[j] }
func (f freeList) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }

func (f *freeList) Push(x any) { *f = append(*f, x.(Handle)) }

func (f *freeList) Pop() any {
	old := *f
	n := len(old)
	h := old[n-1]
	*f = old[:n-1]
	return h
}

func (f *freeList) push(h Handle) { heap.Push(f, h) }

func (f *freeList) pop() (Handle, bool) {
	if f.Len() == 0 {
		return 0, false
	}
	return heap.Pop(f).(Handle), true
}
