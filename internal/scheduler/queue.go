package scheduler

import (
	"cmp"
	"container/heap"
	"slices"
	"sync/atomic"
)

type task struct {
	info   TaskInfo
	status atomic.Int32
	index  int
}

func (t *task) cas(from, to Status) bool {
	return t.status.CompareAndSwap(int32(from), int32(to))
}

func (t *task) snapshot() TaskInfo {
	info := t.info
	info.Status = Status(t.status.Load())
	return info
}

// taskQueue is a min-heap ordered by fire time, then enqueue sequence.
type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	a, b := q[i].info, q[j].info
	if !a.FireAt.Equal(b.FireAt) {
		return a.FireAt.Before(b.FireAt)
	}
	return a.Seq < b.Seq
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

func (q *taskQueue) peek() *task {
	if len(*q) == 0 {
		return nil
	}
	return (*q)[0]
}

func (q *taskQueue) remove(t *task) {
	if t.index < 0 || t.index >= len(*q) || (*q)[t.index] != t {
		return
	}
	heap.Remove(q, t.index)
}

func sortTasks(ts []*task) {
	slices.SortFunc(ts, func(a, b *task) int {
		if c := a.info.FireAt.Compare(b.info.FireAt); c != 0 {
			return c
		}
		return cmp.Compare(a.info.Seq, b.info.Seq)
	})
}
