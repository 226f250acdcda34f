package scene

import (
	"container/heap"
	"time"
)

// task is a deferred geometry mutation. It only runs if the canvas is still
// in the generation it was scheduled in.
type task struct {
	at  time.Time
	gen uint64
	seq uint64
	run func()
}

// taskQueue is a min-heap on (at, seq).
type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *taskQueue) Push(x any) { *q = append(*q, x.(*task)) }

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// scheduler runs tasks in due order.
type scheduler struct {
	q   taskQueue
	seq uint64
}

func (s *scheduler) schedule(at time.Time, gen uint64, run func()) {
	s.seq++
	heap.Push(&s.q, &task{at: at, gen: gen, seq: s.seq, run: run})
}

// drain runs every task due at or before now. Tasks from another generation
// are dropped without running. It returns how many ran and how many were
// stale.
func (s *scheduler) drain(now time.Time, gen uint64) (ran, stale int) {
	for len(s.q) > 0 && !s.q[0].at.After(now) {
		t := heap.Pop(&s.q).(*task)
		if t.gen != gen {
			stale++
			continue
		}
		t.run()
		ran++
	}
	return ran, stale
}

func (s *scheduler) pending() int { return len(s.q) }
