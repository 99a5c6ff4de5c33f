package queue

import (
	"fmt"

	"github.com/holiman/uint256"

	"liquidstake/native/common"
)

// MaxPageSize bounds Page results and is also the default page size.
const MaxPageSize = 50

// Iterator walks the queue from head to tail. It reads lazily, so each Next
// costs one storage lookup, and it never mutates the queue.
type Iterator struct {
	q         *Queue
	nextID    uint64
	remaining int
	current   *Node
	err       error
	started   bool
}

// Snapshot returns an iterator over at most max nodes starting at the head.
// A non-positive max yields an exhausted iterator.
func (q *Queue) Snapshot(max int) *Iterator {
	return &Iterator{q: q, remaining: max}
}

// Next advances the iterator and reports whether a node is available.
func (it *Iterator) Next() bool {
	if it.err != nil || it.remaining <= 0 {
		return false
	}
	if !it.started {
		it.started = true
		root, err := it.q.Root()
		if err != nil {
			it.err = err
			return false
		}
		it.nextID = root.HeadID
	}
	if it.nextID == 0 {
		return false
	}
	node, err := it.q.Node(it.nextID)
	if err != nil {
		it.err = err
		return false
	}
	it.current = node
	it.nextID = node.Next
	it.remaining--
	return true
}

// Node returns the node loaded by the last successful Next.
func (it *Iterator) Node() *Node {
	return it.current
}

// Err returns the first error encountered while iterating.
func (it *Iterator) Err() error {
	return it.err
}

// List collects up to max nodes in FIFO order.
func (q *Queue) List(max int) ([]*Node, error) {
	it := q.Snapshot(max)
	var nodes []*Node
	for it.Next() {
		nodes = append(nodes, it.Node())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// PageResult is one page of an audit listing. NextCursor is zero once the
// tail has been returned.
type PageResult struct {
	Root       Root
	Nodes      []*Node
	NextCursor uint64
}

// Page lists nodes following cursor, the id of the last node of the previous
// page. A zero cursor starts at the head.
func (q *Queue) Page(cursor uint64, limit int) (*PageResult, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	root, err := q.Root()
	if err != nil {
		return nil, err
	}
	start := root.HeadID
	if cursor != 0 {
		node, err := q.Node(cursor)
		if err != nil {
			return nil, fmt.Errorf("queue: cursor: %w", err)
		}
		start = node.Next
	}
	result := &PageResult{Root: root}
	id := start
	for id != 0 && len(result.Nodes) < limit {
		node, err := q.Node(id)
		if err != nil {
			return nil, err
		}
		result.Nodes = append(result.Nodes, node)
		id = node.Next
	}
	if id != 0 && len(result.Nodes) > 0 {
		result.NextCursor = result.Nodes[len(result.Nodes)-1].ID
	}
	return result, nil
}

// Stats summarises a validated queue.
type Stats struct {
	Length uint64
	Total  *uint256.Int
}

// Validate walks the list in both directions and checks that the linkage
// agrees with the root. It returns the node count and the sum of values.
func (q *Queue) Validate() (Stats, error) {
	root, err := q.Root()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Total: common.Zero()}
	if root.Empty() {
		if root.HeadID != 0 || root.TailID != 0 {
			return stats, fmt.Errorf("%w: empty root points at %d/%d", ErrInconsistent, root.HeadID, root.TailID)
		}
		return stats, nil
	}
	if root.HeadID == 0 || root.TailID == 0 {
		return stats, fmt.Errorf("%w: length %d with missing head or tail", ErrInconsistent, root.Length)
	}

	var prev uint64
	id := root.HeadID
	for id != 0 {
		if stats.Length == root.Length {
			return stats, fmt.Errorf("%w: forward walk exceeds length %d", ErrInconsistent, root.Length)
		}
		node, err := q.Node(id)
		if err != nil {
			return stats, err
		}
		if node.Prev != prev {
			return stats, fmt.Errorf("%w: node %d prev %d, expected %d", ErrInconsistent, id, node.Prev, prev)
		}
		if node.ID > root.LastID {
			return stats, fmt.Errorf("%w: node %d above last id %d", ErrInconsistent, id, root.LastID)
		}
		total, err := common.Add(stats.Total, node.Value)
		if err != nil {
			return stats, err
		}
		stats.Total = total
		stats.Length++
		prev = id
		id = node.Next
	}
	if prev != root.TailID {
		return stats, fmt.Errorf("%w: forward walk ended at %d, tail is %d", ErrInconsistent, prev, root.TailID)
	}
	if stats.Length != root.Length {
		return stats, fmt.Errorf("%w: walked %d nodes, root length %d", ErrInconsistent, stats.Length, root.Length)
	}

	var back uint64
	var next uint64
	id = root.TailID
	for id != 0 {
		if back == root.Length {
			return stats, fmt.Errorf("%w: backward walk exceeds length %d", ErrInconsistent, root.Length)
		}
		node, err := q.Node(id)
		if err != nil {
			return stats, err
		}
		if node.Next != next {
			return stats, fmt.Errorf("%w: node %d next %d, expected %d", ErrInconsistent, id, node.Next, next)
		}
		back++
		next = id
		id = node.Prev
	}
	if next != root.HeadID || back != root.Length {
		return stats, fmt.Errorf("%w: backward walk ended at %d after %d nodes", ErrInconsistent, next, back)
	}
	return stats, nil
}
