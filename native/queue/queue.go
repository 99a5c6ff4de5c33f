// Package queue implements a persistent FIFO of claims as a doubly linked
// list over key-addressed storage. Nodes are keyed by a monotonically
// increasing id and a singleton root tracks head, tail and length.
//
// Every mutation goes through the Storage it was created with, so a failed
// unit of work that discards its state overlay also discards the queue
// changes it made.
package queue

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"

	coreerrors "liquidstake/core/errors"
	"liquidstake/crypto"
	"liquidstake/native/common"
)

// Storage abstracts the subset of state manager functionality required by the
// queue.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// ErrInconsistent reports broken linkage found by Validate.
var ErrInconsistent = errors.New("queue: inconsistent linkage")

// Node is one claim in the queue. Prev and Next are zero at the head and tail
// respectively.
type Node struct {
	ID     uint64
	Owner  crypto.Address
	Value  *uint256.Int
	Height uint64
	Prev   uint64
	Next   uint64
}

// Root describes the list as a whole. LastID is the highest id ever handed
// out and survives the queue being emptied.
type Root struct {
	HeadID uint64
	TailID uint64
	Length uint64
	LastID uint64
}

// Empty reports whether the queue holds no nodes.
func (r Root) Empty() bool {
	return r.Length == 0
}

type storedNode struct {
	ID     uint64
	Owner  []byte
	Value  *big.Int
	Height uint64
	Prev   uint64
	Next   uint64
}

func (s *storedNode) toNode() (*Node, error) {
	owner, err := crypto.AddressFromBytes(s.Owner)
	if err != nil {
		return nil, fmt.Errorf("queue: node %d owner: %w", s.ID, err)
	}
	value, err := common.FromBig(s.Value)
	if err != nil {
		return nil, fmt.Errorf("queue: node %d value: %w", s.ID, err)
	}
	return &Node{ID: s.ID, Owner: owner, Value: value, Height: s.Height, Prev: s.Prev, Next: s.Next}, nil
}

func newStoredNode(n *Node) *storedNode {
	return &storedNode{
		ID:     n.ID,
		Owner:  n.Owner.Bytes(),
		Value:  common.ToBig(n.Value),
		Height: n.Height,
		Prev:   n.Prev,
		Next:   n.Next,
	}
}

// Queue is a handle on one namespaced list. It holds no cached state; every
// call reads through to storage.
type Queue struct {
	store     Storage
	namespace string
}

// New binds a queue to the namespace within store.
func New(store Storage, namespace string) *Queue {
	return &Queue{store: store, namespace: namespace}
}

// Root loads the root record, returning the zero root for a fresh queue.
func (q *Queue) Root() (Root, error) {
	if q == nil || q.store == nil {
		return Root{}, fmt.Errorf("queue: storage unavailable")
	}
	var root Root
	if _, err := q.store.KVGet(rootKey(q.namespace), &root); err != nil {
		return Root{}, fmt.Errorf("queue: load root: %w", err)
	}
	return root, nil
}

func (q *Queue) putRoot(root Root) error {
	if err := q.store.KVPut(rootKey(q.namespace), root); err != nil {
		return fmt.Errorf("queue: store root: %w", err)
	}
	return nil
}

// Node loads the node with the given id. A missing node yields ErrNotFound.
func (q *Queue) Node(id uint64) (*Node, error) {
	if q == nil || q.store == nil {
		return nil, fmt.Errorf("queue: storage unavailable")
	}
	if id == 0 {
		return nil, fmt.Errorf("queue: node 0: %w", coreerrors.ErrNotFound)
	}
	var stored storedNode
	ok, err := q.store.KVGet(nodeKey(q.namespace, id), &stored)
	if err != nil {
		return nil, fmt.Errorf("queue: load node %d: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("queue: node %d: %w", id, coreerrors.ErrNotFound)
	}
	return stored.toNode()
}

func (q *Queue) putNode(n *Node) error {
	if err := q.store.KVPut(nodeKey(q.namespace, n.ID), newStoredNode(n)); err != nil {
		return fmt.Errorf("queue: store node %d: %w", n.ID, err)
	}
	return nil
}

func (q *Queue) deleteNode(id uint64) error {
	if err := q.store.KVDelete(nodeKey(q.namespace, id)); err != nil {
		return fmt.Errorf("queue: delete node %d: %w", id, err)
	}
	return nil
}

// Head returns the oldest node. The boolean is false for an empty queue.
func (q *Queue) Head() (*Node, bool, error) {
	root, err := q.Root()
	if err != nil {
		return nil, false, err
	}
	if root.Empty() {
		return nil, false, nil
	}
	node, err := q.Node(root.HeadID)
	if err != nil {
		return nil, false, err
	}
	return node, true, nil
}

// Append adds a node at the tail and returns its id.
func (q *Queue) Append(owner crypto.Address, value *uint256.Int, height uint64) (uint64, error) {
	root, err := q.Root()
	if err != nil {
		return 0, err
	}
	if root.LastID == math.MaxUint64 {
		return 0, fmt.Errorf("queue: id space exhausted: %w", coreerrors.ErrArithmeticOverflow)
	}
	id := root.LastID + 1
	node := &Node{ID: id, Owner: owner, Value: common.Clone(value), Height: height}
	if root.Empty() {
		root.HeadID = id
	} else {
		tail, err := q.Node(root.TailID)
		if err != nil {
			return 0, err
		}
		tail.Next = id
		node.Prev = tail.ID
		if err := q.putNode(tail); err != nil {
			return 0, err
		}
	}
	root.TailID = id
	root.Length++
	root.LastID = id
	if err := q.putNode(node); err != nil {
		return 0, err
	}
	if err := q.putRoot(root); err != nil {
		return 0, err
	}
	return id, nil
}

// RemoveHead unlinks and deletes the oldest node.
func (q *Queue) RemoveHead() error {
	root, err := q.Root()
	if err != nil {
		return err
	}
	switch root.Length {
	case 0:
		return coreerrors.ErrQueueEmpty
	case 1:
		return q.clear(root)
	}
	head, err := q.Node(root.HeadID)
	if err != nil {
		return err
	}
	next, err := q.Node(head.Next)
	if err != nil {
		return err
	}
	next.Prev = 0
	if err := q.putNode(next); err != nil {
		return err
	}
	if err := q.deleteNode(head.ID); err != nil {
		return err
	}
	root.HeadID = next.ID
	root.Length--
	return q.putRoot(root)
}

// RemoveTail unlinks and deletes the newest node.
func (q *Queue) RemoveTail() error {
	root, err := q.Root()
	if err != nil {
		return err
	}
	switch root.Length {
	case 0:
		return coreerrors.ErrQueueEmpty
	case 1:
		return q.clear(root)
	}
	tail, err := q.Node(root.TailID)
	if err != nil {
		return err
	}
	prev, err := q.Node(tail.Prev)
	if err != nil {
		return err
	}
	prev.Next = 0
	if err := q.putNode(prev); err != nil {
		return err
	}
	if err := q.deleteNode(tail.ID); err != nil {
		return err
	}
	root.TailID = prev.ID
	root.Length--
	return q.putRoot(root)
}

// Remove unlinks the node with the given id wherever it sits.
func (q *Queue) Remove(id uint64) error {
	root, err := q.Root()
	if err != nil {
		return err
	}
	node, err := q.Node(id)
	if err != nil {
		return err
	}
	if id == root.HeadID {
		return q.RemoveHead()
	}
	if id == root.TailID {
		return q.RemoveTail()
	}
	prev, err := q.Node(node.Prev)
	if err != nil {
		return err
	}
	next, err := q.Node(node.Next)
	if err != nil {
		return err
	}
	prev.Next = next.ID
	next.Prev = prev.ID
	if err := q.putNode(prev); err != nil {
		return err
	}
	if err := q.putNode(next); err != nil {
		return err
	}
	if err := q.deleteNode(id); err != nil {
		return err
	}
	root.Length--
	return q.putRoot(root)
}

// UpdateValue overwrites the value of a node in place.
func (q *Queue) UpdateValue(id uint64, value *uint256.Int) error {
	node, err := q.Node(id)
	if err != nil {
		return err
	}
	node.Value = common.Clone(value)
	return q.putNode(node)
}

// clear deletes whatever nodes remain and resets the root. LastID is kept so
// ids are never reissued.
func (q *Queue) clear(root Root) error {
	id := root.HeadID
	for steps := uint64(0); id != 0 && steps < root.Length; steps++ {
		node, err := q.Node(id)
		if err != nil {
			if errors.Is(err, coreerrors.ErrNotFound) {
				break
			}
			return err
		}
		if err := q.deleteNode(id); err != nil {
			return err
		}
		id = node.Next
	}
	return q.putRoot(Root{LastID: root.LastID})
}
