// Package topostore keeps the topology snapshot the host computes against
// and loads snapshots, requests and measurements from JSON or YAML files.
package topostore

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/optical-pce/model"
)

var (
	ErrDuplicateNode = errors.New("duplicate node id")
	ErrDuplicateLink = errors.New("duplicate link id")
	ErrEmptyID       = errors.New("empty id")
	ErrNoSnapshot    = errors.New("no snapshot loaded")
)

// Store holds one topology snapshot at a time. Readers always receive
// deep copies, so a computation running against a snapshot is unaffected
// by a later Replace.
//
// Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	snap    *model.TopologySnapshot
	version uint64
	nodes   map[string]int
	links   map[string]int
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		nodes: make(map[string]int),
		links: make(map[string]int),
	}
}

// Replace installs a copy of snap and returns the new version. IDs must be
// non-empty and unique per kind; a rejected snapshot leaves the store
// unchanged.
func (s *Store) Replace(snap *model.TopologySnapshot) (uint64, error) {
	if snap == nil {
		return 0, ErrNoSnapshot
	}
	nodes := make(map[string]int, len(snap.Nodes))
	for i, n := range snap.Nodes {
		if n.ID == "" {
			return 0, fmt.Errorf("%w: node at index %d", ErrEmptyID, i)
		}
		if _, dup := nodes[n.ID]; dup {
			return 0, fmt.Errorf("%w: %q", ErrDuplicateNode, n.ID)
		}
		nodes[n.ID] = i
	}
	links := make(map[string]int, len(snap.Links))
	for i, l := range snap.Links {
		if l.ID == "" {
			return 0, fmt.Errorf("%w: link at index %d", ErrEmptyID, i)
		}
		if _, dup := links[l.ID]; dup {
			return 0, fmt.Errorf("%w: %q", ErrDuplicateLink, l.ID)
		}
		links[l.ID] = i
	}

	clone := snap.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = clone
	s.nodes = nodes
	s.links = links
	s.version++
	return s.version, nil
}

// Snapshot returns a copy of the current snapshot and its version.
func (s *Store) Snapshot() (*model.TopologySnapshot, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, 0, ErrNoSnapshot
	}
	return s.snap.Clone(), s.version, nil
}

// Version returns the version of the current snapshot, 0 when empty.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Node returns a copy of the node with the given ID.
func (s *Store) Node(id string) (model.SnapshotNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.nodes[id]
	if !ok || s.snap == nil {
		return model.SnapshotNode{}, false
	}
	one := model.TopologySnapshot{Nodes: s.snap.Nodes[i : i+1]}
	return one.Clone().Nodes[0], true
}

// Link returns a copy of the link with the given ID.
func (s *Store) Link(id string) (model.SnapshotLink, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.links[id]
	if !ok || s.snap == nil {
		return model.SnapshotLink{}, false
	}
	one := model.TopologySnapshot{Links: s.snap.Links[i : i+1]}
	return one.Clone().Links[0], true
}

// NodeIDs returns every node ID, sorted.
func (s *Store) NodeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// NodesByRole returns the IDs of nodes with the given role, sorted.
func (s *Store) NodesByRole(role model.DeviceRole) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	if s.snap == nil {
		return out
	}
	for _, n := range s.snap.Nodes {
		if n.Role == role {
			out = append(out, n.ID)
		}
	}
	sort.Strings(out)
	return out
}

// Neighbours returns the IDs of nodes reachable from nodeID over one
// snapshot link in either direction, sorted and de-duplicated.
func (s *Store) Neighbours(nodeID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, l := range s.snap.Links {
		switch nodeID {
		case l.Source.NodeID:
			if l.Dest.NodeID != nodeID {
				seen[l.Dest.NodeID] = struct{}{}
			}
		case l.Dest.NodeID:
			if l.Source.NodeID != nodeID {
				seen[l.Source.NodeID] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
