// Package ledger owns the per-request spectrum and bandwidth
// bookkeeping. A Ledger is built from one Graph and is never shared
// between computations; search branches reserve into copy-on-write
// Trials and only a committed Trial changes the Ledger.
package ledger

import (
	"fmt"
	"sort"

	"github.com/signalsfoundry/optical-pce/internal/graph"
	"github.com/signalsfoundry/optical-pce/model"
)

// Reservation is one resource held by a trial or committed into a
// ledger. Exactly one of Link or Node is set.
type Reservation struct {
	Link          graph.LinkIndex
	Node          graph.NodeIndex
	Slots         *model.SlotRange
	BandwidthMbps int64
}

// Ledger holds the spectrum and bandwidth state of one graph.
type Ledger struct {
	grid    Grid
	version uint64

	linkSpectrum  []*Spectrum
	nodeSpectrum  []*Spectrum
	linkBandwidth []*Bandwidth
}

// New builds a ledger from the occupancy recorded in g. Photonic links
// and spectrum-ledger nodes get a bitset; OTN links get a bandwidth
// counter.
func New(g *graph.Graph, grid Grid) *Ledger {
	l := &Ledger{
		grid:          grid,
		linkSpectrum:  make([]*Spectrum, len(g.Links)),
		nodeSpectrum:  make([]*Spectrum, len(g.Nodes)),
		linkBandwidth: make([]*Bandwidth, len(g.Links)),
	}
	for i := range g.Links {
		link := &g.Links[i]
		switch {
		case link.Kind.IsPhotonic():
			s := NewSpectrum(grid.Slots)
			for _, r := range link.UsedSlots {
				s.MarkUsed(r)
			}
			l.linkSpectrum[i] = s
		case link.Kind == graph.OtnLink:
			l.linkBandwidth[i] = &Bandwidth{AvailableMbps: link.AvailableMbps, UsedMbps: link.UsedMbps}
		}
	}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if !n.Kind.Capabilities().SpectrumLedger {
			continue
		}
		s := NewSpectrum(grid.Slots)
		if n.Roadm != nil {
			for _, r := range n.Roadm.UsedSlots {
				s.MarkUsed(r)
			}
		}
		l.nodeSpectrum[i] = s
	}
	return l
}

// Grid returns the grid the ledger was built with.
func (l *Ledger) Grid() Grid { return l.grid }

// LinkSpectrum returns the committed spectrum of a link, or nil for links
// without one. Callers must treat it as read-only.
func (l *Ledger) LinkSpectrum(i graph.LinkIndex) *Spectrum { return l.linkSpectrum[i] }

// NodeSpectrum returns the committed spectrum of a ROADM group node, or
// nil.
func (l *Ledger) NodeSpectrum(i graph.NodeIndex) *Spectrum { return l.nodeSpectrum[i] }

// LinkBandwidth returns the committed bandwidth counter of a link.
func (l *Ledger) LinkBandwidth(i graph.LinkIndex) (Bandwidth, bool) {
	b := l.linkBandwidth[i]
	if b == nil {
		return Bandwidth{}, false
	}
	return *b, true
}

// NewTrial starts an empty copy-on-write overlay on the ledger.
func (l *Ledger) NewTrial() *Trial {
	return &Trial{base: l, version: l.version}
}

// Commit folds a trial into the ledger and returns the reservations it
// held, sorted by link then node. A trial can only be committed against
// the ledger state it was forked from.
func (l *Ledger) Commit(t *Trial) ([]Reservation, error) {
	if t == nil || t.base != l {
		return nil, fmt.Errorf("%w: foreign trial", ErrStaleTrial)
	}
	if t.version != l.version {
		return nil, fmt.Errorf("%w: version %d, ledger at %d", ErrStaleTrial, t.version, l.version)
	}
	links, nodes, bws := t.flatten()
	for i, s := range links {
		l.linkSpectrum[i] = s.Clone()
	}
	for i, s := range nodes {
		l.nodeSpectrum[i] = s.Clone()
	}
	for i, b := range bws {
		bw := b
		l.linkBandwidth[i] = &bw
	}
	l.version++

	out := t.Reservations()
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Link != out[b].Link {
			return out[a].Link < out[b].Link
		}
		return out[a].Node < out[b].Node
	})
	return out, nil
}

// Trial is a disposable reservation overlay. Reads fall through to the
// parent trial and then to the ledger; writes copy the touched resource
// first. Sibling trials never observe each other's reservations.
type Trial struct {
	base    *Ledger
	parent  *Trial
	version uint64

	links map[graph.LinkIndex]*Spectrum
	nodes map[graph.NodeIndex]*Spectrum
	bws   map[graph.LinkIndex]Bandwidth

	reservations []Reservation
}

// Fork returns a child trial that sees t's reservations but whose own
// reservations stay invisible to t.
func (t *Trial) Fork() *Trial {
	return &Trial{base: t.base, parent: t, version: t.version}
}

// LinkSpectrum returns the link spectrum as seen by this trial.
func (t *Trial) LinkSpectrum(i graph.LinkIndex) *Spectrum {
	for cur := t; cur != nil; cur = cur.parent {
		if s, ok := cur.links[i]; ok {
			return s
		}
	}
	return t.base.linkSpectrum[i]
}

// NodeSpectrum returns the node spectrum as seen by this trial.
func (t *Trial) NodeSpectrum(i graph.NodeIndex) *Spectrum {
	for cur := t; cur != nil; cur = cur.parent {
		if s, ok := cur.nodes[i]; ok {
			return s
		}
	}
	return t.base.nodeSpectrum[i]
}

// LinkBandwidth returns the link bandwidth as seen by this trial.
func (t *Trial) LinkBandwidth(i graph.LinkIndex) (Bandwidth, bool) {
	for cur := t; cur != nil; cur = cur.parent {
		if b, ok := cur.bws[i]; ok {
			return b, true
		}
	}
	return t.base.LinkBandwidth(i)
}

// ReserveLinkSpectrum reserves r on link i.
func (t *Trial) ReserveLinkSpectrum(i graph.LinkIndex, r model.SlotRange) error {
	cur := t.LinkSpectrum(i)
	if cur == nil {
		return fmt.Errorf("%w: link %d", ErrNoLedger, i)
	}
	next := cur.Clone()
	if err := next.Reserve(r); err != nil {
		return err
	}
	if t.links == nil {
		t.links = make(map[graph.LinkIndex]*Spectrum)
	}
	t.links[i] = next
	rr := r
	t.reservations = append(t.reservations, Reservation{Link: i, Node: graph.NoNode, Slots: &rr})
	return nil
}

// ReserveNodeSpectrum reserves r on a ROADM group node.
func (t *Trial) ReserveNodeSpectrum(i graph.NodeIndex, r model.SlotRange) error {
	cur := t.NodeSpectrum(i)
	if cur == nil {
		return fmt.Errorf("%w: node %d", ErrNoLedger, i)
	}
	next := cur.Clone()
	if err := next.Reserve(r); err != nil {
		return err
	}
	if t.nodes == nil {
		t.nodes = make(map[graph.NodeIndex]*Spectrum)
	}
	t.nodes[i] = next
	rr := r
	t.reservations = append(t.reservations, Reservation{Link: graph.NoLink, Node: i, Slots: &rr})
	return nil
}

// ReserveBandwidth reserves amount on link i.
func (t *Trial) ReserveBandwidth(i graph.LinkIndex, amount int64) error {
	cur, ok := t.LinkBandwidth(i)
	if !ok {
		return fmt.Errorf("%w: link %d", ErrNoLedger, i)
	}
	if err := cur.Reserve(amount); err != nil {
		return err
	}
	if t.bws == nil {
		t.bws = make(map[graph.LinkIndex]Bandwidth)
	}
	t.bws[i] = cur
	t.reservations = append(t.reservations, Reservation{Link: i, Node: graph.NoNode, BandwidthMbps: amount})
	return nil
}

// Reservations returns every reservation visible to the trial, oldest
// first.
func (t *Trial) Reservations() []Reservation {
	var chain []*Trial
	for cur := t; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	var out []Reservation
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].reservations...)
	}
	return out
}

// flatten merges the overlay chain, nearest trial winning.
func (t *Trial) flatten() (map[graph.LinkIndex]*Spectrum, map[graph.NodeIndex]*Spectrum, map[graph.LinkIndex]Bandwidth) {
	links := make(map[graph.LinkIndex]*Spectrum)
	nodes := make(map[graph.NodeIndex]*Spectrum)
	bws := make(map[graph.LinkIndex]Bandwidth)
	for cur := t; cur != nil; cur = cur.parent {
		for k, v := range cur.links {
			if _, seen := links[k]; !seen {
				links[k] = v
			}
		}
		for k, v := range cur.nodes {
			if _, seen := nodes[k]; !seen {
				nodes[k] = v
			}
		}
		for k, v := range cur.bws {
			if _, seen := bws[k]; !seen {
				bws[k] = v
			}
		}
	}
	return links, nodes, bws
}
