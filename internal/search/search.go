// Package search finds the cheapest feasible route for one request with a
// constrained best-first search over the disaggregated graph.
//
// Labels carry everything that decides feasibility further down the path
// (visited nodes, common free spectrum, bottleneck bandwidth, accumulated
// latency and noise) so a label is only pruned when another label at the
// same node is at least as good in every respect and ordered before it.
// The first label popped at a Z-end node is therefore the optimum, and
// ties resolve by hop count and then by the link-ID sequence.
package search

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/signalsfoundry/optical-pce/internal/eligibility"
	"github.com/signalsfoundry/optical-pce/internal/graph"
	"github.com/signalsfoundry/optical-pce/internal/ledger"
	"github.com/signalsfoundry/optical-pce/internal/linkeval"
	"github.com/signalsfoundry/optical-pce/model"
)

// ErrTrialReservation is returned when the chosen path cannot be
// reserved in a fresh trial, which means the search and the ledger
// disagree.
var ErrTrialReservation = errors.New("trial reservation failed")

// State is the phase of one search.
type State int

const (
	Init State = iota
	Expanding
	Found
	Exhausted
	Error
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Expanding:
		return "expanding"
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	default:
		return "error"
	}
}

// Input bundles the per-request artefacts the search reads. None of them
// is modified.
type Input struct {
	Graph       *graph.Graph
	Assessment  *eligibility.Assessment
	Evaluation  *linkeval.Evaluation
	Ledger      *ledger.Ledger
	Constraints model.Constraints

	// SlotWidth is the spectrum block in slots for photonic services.
	SlotWidth     int
	BandwidthMbps int64
}

// Options tunes the search.
type Options struct {
	Cost CostModel
	// MaxExpansions caps popped labels; 0 is unbounded.
	MaxExpansions        int
	RequireBidirectional bool
}

// Diagnostics explain an exhausted search.
type Diagnostics struct {
	// SpectrumBottlenecks are links that on their own had no free block
	// of the requested width.
	SpectrumBottlenecks []string
	// BandwidthBottlenecks are links that on their own lacked capacity.
	BandwidthBottlenecks []string

	JointPrunes      int
	ConstraintPrunes int
	BoundPrunes      int
	DominancePrunes  int
	ExpansionLimit   bool

	// Reachable reports whether A and Z are connected when resources and
	// bounds are ignored.
	Reachable bool
}

// Outcome is the result of Run.
type Outcome struct {
	State State

	APort graph.PortIndex
	ZPort graph.PortIndex
	Links []graph.LinkIndex

	Cost        float64
	LatencyUs   float64
	NoiseLinear float64

	Slots         *model.SlotRange
	BandwidthMbps int64
	// Trial holds the reservations of the chosen path, uncommitted.
	Trial *ledger.Trial

	Expansions  int
	Diagnostics Diagnostics
}

type label struct {
	node  graph.NodeIndex
	aPort graph.PortIndex
	path  []graph.LinkIndex

	cost    float64
	latency float64
	noise   float64

	visited    *bitset.BitSet
	includes   *bitset.BitSet
	spectrum   *ledger.Spectrum
	bottleneck int64
	// trial holds the bandwidth reserved so far; siblings fork it.
	trial *ledger.Trial

	seq  int
	dead bool
}

type engine struct {
	in   *Input
	opts Options
	g    *graph.Graph
	a    *eligibility.Assessment

	photonic bool
	align    int

	labels []*label
	atNode [][]int
	queue  labelQueue

	excludedLinks map[string]bool
	excludedSRLGs map[uint32]bool
	includeOf     map[graph.NodeIndex][]uint

	spectrumBottleneck  map[graph.LinkIndex]bool
	bandwidthBottleneck map[graph.LinkIndex]bool
	diag                Diagnostics
}

// Run searches for a path. It returns an error only when ctx is done or
// the chosen path cannot be trial-reserved; in both cases the outcome is
// in the Error state and no ledger state has changed.
func Run(ctx context.Context, in *Input, opts Options) (*Outcome, error) {
	if opts.Cost == nil {
		opts.Cost = DefaultWeightedCost()
	}
	e := newEngine(in, opts)
	out := &Outcome{State: Init, APort: graph.NoPort, ZPort: graph.NoPort}

	a := in.Assessment
	if a.A.Empty() || a.Z.Empty() {
		out.State = Exhausted
		return out, nil
	}
	if p, ok := sharedPort(&a.A, &a.Z); ok {
		out.State = Found
		out.APort, out.ZPort = p, p
		out.Trial = in.Ledger.NewTrial()
		return out, nil
	}

	out.State = Expanding
	e.seed()
	for e.queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			out.State = Error
			return out, err
		}
		if opts.MaxExpansions > 0 && out.Expansions >= opts.MaxExpansions {
			e.diag.ExpansionLimit = true
			break
		}
		l := e.labels[heap.Pop(&e.queue).(int)]
		if l.dead {
			continue
		}
		out.Expansions++
		if zp, ok := e.goal(l); ok {
			return e.found(out, l, zp)
		}
		e.expand(l)
	}

	out.State = Exhausted
	out.Diagnostics = e.diagnostics()
	return out, nil
}

func newEngine(in *Input, opts Options) *engine {
	e := &engine{
		in:                  in,
		opts:                opts,
		g:                   in.Graph,
		a:                   in.Assessment,
		photonic:            in.Assessment.Profile.Layer == eligibility.LayerPhotonic,
		align:               in.Ledger.Grid().Alignment(),
		atNode:              make([][]int, len(in.Graph.Nodes)),
		excludedLinks:       map[string]bool{},
		excludedSRLGs:       map[uint32]bool{},
		includeOf:           map[graph.NodeIndex][]uint{},
		spectrumBottleneck:  map[graph.LinkIndex]bool{},
		bandwidthBottleneck: map[graph.LinkIndex]bool{},
	}
	e.queue.e = e
	for _, id := range in.Constraints.ExcludeLinks {
		e.excludedLinks[id] = true
	}
	for _, s := range in.Constraints.ExcludeSRLGs {
		e.excludedSRLGs[s] = true
	}
	for i, nodes := range in.Assessment.Includes {
		for _, n := range nodes {
			e.includeOf[n] = append(e.includeOf[n], uint(i))
		}
	}
	return e
}

func sharedPort(a, z *eligibility.End) (graph.PortIndex, bool) {
	for _, p := range a.Ports {
		if z.HasPort(p) {
			return p, true
		}
	}
	return graph.NoPort, false
}

func (e *engine) seed() {
	for _, n := range e.a.A.Nodes {
		if !e.a.NodeValid(n) {
			continue
		}
		l := &label{
			node:       n,
			aPort:      graph.NoPort,
			visited:    bitset.New(uint(len(e.g.Nodes))),
			includes:   bitset.New(uint(len(e.a.Includes))),
			bottleneck: math.MaxInt64,
			trial:      e.in.Ledger.NewTrial(),
		}
		l.visited.Set(uint(n))
		e.markIncludes(l)
		if e.photonic {
			l.spectrum = ledger.NewSpectrum(e.in.Ledger.Grid().Slots)
			if ns := e.in.Ledger.NodeSpectrum(n); ns != nil {
				l.spectrum = l.spectrum.Intersect(ns)
			}
		}
		e.push(l)
	}
}

func (e *engine) markIncludes(l *label) {
	for _, i := range e.includeOf[l.node] {
		l.includes.Set(i)
	}
}

// goal reports whether l terminates on a Z-end candidate.
func (e *engine) goal(l *label) (graph.PortIndex, bool) {
	if len(l.path) == 0 || !e.a.Z.HasNode(l.node) {
		return graph.NoPort, false
	}
	if l.includes.Count() != uint(len(e.a.Includes)) {
		return graph.NoPort, false
	}
	last := e.g.Link(l.path[len(l.path)-1])
	return e.terminal(&e.a.Z, l.node, last.DstPort)
}

// terminal returns the lowest candidate of end on node that attaches
// through via. A new wavelength never leaves through a network port that
// already carries one.
func (e *engine) terminal(end *eligibility.End, node graph.NodeIndex, via graph.PortIndex) (graph.PortIndex, bool) {
	occupiedLine := e.photonic && via != graph.NoPort &&
		e.g.Port(via).Kind == graph.PortNetwork && e.g.Port(via).Occupied()
	for _, p := range end.Ports {
		if occupiedLine && p != via {
			continue
		}
		if e.g.Port(p).Node != node {
			continue
		}
		if eligibility.AttachPort(e.g, p, via) {
			return p, true
		}
	}
	return graph.NoPort, false
}

func (e *engine) expand(l *label) {
	u := l.node
	start := len(l.path) == 0
	if !start && !e.a.Transit(u) {
		return
	}
	for _, li := range e.g.Out[u] {
		link := e.g.Link(li)
		if !e.layerLink(link) {
			continue
		}
		v := link.Dst
		if l.visited.Test(uint(v)) || !e.a.NodeValid(v) {
			continue
		}

		aPort := l.aPort
		if start {
			p, ok := e.terminal(&e.a.A, u, link.SrcPort)
			if !ok {
				continue
			}
			aPort = p
		}
		if !e.a.Transit(v) {
			if _, ok := e.terminal(&e.a.Z, v, link.DstPort); !ok {
				continue
			}
		}

		m := e.in.Evaluation.Link(li)
		if !e.admissible(link, m) {
			e.diag.ConstraintPrunes++
			continue
		}

		next := &label{
			node:       v,
			aPort:      aPort,
			path:       append(append(make([]graph.LinkIndex, 0, len(l.path)+1), l.path...), li),
			cost:       l.cost + e.opts.Cost.LinkCost(link, m),
			latency:    l.latency + m.LatencyUs,
			noise:      l.noise + m.NoiseLinear,
			bottleneck: l.bottleneck,
		}
		if !e.withinBounds(next) {
			e.diag.BoundPrunes++
			continue
		}
		if !e.reserveStep(l, next, li, m) {
			continue
		}
		next.visited = l.visited.Clone()
		next.visited.Set(uint(v))
		next.includes = l.includes.Clone()
		e.markIncludes(next)
		e.push(next)
	}
}

// layerLink reports whether link belongs to the layer the request is
// routed over.
func (e *engine) layerLink(link *graph.Link) bool {
	if e.photonic {
		return link.Kind.IsPhotonic()
	}
	return link.Kind == graph.OtnLink && e.a.Profile.CarriesOn(link.OTNLayer)
}

func (e *engine) admissible(link *graph.Link, m *linkeval.Metrics) bool {
	if !link.InService() {
		return false
	}
	if link.SrcPort != graph.NoPort && !e.a.PassThrough(link.SrcPort) {
		return false
	}
	if link.DstPort != graph.NoPort && !e.a.PassThrough(link.DstPort) {
		return false
	}
	if e.excludedLinks[link.ID] {
		return false
	}
	if m.Opposite != graph.NoLink && e.excludedLinks[e.g.Link(m.Opposite).ID] {
		return false
	}
	for _, s := range m.SRLGs {
		if e.excludedSRLGs[s] {
			return false
		}
	}
	return !(e.opts.RequireBidirectional && m.Unidirectional)
}

func (e *engine) withinBounds(l *label) bool {
	c := &e.in.Constraints
	if c.MaxHops > 0 && len(l.path) > c.MaxHops {
		return false
	}
	if c.MaxLatencyUs > 0 && l.latency > c.MaxLatencyUs {
		return false
	}
	if e.photonic && c.MinOSNRdB > 0 && linkeval.OSNRFromNoise(l.noise) < c.MinOSNRdB {
		return false
	}
	return true
}

// reserveStep narrows the resources of next by link li and reports
// whether a feasible block remains. Links that fail on their own are
// recorded as bottlenecks.
func (e *engine) reserveStep(prev, next *label, li graph.LinkIndex, m *linkeval.Metrics) bool {
	if e.photonic {
		common := prev.spectrum
		for _, s := range e.linkSpectra(li, m, next.node) {
			common = common.Intersect(s)
		}
		if _, ok := common.FirstFit(e.in.SlotWidth, e.align); !ok {
			if e.fitsAlone(li, m) {
				e.diag.JointPrunes++
			} else {
				e.spectrumBottleneck[li] = true
			}
			return false
		}
		next.spectrum = common
		next.trial = prev.trial
		return true
	}

	avail, ok := e.linkCapacity(li, m)
	if !ok || avail < e.in.BandwidthMbps {
		e.bandwidthBottleneck[li] = true
		return false
	}
	if avail < next.bottleneck {
		next.bottleneck = avail
	}
	next.trial = prev.trial
	if e.in.BandwidthMbps > 0 {
		t := prev.trial.Fork()
		if err := e.reserveBandwidth(t, li, m); err != nil {
			e.diag.JointPrunes++
			return false
		}
		next.trial = t
	}
	return true
}

// reserveBandwidth reserves the requested rate on li and its opposite.
func (e *engine) reserveBandwidth(t *ledger.Trial, li graph.LinkIndex, m *linkeval.Metrics) error {
	if err := t.ReserveBandwidth(li, e.in.BandwidthMbps); err != nil {
		return err
	}
	if m.Opposite != graph.NoLink {
		return t.ReserveBandwidth(m.Opposite, e.in.BandwidthMbps)
	}
	return nil
}

// linkSpectra returns the ledgers a block on li must be free in: the
// link, its opposite and the group node it enters.
func (e *engine) linkSpectra(li graph.LinkIndex, m *linkeval.Metrics, dst graph.NodeIndex) []*ledger.Spectrum {
	var out []*ledger.Spectrum
	if s := e.in.Ledger.LinkSpectrum(li); s != nil {
		out = append(out, s)
	}
	if m.Opposite != graph.NoLink {
		if s := e.in.Ledger.LinkSpectrum(m.Opposite); s != nil {
			out = append(out, s)
		}
	}
	if s := e.in.Ledger.NodeSpectrum(dst); s != nil {
		out = append(out, s)
	}
	return out
}

func (e *engine) fitsAlone(li graph.LinkIndex, m *linkeval.Metrics) bool {
	s := ledger.NewSpectrum(e.in.Ledger.Grid().Slots)
	if ns := e.in.Ledger.NodeSpectrum(e.g.Link(li).Src); ns != nil {
		s = s.Intersect(ns)
	}
	for _, o := range e.linkSpectra(li, m, e.g.Link(li).Dst) {
		s = s.Intersect(o)
	}
	_, ok := s.FirstFit(e.in.SlotWidth, e.align)
	return ok
}

// linkCapacity is the bandwidth left on li and its opposite.
func (e *engine) linkCapacity(li graph.LinkIndex, m *linkeval.Metrics) (int64, bool) {
	bw, ok := e.in.Ledger.LinkBandwidth(li)
	if !ok {
		return 0, false
	}
	avail := bw.AvailableMbps
	if m.Opposite != graph.NoLink {
		obw, ok := e.in.Ledger.LinkBandwidth(m.Opposite)
		if !ok {
			return 0, false
		}
		if obw.AvailableMbps < avail {
			avail = obw.AvailableMbps
		}
	}
	return avail, true
}

func (e *engine) push(l *label) {
	l.seq = len(e.labels)
	for _, i := range e.atNode[l.node] {
		x := e.labels[i]
		if !x.dead && e.dominates(x, l) {
			e.diag.DominancePrunes++
			return
		}
	}
	for _, i := range e.atNode[l.node] {
		x := e.labels[i]
		if !x.dead && e.dominates(l, x) {
			x.dead = true
			e.diag.DominancePrunes++
		}
	}
	e.labels = append(e.labels, l)
	e.atNode[l.node] = append(e.atNode[l.node], l.seq)
	heap.Push(&e.queue, l.seq)
}

// dominates reports whether every completion of y is matched by an
// equal or better completion of x.
func (e *engine) dominates(x, y *label) bool {
	if x.cost > y.cost || len(x.path) > len(y.path) || x.latency > y.latency || x.noise > y.noise {
		return false
	}
	if x.bottleneck < y.bottleneck {
		return false
	}
	if len(x.path) == 0 || len(y.path) == 0 {
		// Start labels have not chosen an A-end port yet.
		return false
	}
	if e.entryMatters(x.node) && e.entry(x) != e.entry(y) {
		// A Z-end xponder may only terminate through some of its ports.
		return false
	}
	if !y.visited.IsSuperSet(x.visited) || !x.includes.IsSuperSet(y.includes) {
		return false
	}
	if x.spectrum != nil && !x.spectrum.Contains(y.spectrum) {
		return false
	}
	return e.less(x, y)
}

// entryMatters reports whether the port a label enters n through can
// decide whether it terminates there.
func (e *engine) entryMatters(n graph.NodeIndex) bool {
	return e.a.Z.HasNode(n) && e.g.Node(n).Kind.Capabilities().Xponder
}

// entry is the port l entered its node through.
func (e *engine) entry(l *label) graph.PortIndex {
	return e.g.Link(l.path[len(l.path)-1]).DstPort
}

// less orders labels by cost, hop count and link-ID sequence.
func (e *engine) less(x, y *label) bool {
	if x.cost != y.cost {
		return x.cost < y.cost
	}
	if len(x.path) != len(y.path) {
		return len(x.path) < len(y.path)
	}
	for i := range x.path {
		a, b := e.g.Link(x.path[i]).ID, e.g.Link(y.path[i]).ID
		if a != b {
			return a < b
		}
	}
	return x.seq < y.seq
}

func (e *engine) found(out *Outcome, l *label, zPort graph.PortIndex) (*Outcome, error) {
	out.APort, out.ZPort = l.aPort, zPort
	out.Links = l.path
	out.Cost, out.LatencyUs, out.NoiseLinear = l.cost, l.latency, l.noise

	// OTN labels already carry their bandwidth; a photonic block is only
	// chosen now, on a fork so the shared seed trial stays clean.
	t := l.trial
	if e.photonic {
		t = l.trial.Fork()
		if err := e.reserveSpectrum(t, l, out); err != nil {
			out.State = Error
			return out, fmt.Errorf("%w: %v", ErrTrialReservation, err)
		}
	} else if e.in.BandwidthMbps > 0 {
		out.BandwidthMbps = e.in.BandwidthMbps
	}
	out.Trial = t
	out.State = Found
	return out, nil
}

// reserveSpectrum reserves the first-fit block of the final label on
// every link of the path, on each link's opposite and on the group nodes
// traversed.
func (e *engine) reserveSpectrum(t *ledger.Trial, l *label, out *Outcome) error {
	r, ok := l.spectrum.FirstFit(e.in.SlotWidth, e.align)
	if !ok {
		return fmt.Errorf("no block of %d slots on final label", e.in.SlotWidth)
	}
	out.Slots = &r
	nodes := []graph.NodeIndex{e.g.Link(l.path[0]).Src}
	for _, li := range l.path {
		if err := t.ReserveLinkSpectrum(li, r); err != nil {
			return err
		}
		if opp := e.in.Evaluation.Link(li).Opposite; opp != graph.NoLink {
			if err := t.ReserveLinkSpectrum(opp, r); err != nil {
				return err
			}
		}
		nodes = append(nodes, e.g.Link(li).Dst)
	}
	for _, n := range nodes {
		if e.in.Ledger.NodeSpectrum(n) == nil {
			continue
		}
		if err := t.ReserveNodeSpectrum(n, r); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) diagnostics() Diagnostics {
	d := e.diag
	d.SpectrumBottlenecks = e.linkIDs(e.spectrumBottleneck)
	d.BandwidthBottlenecks = e.linkIDs(e.bandwidthBottleneck)
	d.Reachable = e.reachable()
	return d
}

func (e *engine) linkIDs(set map[graph.LinkIndex]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for li := range set {
		out = append(out, e.g.Link(li).ID)
	}
	sort.Strings(out)
	return out
}

type labelQueue struct {
	e     *engine
	items []int
}

func (q labelQueue) Len() int { return len(q.items) }
func (q labelQueue) Less(i, j int) bool {
	return q.e.less(q.e.labels[q.items[i]], q.e.labels[q.items[j]])
}
func (q labelQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *labelQueue) Push(x any) { q.items = append(q.items, x.(int)) }

func (q *labelQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}
