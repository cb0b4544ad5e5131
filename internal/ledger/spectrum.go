package ledger

import (
	"errors"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"

	"github.com/signalsfoundry/optical-pce/model"
)

var (
	ErrSlotsInUse            = errors.New("spectrum slots already in use")
	ErrSlotRange             = errors.New("slot range outside grid")
	ErrInsufficientBandwidth = errors.New("insufficient bandwidth")
	ErrNoLedger              = errors.New("no ledger for resource")
	ErrStaleTrial            = errors.New("trial forked from a superseded ledger")
)

// Grid describes the flexible spectrum grid.
type Grid struct {
	// SlotWidthGHz is the atomic slot granularity.
	SlotWidthGHz float64 `yaml:"slot_width_ghz" validate:"gt=0"`
	// CenterStepGHz is the central-frequency granularity; assigned blocks
	// start on a multiple of CenterStepGHz/SlotWidthGHz slots.
	CenterStepGHz float64 `yaml:"center_step_ghz" validate:"gt=0"`
	// StartTHz is the lower edge of slot 0.
	StartTHz float64 `yaml:"start_thz" validate:"gt=0"`
	// Slots is the number of slots in the band.
	Slots int `yaml:"slots" validate:"gt=0"`
}

// DefaultGrid is the C-band flex grid: 768 slots of 6.25 GHz from
// 191.325 THz, central frequencies on a 12.5 GHz step.
func DefaultGrid() Grid {
	return Grid{
		SlotWidthGHz:  6.25,
		CenterStepGHz: 12.5,
		StartTHz:      191.325,
		Slots:         768,
	}
}

// SlotsFor converts a spectral width into a slot count, rounding up.
func (g Grid) SlotsFor(widthGHz float64) int {
	if widthGHz <= 0 || g.SlotWidthGHz <= 0 {
		return 0
	}
	return int(math.Ceil(widthGHz/g.SlotWidthGHz - 1e-9))
}

// Alignment is the number of slots between adjacent central frequencies.
func (g Grid) Alignment() int {
	if g.SlotWidthGHz <= 0 {
		return 1
	}
	a := int(math.Round(g.CenterStepGHz / g.SlotWidthGHz))
	if a < 1 {
		return 1
	}
	return a
}

// CenterTHz returns the central frequency of r.
func (g Grid) CenterTHz(r model.SlotRange) float64 {
	offsetGHz := float64(r.First)*g.SlotWidthGHz + float64(r.Width())*g.SlotWidthGHz/2
	return g.StartTHz + offsetGHz/1000
}

// Spectrum is a fixed-length slot bitset; a set bit means the slot is
// free.
type Spectrum struct {
	bits *bitset.BitSet
	n    uint
}

// NewSpectrum returns a spectrum of n slots, all free.
func NewSpectrum(n int) *Spectrum {
	if n < 0 {
		n = 0
	}
	b := bitset.New(uint(n))
	b.FlipRange(0, uint(n))
	return &Spectrum{bits: b, n: uint(n)}
}

// Len returns the number of slots.
func (s *Spectrum) Len() int { return int(s.n) }

// FreeCount returns the number of free slots.
func (s *Spectrum) FreeCount() int { return int(s.bits.Count()) }

func (s *Spectrum) inRange(r model.SlotRange) bool {
	return r.First >= 0 && r.Last >= r.First && uint(r.Last) < s.n
}

// IsFree reports whether every slot in r is free. Ranges outside the grid
// are never free.
func (s *Spectrum) IsFree(r model.SlotRange) bool {
	if !s.inRange(r) {
		return false
	}
	for i := uint(r.First); i <= uint(r.Last); i++ {
		if !s.bits.Test(i) {
			return false
		}
	}
	return true
}

// Reserve marks r as used. It fails without touching any slot when part
// of r is already used or outside the grid.
func (s *Spectrum) Reserve(r model.SlotRange) error {
	if !s.inRange(r) {
		return fmt.Errorf("%w: %s of %d", ErrSlotRange, r, s.n)
	}
	if !s.IsFree(r) {
		return fmt.Errorf("%w: %s", ErrSlotsInUse, r)
	}
	for i := uint(r.First); i <= uint(r.Last); i++ {
		s.bits.Clear(i)
	}
	return nil
}

// MarkUsed clears r, clamped to the grid, ignoring slots already used.
// It loads occupancy from a snapshot.
func (s *Spectrum) MarkUsed(r model.SlotRange) {
	for i := r.First; i <= r.Last; i++ {
		if i >= 0 && uint(i) < s.n {
			s.bits.Clear(uint(i))
		}
	}
}

// Clone returns an independent copy.
func (s *Spectrum) Clone() *Spectrum {
	return &Spectrum{bits: s.bits.Clone(), n: s.n}
}

// Intersect returns a new spectrum free only where both are free.
func (s *Spectrum) Intersect(o *Spectrum) *Spectrum {
	out := s.Clone()
	out.bits.InPlaceIntersection(o.bits)
	return out
}

// Contains reports whether every slot free in o is also free in s.
func (s *Spectrum) Contains(o *Spectrum) bool {
	return s.bits.IsSuperSet(o.bits)
}

// Equal reports whether both spectra have the same free slots.
func (s *Spectrum) Equal(o *Spectrum) bool {
	return s.n == o.n && s.bits.Equal(o.bits)
}

// FirstFit returns the lowest block of width free slots whose first slot
// is a multiple of align. Free runs that are long enough but cannot hold
// an aligned block are skipped.
func (s *Spectrum) FirstFit(width, align int) (model.SlotRange, bool) {
	if width <= 0 || uint(width) > s.n {
		return model.SlotRange{}, false
	}
	if align < 1 {
		align = 1
	}
	var pos uint
	for pos < s.n {
		start, ok := s.bits.NextSet(pos)
		if !ok || start >= s.n {
			break
		}
		end, ok := s.bits.NextClear(start)
		if !ok || end > s.n {
			end = s.n
		}
		// Free run is [start, end).
		aligned := (int(start) + align - 1) / align * align
		if aligned+width <= int(end) {
			return model.SlotRange{First: aligned, Last: aligned + width - 1}, true
		}
		pos = end
	}
	return model.SlotRange{}, false
}

// LongestRun returns the length of the longest contiguous free run.
func (s *Spectrum) LongestRun() int {
	best := 0
	var pos uint
	for pos < s.n {
		start, ok := s.bits.NextSet(pos)
		if !ok || start >= s.n {
			break
		}
		end, ok := s.bits.NextClear(start)
		if !ok || end > s.n {
			end = s.n
		}
		if int(end-start) > best {
			best = int(end - start)
		}
		pos = end
	}
	return best
}

// Bandwidth is the digital capacity counter of an OTN link.
type Bandwidth struct {
	AvailableMbps int64
	UsedMbps      int64
}

// Fits reports whether amount can be reserved.
func (b Bandwidth) Fits(amount int64) bool {
	return amount >= 0 && amount <= b.AvailableMbps
}

// Reserve moves amount from available to used.
func (b *Bandwidth) Reserve(amount int64) error {
	if !b.Fits(amount) {
		return fmt.Errorf("%w: want %d Mbps, have %d", ErrInsufficientBandwidth, amount, b.AvailableMbps)
	}
	b.AvailableMbps -= amount
	b.UsedMbps += amount
	return nil
}
