// Package sim provides in-memory implementations of the periph control
// surfaces. The daemon wires them in when no hardware is attached, and
// tests use them to observe exactly which mux and sync calls a
// control-plane operation produced. Every surface supports fault
// injection through an Err field.
package sim

import (
	"sync"

	"github.com/sdr-control/sdrc/internal/periph"
)

// DdcMuxCall records one DDC mux programming.
type DdcMuxCall struct {
	Connection string
	FeSwapped  bool
}

// Ddc is a simulated digital down-converter.
type Ddc struct {
	mu       sync.Mutex
	MuxCalls []DdcMuxCall
	Adj      float64
	Rate     float64
	Err      error
}

func (d *Ddc) SetMux(connection string, feSwapped bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.MuxCalls = append(d.MuxCalls, DdcMuxCall{Connection: connection, FeSwapped: feSwapped})
	return nil
}

func (d *Ddc) ScalingAdjustment() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return 0, d.Err
	}
	return d.Adj, nil
}

func (d *Ddc) OutputRate() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return 0, d.Err
	}
	return d.Rate, nil
}

// SetScalingAdjustment changes the factor later ScalingAdjustment
// reads report, as a decimation change would.
func (d *Ddc) SetScalingAdjustment(adj float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Adj = adj
}

// Duc is a simulated digital up-converter.
type Duc struct {
	mu  sync.Mutex
	Adj float64
	Err error
}

func (d *Duc) ScalingAdjustment() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return 0, d.Err
	}
	return d.Adj, nil
}

// RxFe is a simulated receive analog front-end.
type RxFe struct {
	mu       sync.Mutex
	SwapSets []bool
	Err      error
}

func (f *RxFe) SetMuxSwapped(swapped bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.SwapSets = append(f.SwapSets, swapped)
	return nil
}

// TxFe is a simulated transmit analog front-end.
type TxFe struct {
	mu      sync.Mutex
	MuxSets []string
	Err     error
}

func (f *TxFe) SetMux(connection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.MuxSets = append(f.MuxSets, connection)
	return nil
}

// Radio bundles one simulated peripheral with its observable surfaces.
type Radio struct {
	Ddc  *Ddc
	Duc  *Duc
	RxFe *RxFe
	TxFe *TxFe
}

// NewRadio returns a simulated radio with neutral scaling.
func NewRadio() *Radio {
	return &Radio{
		Ddc:  &Ddc{Adj: 1.0},
		Duc:  &Duc{Adj: 1.0},
		RxFe: &RxFe{},
		TxFe: &TxFe{},
	}
}

// Periph adapts the simulated radio to the periph contract.
func (r *Radio) Periph() *periph.RadioPeriph {
	return &periph.RadioPeriph{Ddc: r.Ddc, Duc: r.Duc, RxFe: r.RxFe, TxFe: r.TxFe}
}

// Motherboard pairs a periph.Motherboard with its simulated radios so
// callers can both drive the control plane and observe the hardware
// side.
type Motherboard struct {
	MB     *periph.Motherboard
	Radios []*Radio
}

// NewMotherboard builds a simulated motherboard with numRadios radios.
func NewMotherboard(index, numRadios int, path periph.TransportPath) *Motherboard {
	radios := make([]*Radio, numRadios)
	periphs := make([]*periph.RadioPeriph, numRadios)
	for i := range radios {
		radios[i] = NewRadio()
		periphs[i] = radios[i].Periph()
	}
	return &Motherboard{
		MB:     periph.NewMotherboard(index, periphs, path),
		Radios: radios,
	}
}

// Synchronizer records joint DAC sync calls.
type Synchronizer struct {
	mu    sync.Mutex
	Calls [][]*periph.RadioPeriph
	Err   error
}

func (s *Synchronizer) Synchronize(group []*periph.RadioPeriph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	g := make([]*periph.RadioPeriph, len(group))
	copy(g, group)
	s.Calls = append(s.Calls, g)
	return nil
}

// CallCount returns how many joint sync calls were issued.
func (s *Synchronizer) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
