package stream

import (
	"sync"

	"github.com/sdr-control/sdrc/internal/rfgraph"
)

// Terminator is the downstream block-graph terminator attached to an
// endpoint's data path. Its rates reflect the current state of the DSP
// chain feeding (or fed by) the endpoint.
type Terminator interface {
	rfgraph.Node
	TickRate() float64
	OutputSampRate() float64
}

// Endpoint is the control surface of one RX or TX streaming endpoint.
// A resolved endpoint is only acted upon for the duration of a single
// operation; nothing here may assume it stays valid afterward.
type Endpoint interface {
	SetTickRate(rate float64)
	SetSampRate(rate float64)
	SetScaleFactor(scale float64)
	Terminator() Terminator
}

// ChannelEndpoint is the concrete endpoint used by the simulated
// device and by tests. It records the most recently applied values.
type ChannelEndpoint struct {
	mu    sync.Mutex
	tick  float64
	samp  float64
	scale float64
	term  Terminator
}

// NewChannelEndpoint creates an endpoint bound to its data-path
// terminator.
func NewChannelEndpoint(term Terminator) *ChannelEndpoint {
	return &ChannelEndpoint{term: term}
}

func (e *ChannelEndpoint) SetTickRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tick = rate
}

func (e *ChannelEndpoint) SetSampRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.samp = rate
}

func (e *ChannelEndpoint) SetScaleFactor(scale float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scale = scale
}

func (e *ChannelEndpoint) Terminator() Terminator { return e.term }

// TickRate returns the last applied tick rate.
func (e *ChannelEndpoint) TickRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// SampRate returns the last applied sample rate.
func (e *ChannelEndpoint) SampRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.samp
}

// ScaleFactor returns the last applied scale factor.
func (e *ChannelEndpoint) ScaleFactor() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scale
}

// TermNode is a concrete terminator: a graph node carrying the data
// path's current tick and output sample rates.
type TermNode struct {
	rfgraph.Block

	mu   sync.Mutex
	tick float64
	samp float64
}

// NewTerminator creates a terminator node. Downstream blocks are wired
// with Connect.
func NewTerminator(id string) *TermNode {
	return &TermNode{Block: *rfgraph.NewBlock(id)}
}

func (t *TermNode) TickRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tick
}

func (t *TermNode) OutputSampRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.samp
}

// SetRates updates the terminator's view of the DSP chain rates.
func (t *TermNode) SetRates(tick, samp float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tick = tick
	t.samp = samp
}
