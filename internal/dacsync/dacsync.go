// Package dacsync aligns the DACs of radios that share a transmit data
// path. After a batch of TX endpoints is (re)established, the
// dispatcher walks each endpoint's block graph to find the physical
// radios feeding it and issues one joint synchronization per group.
// Alignment is comparative across the group, so it is never retried
// radio by radio.
package dacsync

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/sdr-control/sdrc/internal/periph"
	"github.com/sdr-control/sdrc/internal/rfgraph"
	"github.com/sdr-control/sdrc/internal/stream"
)

// SyncError reports a failed joint DAC alignment for one group.
type SyncError struct {
	GroupSize int
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("failed to sync DACs for group of %d radios: %v", e.GroupSize, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Dispatcher discovers sync groups from the TX registry and drives the
// hardware synchronization primitive.
type Dispatcher struct {
	reg  *stream.Registry
	mbs  []*periph.Motherboard
	sync periph.Synchronizer
	log  *log.Logger
}

// NewDispatcher builds a dispatcher over the shared registry and the
// motherboard set.
func NewDispatcher(reg *stream.Registry, mbs []*periph.Motherboard, s periph.Synchronizer, logger *log.Logger) *Dispatcher {
	return &Dispatcher{reg: reg, mbs: mbs, sync: s, log: logger}
}

// PostStreamHook runs after stream creation. RX streams need no
// alignment; TX streams trigger a full sync dispatch.
func (d *Dispatcher) PostStreamHook(isTx bool) error {
	if !isTx {
		return nil
	}
	return d.SyncAll()
}

// SyncAll builds one sync group per live TX endpoint and synchronizes
// each group with a single joint call. A multi-channel endpoint is
// registered under every channel it serves but is only dispatched
// once. A failed group does not stop dispatch for the remaining,
// independent endpoints; all group failures are reported together.
func (d *Dispatcher) SyncAll() error {
	var errs []error
	seen := make(map[stream.Endpoint]bool)
	for _, e := range d.reg.SnapshotTx() {
		ep, ok := e.Ref.Get()
		if !ok || seen[ep] {
			continue
		}
		seen[ep] = true
		group, err := d.collectGroup(ep.Terminator())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(group) == 0 {
			continue
		}
		d.log.Info("syncing radios", "channel", e.ID, "count", len(group))
		if err := d.sync.Synchronize(group); err != nil {
			errs = append(errs, &SyncError{GroupSize: len(group), Err: err})
		}
	}
	return errors.Join(errs...)
}

// collectGroup maps every radio-control block downstream of term to
// its peripheral.
func (d *Dispatcher) collectGroup(term stream.Terminator) ([]*periph.RadioPeriph, error) {
	var group []*periph.RadioPeriph
	for _, n := range rfgraph.FindDownstream(term, rfgraph.CapRadioControl) {
		rc, ok := n.(rfgraph.RadioControl)
		if !ok {
			continue
		}
		mbIdx := rc.MotherboardIndex()
		if mbIdx < 0 || mbIdx >= len(d.mbs) {
			return nil, periph.ConfigErrorf("radio block %s names unknown mboard %d", n.ID(), mbIdx)
		}
		radio, err := d.mbs[mbIdx].Radio(rc.RadioIndex())
		if err != nil {
			return nil, err
		}
		group = append(group, radio)
	}
	return group, nil
}
