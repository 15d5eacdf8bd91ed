package stream

import (
	"github.com/charmbracelet/log"

	"github.com/sdr-control/sdrc/internal/periph"
)

// RateUpdater pushes recomputed tick-rate, sample-rate and scale-factor
// values into every live endpoint affected by a motherboard clock or
// DSP change. Endpoints that fail to resolve, or that belong to another
// motherboard, are skipped without error.
type RateUpdater struct {
	reg *Registry
	log *log.Logger
}

// NewRateUpdater creates an updater over the shared registry.
func NewRateUpdater(reg *Registry, logger *log.Logger) *RateUpdater {
	return &RateUpdater{reg: reg, log: logger}
}

// PropagateTickRate re-propagates timing into every endpoint of one
// motherboard after its master clock rate changed.
//
// RX endpoints are refreshed in place: the endpoint's own current tick
// and output sample rates are read back from its terminator and
// re-applied, re-triggering any internal recomputation keyed on tick
// rate without changing the values. TX endpoints get the new rate as
// both tick rate and sample rate.
func (u *RateUpdater) PropagateTickRate(mbIndex int, rate float64) {
	for _, e := range u.reg.SnapshotRx() {
		mb, ok := MotherboardOf(e.ID)
		if !ok || mb != mbIndex {
			continue
		}
		ep, ok := e.Ref.Get()
		if !ok {
			continue
		}
		u.log.Debug("setting rx streamer rates", "channel", e.ID)
		term := ep.Terminator()
		ep.SetTickRate(term.TickRate())
		ep.SetSampRate(term.OutputSampRate())
	}
	for _, e := range u.reg.SnapshotTx() {
		mb, ok := MotherboardOf(e.ID)
		if !ok || mb != mbIndex {
			continue
		}
		ep, ok := e.Ref.Get()
		if !ok {
			continue
		}
		u.log.Debug("setting tx streamer rates", "channel", e.ID, "rate", rate)
		ep.SetTickRate(rate)
		ep.SetSampRate(rate)
	}
}

// PropagateRxSampRate pushes a new RX sample rate into the endpoint
// served by the given DSP, then refreshes the endpoint's scale factor
// from the DDC's current scaling adjustment. A DSP with no live
// endpoint is a no-op: DSPs are routinely configured before any stream
// exists.
func (u *RateUpdater) PropagateRxSampRate(mb *periph.Motherboard, dsp int, rate float64) error {
	ep, ok := u.reg.ResolveRx(ChannelID(mb.Index, dsp))
	if !ok {
		return nil
	}
	ep.SetSampRate(rate)

	radio, err := mb.Radio(dsp)
	if err != nil {
		return err
	}
	adj, err := radio.Ddc.ScalingAdjustment()
	if err != nil {
		return periph.HardwareErrorf("read ddc scaling adjustment on mboard %d dsp %d: %v", mb.Index, dsp, err)
	}
	ep.SetScaleFactor(adj)
	return nil
}

// PropagateTxSampRate is the transmit counterpart, using the DUC's
// scaling adjustment and the TX endpoint.
func (u *RateUpdater) PropagateTxSampRate(mb *periph.Motherboard, dsp int, rate float64) error {
	ep, ok := u.reg.ResolveTx(ChannelID(mb.Index, dsp))
	if !ok {
		return nil
	}
	ep.SetSampRate(rate)

	radio, err := mb.Radio(dsp)
	if err != nil {
		return err
	}
	adj, err := radio.Duc.ScalingAdjustment()
	if err != nil {
		return periph.HardwareErrorf("read duc scaling adjustment on mboard %d dsp %d: %v", mb.Index, dsp, err)
	}
	ep.SetScaleFactor(adj)
	return nil
}
