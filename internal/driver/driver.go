// Package driver ties the control-plane core together behind the
// operations configuration-change handling calls: subdevice routing,
// tick and sample-rate propagation, stream lifecycle with its
// post-setup synchronization hook, and transport hints.
package driver

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/sdr-control/sdrc/internal/audit"
	"github.com/sdr-control/sdrc/internal/dacsync"
	"github.com/sdr-control/sdrc/internal/devtree"
	"github.com/sdr-control/sdrc/internal/hints"
	"github.com/sdr-control/sdrc/internal/periph"
	"github.com/sdr-control/sdrc/internal/rfgraph"
	"github.com/sdr-control/sdrc/internal/stream"
	"github.com/sdr-control/sdrc/internal/subdev"
	"github.com/sdr-control/sdrc/internal/telemetry"
)

// Driver is the control-plane core for one device composed of several
// independently clocked motherboards. Configuration changes for one
// motherboard must be serialized by the caller; changes on different
// motherboards are independent.
type Driver struct {
	mbs      []*periph.Motherboard
	tree     devtree.Store
	registry *stream.Registry
	updater  *stream.RateUpdater
	router   *subdev.Configurator
	syncd    *dacsync.Dispatcher
	hints    *hints.Provider
	hub      *telemetry.Hub
	audit    *audit.Logger
	log      *log.Logger

	mu      sync.Mutex
	streams map[string]*streamRecord
}

type streamRecord struct {
	dir   subdev.Direction
	ids   []string
	owned *stream.OwnedEndpoint
}

// Options carries the collaborators a Driver is assembled from. Hub
// and Audit may be nil; everything else is required.
type Options struct {
	Mboards      []*periph.Motherboard
	Tree         devtree.Store
	Synchronizer periph.Synchronizer
	Compat       subdev.CompatChecker
	Platform     hints.Platform
	Hub          *telemetry.Hub
	Audit        *audit.Logger
	Logger       *log.Logger
}

// New assembles a driver core.
func New(opts Options) *Driver {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	reg := stream.NewRegistry()
	return &Driver{
		mbs:      opts.Mboards,
		tree:     opts.Tree,
		registry: reg,
		updater:  stream.NewRateUpdater(reg, logger),
		router:   subdev.NewConfigurator(opts.Tree, opts.Mboards, opts.Compat, logger),
		syncd:    dacsync.NewDispatcher(reg, opts.Mboards, opts.Synchronizer, logger),
		hints:    hints.NewProvider(opts.Platform, opts.Mboards),
		hub:      opts.Hub,
		audit:    opts.Audit,
		log:      logger,
		streams:  make(map[string]*streamRecord),
	}
}

// Registry exposes the endpoint registry to stream-acquisition code.
func (d *Driver) Registry() *stream.Registry { return d.registry }

// NumMboards returns the motherboard count.
func (d *Driver) NumMboards() int { return len(d.mbs) }

// Mboard returns the motherboard at index.
func (d *Driver) Mboard(idx int) (*periph.Motherboard, error) {
	if idx < 0 || idx >= len(d.mbs) {
		return nil, periph.ConfigErrorf("mboard index %d out of range (have %d)", idx, len(d.mbs))
	}
	return d.mbs[idx], nil
}

// UpdateSubdevSpec validates and applies a subdevice spec for one
// direction of one motherboard.
func (d *Driver) UpdateSubdevSpec(dir subdev.Direction, mbIndex int, spec subdev.Spec) error {
	err := d.router.Configure(dir, mbIndex, spec)
	d.record("updateSubdevSpec", mbIndex, map[string]any{"direction": dir, "spec": spec.String()}, err)
	if err == nil {
		d.publish(telemetry.EventSubdevChanged, mbIndex, map[string]any{"direction": string(dir), "spec": spec.String()})
	}
	return err
}

// UpdateTickRate changes a motherboard's master clock rate and
// re-propagates timing into every endpoint it serves.
func (d *Driver) UpdateTickRate(mbIndex int, rate float64) error {
	mb, err := d.Mboard(mbIndex)
	if err == nil && rate <= 0 {
		err = periph.ConfigErrorf("tick rate must be positive, got %v", rate)
	}
	if err == nil {
		mb.TickRate = rate
		d.updater.PropagateTickRate(mbIndex, rate)
	}
	d.record("updateTickRate", mbIndex, map[string]any{"rate": rate}, err)
	if err == nil {
		d.publish(telemetry.EventTickRateChanged, mbIndex, map[string]any{"rate": rate})
	}
	return err
}

// UpdateRxSampRate propagates a DSP's new RX sample rate into its live
// endpoint, if any.
func (d *Driver) UpdateRxSampRate(mbIndex, dsp int, rate float64) error {
	mb, err := d.Mboard(mbIndex)
	if err == nil {
		err = d.updater.PropagateRxSampRate(mb, dsp, rate)
	}
	d.record("updateRxSampRate", mbIndex, map[string]any{"dsp": dsp, "rate": rate}, err)
	if err == nil {
		d.publish(telemetry.EventSampRateChanged, mbIndex, map[string]any{"direction": "rx", "dsp": dsp, "rate": rate})
	}
	return err
}

// UpdateTxSampRate propagates a DSP's new TX sample rate into its live
// endpoint, if any.
func (d *Driver) UpdateTxSampRate(mbIndex, dsp int, rate float64) error {
	mb, err := d.Mboard(mbIndex)
	if err == nil {
		err = d.updater.PropagateTxSampRate(mb, dsp, rate)
	}
	d.record("updateTxSampRate", mbIndex, map[string]any{"dsp": dsp, "rate": rate}, err)
	if err == nil {
		d.publish(telemetry.EventSampRateChanged, mbIndex, map[string]any{"direction": "tx", "dsp": dsp, "rate": rate})
	}
	return err
}

// PostStreamSetupHook runs after a batch of streams was created. It is
// a no-op for RX; for TX it dispatches DAC synchronization across all
// live TX endpoints.
func (d *Driver) PostStreamSetupHook(isTx bool) error {
	err := d.syncd.PostStreamHook(isTx)
	if isTx {
		d.record("postStreamSetupHook", -1, map[string]any{"tx": isTx}, err)
		if err == nil {
			d.publish(telemetry.EventRadiosSynced, -1, nil)
		}
	}
	return err
}

// RxHints returns the receive transport hints for endpoint
// construction on one motherboard.
func (d *Driver) RxHints(mbIndex int) map[string]string { return d.hints.RxHints(mbIndex) }

// TxHints returns the send transport hints for one motherboard.
func (d *Driver) TxHints(mbIndex int) map[string]string { return d.hints.TxHints(mbIndex) }

func (d *Driver) record(action string, mbIndex int, params map[string]any, err error) {
	if d.audit != nil {
		d.audit.LogAction(action, mbIndex, params, err)
	}
	if err != nil {
		d.log.Error("control-plane operation failed", "action", action, "mboard", mbIndex, "err", err)
		d.publish(telemetry.EventConfigFault, mbIndex, map[string]any{"action": action, "err": err.Error()})
	}
}

func (d *Driver) publish(t telemetry.EventType, mbIndex int, data map[string]any) {
	if d.hub != nil {
		d.hub.Publish(telemetry.Event{Type: t, Mboard: mbIndex, Data: data})
	}
}

// CreateStream builds a streaming endpoint over the given DSP channels
// of one motherboard, registers it, and for TX runs the post-setup
// synchronization hook. Transport hints are consulted once here, at
// construction time. It returns the endpoint's primary channel ID.
func (d *Driver) CreateStream(dir subdev.Direction, mbIndex int, dsps []int) (string, error) {
	mb, err := d.Mboard(mbIndex)
	if err != nil {
		return "", err
	}
	if !dir.Valid() {
		return "", periph.ConfigErrorf("bad direction %q", dir)
	}
	if len(dsps) == 0 {
		return "", periph.ConfigErrorf("stream needs at least one channel")
	}

	var h map[string]string
	if dir == subdev.RX {
		h = d.hints.RxHints(mbIndex)
	} else {
		h = d.hints.TxHints(mbIndex)
	}
	d.log.Debug("constructing endpoint", "mboard", mbIndex, "dir", dir, "hints", h)

	ids := make([]string, len(dsps))
	primary := stream.ChannelID(mbIndex, dsps[0])
	term := stream.NewTerminator(fmt.Sprintf("term/%s/%s", dir, primary))
	outputRate := mb.TickRate
	for i, dsp := range dsps {
		radio, err := mb.Radio(dsp)
		if err != nil {
			return "", err
		}
		if dir == subdev.RX && i == 0 {
			if r, err := radio.Ddc.OutputRate(); err == nil && r > 0 {
				outputRate = r
			}
		}
		ids[i] = stream.ChannelID(mbIndex, dsp)
		term.Connect(rfgraph.NewRadioBlock(ids[i], mbIndex, dsp))
	}
	term.SetRates(mb.TickRate, outputRate)

	ep := stream.NewChannelEndpoint(term)
	ep.SetTickRate(mb.TickRate)
	owned := stream.Own(ep)
	for _, id := range ids {
		if dir == subdev.RX {
			d.registry.RegisterRx(id, owned.Handle())
		} else {
			d.registry.RegisterTx(id, owned.Handle())
		}
	}

	d.mu.Lock()
	d.streams[streamKey(dir, primary)] = &streamRecord{dir: dir, ids: ids, owned: owned}
	d.mu.Unlock()

	err = d.PostStreamSetupHook(dir == subdev.TX)
	d.record("createStream", mbIndex, map[string]any{"direction": dir, "channels": ids}, err)
	if err != nil {
		return primary, err
	}
	d.publish(telemetry.EventStreamCreated, mbIndex, map[string]any{"direction": string(dir), "channels": ids})
	return primary, nil
}

// ReleaseStream drops the owning reference to a stream and removes its
// registry entries. Releasing an unknown stream is an error; handles
// already resolved elsewhere simply read as absent afterward.
func (d *Driver) ReleaseStream(dir subdev.Direction, channelID string) error {
	d.mu.Lock()
	rec, ok := d.streams[streamKey(dir, channelID)]
	if ok {
		delete(d.streams, streamKey(dir, channelID))
	}
	d.mu.Unlock()
	if !ok {
		return periph.ConfigErrorf("no %s stream %q", dir, channelID)
	}

	rec.owned.Release()
	for _, id := range rec.ids {
		if dir == subdev.RX {
			d.registry.UnregisterRx(id)
		} else {
			d.registry.UnregisterTx(id)
		}
	}
	mb, _ := stream.MotherboardOf(channelID)
	d.publish(telemetry.EventStreamReleased, mb, map[string]any{"direction": string(dir), "channels": rec.ids})
	return nil
}

func streamKey(dir subdev.Direction, id string) string {
	return string(dir) + "/" + id
}
