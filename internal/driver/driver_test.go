package driver

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdr-control/sdrc/internal/devtree"
	"github.com/sdr-control/sdrc/internal/hints"
	"github.com/sdr-control/sdrc/internal/periph"
	"github.com/sdr-control/sdrc/internal/periph/sim"
	"github.com/sdr-control/sdrc/internal/stream"
	"github.com/sdr-control/sdrc/internal/subdev"
	"github.com/sdr-control/sdrc/internal/telemetry"
)

type fixture struct {
	drv  *Driver
	sims []*sim.Motherboard
	sync *sim.Synchronizer
	tree *devtree.Tree
	hub  *telemetry.Hub
}

func newFixture(t *testing.T, numMboards int) *fixture {
	t.Helper()
	tree := devtree.New()
	sims := make([]*sim.Motherboard, numMboards)
	mbs := make([]*periph.Motherboard, numMboards)
	for i := range sims {
		sims[i] = sim.NewMotherboard(i, 2, periph.PathEthernet)
		sims[i].MB.TickRate = 200e6
		mbs[i] = sims[i].MB
		for _, slot := range []string{"A", "B"} {
			pair := subdev.Pair{DB: slot, SD: "0"}
			tree.SetString(subdev.ConnectionPath(i, subdev.RX, pair), "IQ")
			tree.SetString(subdev.ConnectionPath(i, subdev.TX, pair), "QI")
		}
	}
	synchronizer := &sim.Synchronizer{}
	hub := telemetry.NewHub()
	t.Cleanup(hub.Stop)

	drv := New(Options{
		Mboards:      mbs,
		Tree:         tree,
		Synchronizer: synchronizer,
		Compat:       subdev.TreeChecker{Tree: tree},
		Platform:     hints.PlatformLinux,
		Hub:          hub,
		Logger:       log.New(io.Discard),
	})
	return &fixture{drv: drv, sims: sims, sync: synchronizer, tree: tree, hub: hub}
}

func TestCreateRxStream(t *testing.T) {
	f := newFixture(t, 1)

	id, err := f.drv.CreateStream(subdev.RX, 0, []int{0})
	require.NoError(t, err)
	assert.Equal(t, "0/Radio_0", id)

	ep, ok := f.drv.Registry().ResolveRx(id)
	require.True(t, ok)
	assert.Equal(t, 200e6, ep.(*stream.ChannelEndpoint).TickRate())

	assert.Zero(t, f.sync.CallCount(), "receive setup must not touch the DACs")
}

func TestCreateTxStreamSyncsDacs(t *testing.T) {
	f := newFixture(t, 1)

	id, err := f.drv.CreateStream(subdev.TX, 0, []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, "0/Radio_0", id)

	_, ok := f.drv.Registry().ResolveTx("0/Radio_1")
	assert.True(t, ok, "every channel of the stream is registered")

	require.Equal(t, 1, f.sync.CallCount())
	assert.Len(t, f.sync.Calls[0], 2, "one joint call covering both radios")
}

func TestCreateStreamRejectsBadArgs(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.drv.CreateStream(subdev.Direction("sideways"), 0, []int{0})
	assert.ErrorIs(t, err, periph.ErrConfiguration)

	_, err = f.drv.CreateStream(subdev.RX, 0, nil)
	assert.ErrorIs(t, err, periph.ErrConfiguration)

	_, err = f.drv.CreateStream(subdev.RX, 5, []int{0})
	assert.ErrorIs(t, err, periph.ErrConfiguration)

	_, err = f.drv.CreateStream(subdev.RX, 0, []int{7})
	assert.ErrorIs(t, err, periph.ErrConfiguration)
}

func TestReleaseStream(t *testing.T) {
	f := newFixture(t, 1)

	id, err := f.drv.CreateStream(subdev.TX, 0, []int{0, 1})
	require.NoError(t, err)

	require.NoError(t, f.drv.ReleaseStream(subdev.TX, id))
	_, ok := f.drv.Registry().ResolveTx(id)
	assert.False(t, ok)
	_, ok = f.drv.Registry().ResolveTx("0/Radio_1")
	assert.False(t, ok)

	err = f.drv.ReleaseStream(subdev.TX, id)
	assert.ErrorIs(t, err, periph.ErrConfiguration, "double release is a caller mistake")
}

func TestUpdateTickRatePropagates(t *testing.T) {
	f := newFixture(t, 2)

	txID, err := f.drv.CreateStream(subdev.TX, 0, []int{0})
	require.NoError(t, err)
	otherID, err := f.drv.CreateStream(subdev.TX, 1, []int{0})
	require.NoError(t, err)

	require.NoError(t, f.drv.UpdateTickRate(0, 184.32e6))
	assert.Equal(t, 184.32e6, f.sims[0].MB.TickRate)

	ep, _ := f.drv.Registry().ResolveTx(txID)
	assert.Equal(t, 184.32e6, ep.(*stream.ChannelEndpoint).TickRate())

	other, _ := f.drv.Registry().ResolveTx(otherID)
	assert.Equal(t, 200e6, other.(*stream.ChannelEndpoint).TickRate(), "other motherboard unaffected")

	assert.ErrorIs(t, f.drv.UpdateTickRate(0, -1), periph.ErrConfiguration)
	assert.ErrorIs(t, f.drv.UpdateTickRate(9, 200e6), periph.ErrConfiguration)
}

func TestUpdateRxSampRate(t *testing.T) {
	f := newFixture(t, 1)
	f.sims[0].Radios[0].Ddc.SetScalingAdjustment(0.5)

	id, err := f.drv.CreateStream(subdev.RX, 0, []int{0})
	require.NoError(t, err)

	require.NoError(t, f.drv.UpdateRxSampRate(0, 0, 25e6))
	ep, _ := f.drv.Registry().ResolveRx(id)
	cep := ep.(*stream.ChannelEndpoint)
	assert.Equal(t, 25e6, cep.SampRate())
	assert.Equal(t, 0.5, cep.ScaleFactor())

	// No endpoint on that DSP: silently nothing to update.
	require.NoError(t, f.drv.UpdateRxSampRate(0, 1, 25e6))
}

func TestUpdateSubdevSpec(t *testing.T) {
	f := newFixture(t, 1)

	spec, err := subdev.ParseSpec("A:0 B:0")
	require.NoError(t, err)
	require.NoError(t, f.drv.UpdateSubdevSpec(subdev.RX, 0, spec))
	assert.Equal(t, "A:0 B:0", f.sims[0].MB.RxSubdevSpec)

	bad := subdev.Spec{{DB: "A", SD: "0"}, {DB: "A", SD: "0"}}
	assert.ErrorIs(t, f.drv.UpdateSubdevSpec(subdev.RX, 0, bad), periph.ErrConfiguration)
}

func TestPostStreamSetupHook(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.drv.CreateStream(subdev.TX, 0, []int{0})
	require.NoError(t, err)
	require.Equal(t, 1, f.sync.CallCount())

	require.NoError(t, f.drv.PostStreamSetupHook(false))
	assert.Equal(t, 1, f.sync.CallCount(), "receive hook is a no-op")

	require.NoError(t, f.drv.PostStreamSetupHook(true))
	assert.Equal(t, 2, f.sync.CallCount())
}

func TestStreamEventsPublished(t *testing.T) {
	f := newFixture(t, 1)
	events, cancel := f.hub.Subscribe(16)
	defer cancel()

	id, err := f.drv.CreateStream(subdev.TX, 0, []int{0})
	require.NoError(t, err)
	require.NoError(t, f.drv.ReleaseStream(subdev.TX, id))

	var types []telemetry.EventType
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	assert.Contains(t, types, telemetry.EventRadiosSynced)
	assert.Contains(t, types, telemetry.EventStreamCreated)
	assert.Contains(t, types, telemetry.EventStreamReleased)
}

func TestHints(t *testing.T) {
	f := newFixture(t, 1)

	rx := f.drv.RxHints(0)
	assert.Equal(t, "33554432", rx["recv_buff_size"])
	assert.Empty(t, f.drv.TxHints(0))
}
