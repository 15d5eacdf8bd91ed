package subdev

import (
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/sdr-control/sdrc/internal/devtree"
	"github.com/sdr-control/sdrc/internal/periph"
)

// CompatChecker confirms that every named daughterboard/frontend pair
// exists and is wired for the requested direction on a motherboard.
// It is supplied externally so that board-specific wiring knowledge
// stays out of the routing logic.
type CompatChecker interface {
	Check(dir Direction, mbIndex int, spec Spec) error
}

// Configurator maps a validated subdevice spec onto physical radio
// paths: it resolves each entry to a DSP index, programs the frontend
// and DDC muxing (including I/Q swap), and persists the resulting
// channel-to-DSP mapping in the device tree.
type Configurator struct {
	tree  devtree.Store
	mbs   []*periph.Motherboard
	check CompatChecker
	log   *log.Logger
}

// NewConfigurator builds a configurator over the motherboard set.
func NewConfigurator(tree devtree.Store, mbs []*periph.Motherboard, check CompatChecker, logger *log.Logger) *Configurator {
	return &Configurator{tree: tree, mbs: mbs, check: check, log: logger}
}

// ConnectionPath returns the tree path of a frontend's connection
// descriptor, e.g. /mboards/0/dboards/A/rx_frontends/0/connection.
func ConnectionPath(mbIndex int, dir Direction, p Pair) string {
	return devtree.Join("mboards", strconv.Itoa(mbIndex),
		"dboards", p.DB, string(dir)+"_frontends", p.SD, "connection")
}

// MappingPath returns the tree path the channel-to-DSP mapping for one
// direction is persisted at.
func MappingPath(mbIndex int, dir Direction) string {
	return devtree.Join("mboards", strconv.Itoa(mbIndex), string(dir)+"_chan_dsp_mapping")
}

// Configure validates and applies a subdevice spec for one direction of
// one motherboard. Validation failures leave no mux programming behind;
// once validation passes, a hardware failure aborts the attempt with
// the state programmed so far left in place (no rollback).
func (c *Configurator) Configure(dir Direction, mbIndex int, spec Spec) error {
	if !dir.Valid() {
		return periph.ConfigErrorf("bad direction %q", dir)
	}
	if mbIndex < 0 || mbIndex >= len(c.mbs) {
		return periph.ConfigErrorf("mboard index %d out of range (have %d)", mbIndex, len(c.mbs))
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	if c.check != nil {
		if err := c.check.Check(dir, mbIndex, spec); err != nil {
			return err
		}
	}
	mb := c.mbs[mbIndex]

	mapping := make([]int, len(spec))
	for i, p := range spec {
		radioIdx, err := mb.RadioIndex(p.DB)
		if err != nil {
			return err
		}
		mapping[i] = radioIdx

		radio, err := mb.Radio(radioIdx)
		if err != nil {
			return err
		}
		conn, err := c.tree.String(ConnectionPath(mbIndex, dir, p))
		if err != nil {
			return periph.HardwareErrorf("read connection for %s %s on mboard %d: %v", dir, p, mbIndex, err)
		}

		if dir == TX {
			if err := radio.TxFe.SetMux(conn); err != nil {
				return periph.HardwareErrorf("program tx frontend mux %s on mboard %d: %v", p, mbIndex, err)
			}
		} else {
			// Some wiring delivers the quadrature components in
			// reversed order; the digital mixer and the analog
			// front-end must agree on the ordering.
			feSwapped := conn == "QI" || conn == "Q"
			if err := radio.Ddc.SetMux(conn, feSwapped); err != nil {
				return periph.HardwareErrorf("program ddc mux %s on mboard %d: %v", p, mbIndex, err)
			}
			if err := radio.RxFe.SetMuxSwapped(feSwapped); err != nil {
				return periph.HardwareErrorf("program rx frontend swap %s on mboard %d: %v", p, mbIndex, err)
			}
		}
		c.log.Debug("routed channel", "mboard", mbIndex, "dir", dir, "chan", i, "path", p.String(), "dsp", radioIdx)
	}

	c.tree.SetIntVec(MappingPath(mbIndex, dir), mapping)
	if dir == TX {
		mb.TxSubdevSpec = spec.String()
	} else {
		mb.RxSubdevSpec = spec.String()
	}
	return nil
}

// TreeChecker is the default compatibility check: a pair is wired for a
// direction iff its connection descriptor exists in the device tree.
type TreeChecker struct {
	Tree devtree.Store
}

// Check implements CompatChecker.
func (t TreeChecker) Check(dir Direction, mbIndex int, spec Spec) error {
	for _, p := range spec {
		if !t.Tree.Has(ConnectionPath(mbIndex, dir, p)) {
			return periph.ConfigErrorf("no %s frontend %s on mboard %d", dir, p, mbIndex)
		}
	}
	return nil
}
