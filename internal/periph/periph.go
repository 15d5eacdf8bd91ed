package periph

// TransportPath identifies how a motherboard moves samples to the host.
type TransportPath string

const (
	// PathEthernet is the network transport; its receive buffering is
	// host-configurable before the transport is constructed.
	PathEthernet TransportPath = "eth"

	// PathNIRIO is the hardware-direct (PCIe/NI-RIO) transport; its
	// buffering is fixed by the kernel driver and hints do not apply.
	PathNIRIO TransportPath = "nirio"
)

// DdcControl is the control surface of one digital down-converter.
type DdcControl interface {
	// SetMux programs the DDC input mux for the given frontend
	// connection, with the I/Q swap the analog wiring requires.
	SetMux(connection string, feSwapped bool) error

	// ScalingAdjustment reads the current scale compensation factor.
	// It changes with decimation, so it must be read fresh at the
	// moment it is propagated, never cached.
	ScalingAdjustment() (float64, error)

	// OutputRate reads the current output sample rate in Sps.
	OutputRate() (float64, error)
}

// DucControl is the control surface of one digital up-converter.
type DucControl interface {
	ScalingAdjustment() (float64, error)
}

// RxFrontend is the receive analog front-end mux control.
type RxFrontend interface {
	// SetMuxSwapped programs the I/Q swap flag. It must agree with the
	// swap programmed into the DDC or the downconverted signal is
	// mirrored.
	SetMuxSwapped(swapped bool) error
}

// TxFrontend is the transmit analog front-end mux control.
type TxFrontend interface {
	SetMux(connection string) error
}

// RadioPeriph bundles the per-channel hardware resources. Owned by its
// motherboard; lifetime equals the motherboard lifetime.
type RadioPeriph struct {
	Ddc  DdcControl
	Duc  DucControl
	RxFe RxFrontend
	TxFe TxFrontend
}

// Synchronizer is the hardware DAC-alignment primitive. Alignment is a
// joint, comparative operation across the whole group; it is never
// issued per radio.
type Synchronizer interface {
	Synchronize(group []*RadioPeriph) error
}

// Motherboard holds the mutable clock/DSP state of one independently
// clocked motherboard together with its radio peripheral arena.
// Configuration changes for one motherboard are serialized by the
// caller; the arena itself is fixed at construction.
type Motherboard struct {
	Index     int
	TickRate  float64
	XportPath TransportPath

	// RecvArgs and SendArgs are the stored transport configurations
	// consulted when a streaming endpoint is constructed.
	RecvArgs map[string]string
	SendArgs map[string]string

	// Active subdevice specs in markup form, maintained by the
	// routing configurator.
	RxSubdevSpec string
	TxSubdevSpec string

	radios []*RadioPeriph
}

// NewMotherboard builds a motherboard around a fixed radio arena.
func NewMotherboard(index int, radios []*RadioPeriph, path TransportPath) *Motherboard {
	return &Motherboard{
		Index:     index,
		XportPath: path,
		RecvArgs:  make(map[string]string),
		SendArgs:  make(map[string]string),
		radios:    radios,
	}
}

// NumRadios returns the size of the radio arena.
func (m *Motherboard) NumRadios() int {
	return len(m.radios)
}

// Radio returns the peripheral at the given physical radio index.
func (m *Motherboard) Radio(idx int) (*RadioPeriph, error) {
	if idx < 0 || idx >= len(m.radios) {
		return nil, ConfigErrorf("radio index %d out of range on mboard %d (have %d)", idx, m.Index, len(m.radios))
	}
	return m.radios[idx], nil
}

// RadioIndex resolves a daughterboard slot name to the physical radio
// index sharing the RadioPeriph index space. Slot A is radio 0, slot B
// is radio 1.
func (m *Motherboard) RadioIndex(dbName string) (int, error) {
	var idx int
	switch dbName {
	case "A":
		idx = 0
	case "B":
		idx = 1
	default:
		return 0, ConfigErrorf("unknown daughterboard slot %q on mboard %d", dbName, m.Index)
	}
	if idx >= len(m.radios) {
		return 0, ConfigErrorf("daughterboard slot %q has no radio on mboard %d", dbName, m.Index)
	}
	return idx, nil
}
