// Package periph models the per-motherboard hardware resources of the
// device: the fixed arena of radio peripherals (DDC, DUC and analog
// front-end control surfaces) plus the motherboard's clocking and
// transport attributes. Control surfaces are interfaces so that a real
// register-backed implementation and the simulated backend are
// interchangeable.
package periph
