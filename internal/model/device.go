package model

import "runtime"

// Device identifies the compute backend a model runs on. Selection is
// automatic: no accelerator backend is addressable from this runtime, so
// detection always lands on the CPU with one worker per logical core. The
// type exists so an accelerator backend can slot in without changing
// callers.
type Device struct {
	Kind    string
	Threads int
}

func DetectDevice() Device {
	return Device{Kind: "cpu", Threads: runtime.NumCPU()}
}

func (d Device) String() string { return d.Kind }
