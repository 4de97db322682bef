package midi

import (
	"errors"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// ErrPortsTimeout is returned when the MIDI system does not answer
var ErrPortsTimeout = errors.New("midi port scan timed out")

// PortScanTimeout bounds how long ListPorts waits on the driver
var PortScanTimeout = 3 * time.Second

// Ports is a snapshot of the available MIDI ports
type Ports struct {
	Ins  []drivers.In
	Outs []drivers.Out
}

// InNames returns the input port names
func (p Ports) InNames() []string {
	names := make([]string, len(p.Ins))
	for i, in := range p.Ins {
		names[i] = in.String()
	}
	return names
}

// OutNames returns the output port names
func (p Ports) OutNames() []string {
	names := make([]string, len(p.Outs))
	for i, out := range p.Outs {
		names[i] = out.String()
	}
	return names
}

// ListPorts queries the driver for ports. Some MIDI services hang instead of
// answering, so the query runs in the background with a timeout.
func ListPorts() (Ports, error) {
	ch := make(chan Ports, 1)
	go func() {
		ch <- Ports{Ins: gomidi.GetInPorts(), Outs: gomidi.GetOutPorts()}
	}()

	select {
	case p := <-ch:
		return p, nil
	case <-time.After(PortScanTimeout):
		return Ports{}, ErrPortsTimeout
	}
}

// CloseDriver releases the registered driver
func CloseDriver() {
	gomidi.CloseDriver()
}
