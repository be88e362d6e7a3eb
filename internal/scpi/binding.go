// internal/scpi/binding.go
package scpi

import "context"

// openTransport resolves an address and options into an open channel plus
// the backend tag that produced it. Backend selection runs in fixed
// priority order: vendor session layer, then bus, network, USB, and serial
// addressing. After open, every backend except serial and the vendor layer
// gets a device clear so stale output cannot leak into the first exchange;
// serial instruments are known to misbehave when cleared right after open.
func openTransport(ctx context.Context, addr Address, opts Options) (Channel, Backend, error) {
	if err := addr.Validate(); err != nil {
		return nil, "", err
	}

	var (
		ch      Channel
		backend Backend
		err     error
	)
	switch {
	case opts.Simulate:
		ch = NewSimChannel(opts.SimResponses, opts.Timeout)
		backend = BackendSim
	case opts.HiSLIP:
		if addr.Host == "" {
			return nil, "", &ConfigError{Reason: "vendor session layer requires a network address"}
		}
		ch, err = openHiSLIP(ctx, addr, opts)
		backend = BackendHiSLIP
	case addr.GPIB != nil:
		ch, err = openGPIB(ctx, addr, opts)
		backend = BackendGPIB
	case addr.Host != "":
		ch, err = openTCP(ctx, addr, opts)
		backend = BackendTCP
	case addr.USB != nil:
		ch, err = openUSB(addr, opts)
		backend = BackendUSB
	case addr.SerialPort != "":
		ch, err = openSerial(addr, opts)
		backend = BackendSerial
	}
	if err != nil {
		return nil, "", err
	}

	if backend != BackendSerial && backend != BackendHiSLIP {
		if _, err := ch.WriteString("*CLS\n"); err != nil {
			ch.Close()
			return nil, "", &ConnectError{Target: addr.String(), Cause: err}
		}
	}

	return ch, backend, nil
}
