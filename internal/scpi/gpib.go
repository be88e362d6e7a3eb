// internal/scpi/gpib.go
package scpi

import (
	"context"
	"fmt"
	"strings"
)

// openGPIB reaches a bus-addressed instrument through a Prologix-style
// GPIB-LAN gateway: dial the gateway socket, put it in controller mode,
// select the target primary address, and let responses stream back
// automatically. The wireless flag routes through the secondary gateway.
func openGPIB(ctx context.Context, addr Address, opts Options) (*tcpChannel, error) {
	gateway := opts.Gateway
	if opts.Wireless {
		gateway = opts.AltGateway
	}
	if gateway == "" {
		return nil, &ConfigError{Reason: "gpib addressing requires a LAN gateway address"}
	}
	if !strings.Contains(gateway, ":") {
		gateway = fmt.Sprintf("%s:%d", gateway, gatewayPort)
	}

	ch, err := dialRawSocket(ctx, gateway, opts.Timeout)
	if err != nil {
		return nil, err
	}

	setup := []string{
		"++mode 1",
		fmt.Sprintf("++addr %s", addr.GPIB),
		"++auto 1",
	}
	for _, cmd := range setup {
		if _, err := ch.WriteString(cmd + "\n"); err != nil {
			ch.Close()
			return nil, &ConnectError{Target: addr.String(), Cause: fmt.Errorf("gateway negotiation failed: %w", err)}
		}
	}

	return ch, nil
}
