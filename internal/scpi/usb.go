// internal/scpi/usb.go
package scpi

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/gousb"
)

// usbChannel talks to USB test instruments over their default interface's
// bulk endpoints.
type usbChannel struct {
	ctx      *gousb.Context
	device   *gousb.Device
	intfDone func()
	outEndpt *gousb.OutEndpoint
	inEndpt  *gousb.InEndpoint
	mutex    sync.Mutex
	timeout  time.Duration
	leftover string
}

// openUSB finds the device by its vendor/product/serial triple and claims
// the default interface.
func openUSB(addr Address, opts Options) (*usbChannel, error) {
	vendor, err := parseHexID(addr.USB.Vendor)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("invalid usb vendor id %q: %v", addr.USB.Vendor, err)}
	}
	product, err := parseHexID(addr.USB.Product)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("invalid usb product id %q: %v", addr.USB.Product, err)}
	}

	usbCtx := gousb.NewContext()

	device, err := findUSBDevice(usbCtx, vendor, product, addr.USB.Serial)
	if err != nil {
		usbCtx.Close()
		return nil, &ConnectError{Target: addr.String(), Cause: err}
	}

	intf, done, err := device.DefaultInterface()
	if err != nil {
		device.Close()
		usbCtx.Close()
		return nil, &ConnectError{Target: addr.String(), Cause: fmt.Errorf("failed to claim interface: %w", err)}
	}

	var outEndpt *gousb.OutEndpoint
	var inEndpt *gousb.InEndpoint
	for _, desc := range intf.Setting.Endpoints {
		if desc.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if desc.Direction == gousb.EndpointDirectionOut && outEndpt == nil {
			outEndpt, err = intf.OutEndpoint(desc.Number)
		}
		if desc.Direction == gousb.EndpointDirectionIn && inEndpt == nil {
			inEndpt, err = intf.InEndpoint(desc.Number)
		}
		if err != nil {
			done()
			device.Close()
			usbCtx.Close()
			return nil, &ConnectError{Target: addr.String(), Cause: fmt.Errorf("failed to open bulk endpoint: %w", err)}
		}
	}
	if outEndpt == nil || inEndpt == nil {
		done()
		device.Close()
		usbCtx.Close()
		return nil, &ConnectError{Target: addr.String(), Cause: fmt.Errorf("device has no bulk in/out endpoint pair")}
	}

	return &usbChannel{
		ctx:      usbCtx,
		device:   device,
		intfDone: done,
		outEndpt: outEndpt,
		inEndpt:  inEndpt,
		timeout:  opts.Timeout,
	}, nil
}

func (c *usbChannel) WriteString(s string) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	n, err := c.outEndpt.WriteContext(ctx, []byte(s))
	if err != nil {
		return n, fmt.Errorf("failed to write to usb device: %w", err)
	}
	return n, nil
}

func (c *usbChannel) ReadString() (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var builder strings.Builder
	builder.WriteString(c.leftover)
	c.leftover = ""

	if idx := strings.IndexByte(builder.String(), '\n'); idx >= 0 {
		full := builder.String()
		c.leftover = full[idx+1:]
		return full[:idx+1], nil
	}

	buf := make([]byte, 4096)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		n, err := c.inEndpt.ReadContext(ctx, buf)
		cancel()
		if err != nil {
			return "", fmt.Errorf("failed to read from usb device: %w", err)
		}
		builder.Write(buf[:n])
		if idx := strings.IndexByte(builder.String(), '\n'); idx >= 0 {
			full := builder.String()
			c.leftover = full[idx+1:]
			return full[:idx+1], nil
		}
	}
}

func (c *usbChannel) SetTimeout(d time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.timeout = d
	return nil
}

func (c *usbChannel) Timeout() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.timeout
}

func (c *usbChannel) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.intfDone != nil {
		c.intfDone()
		c.intfDone = nil
	}
	if c.device != nil {
		c.device.Close()
		c.device = nil
	}
	if c.ctx != nil {
		c.ctx.Close()
		c.ctx = nil
	}
	return nil
}

// parseHexID parses a hex ID string, with or without the 0x prefix.
func parseHexID(hexStr string) (gousb.ID, error) {
	hexStr = strings.TrimPrefix(hexStr, "0x")
	id, err := strconv.ParseUint(hexStr, 16, 16)
	if err != nil {
		return 0, err
	}
	return gousb.ID(id), nil
}

// findUSBDevice enumerates by VID/PID and, when supplied, narrows by serial
// number.
func findUSBDevice(usbCtx *gousb.Context, vendor, product gousb.ID, serialNumber string) (*gousb.Device, error) {
	devices, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vendor && desc.Product == product
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate usb devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("usb device not found (VID: %04X, PID: %04X)", uint16(vendor), uint16(product))
	}

	selected := -1
	for i, device := range devices {
		if serialNumber == "" {
			selected = i
			break
		}
		sn, err := device.SerialNumber()
		if err == nil && sn == serialNumber {
			selected = i
			break
		}
	}

	for i, device := range devices {
		if i != selected {
			device.Close()
		}
	}
	if selected < 0 {
		return nil, fmt.Errorf("no usb device with serial number %q", serialNumber)
	}
	return devices[selected], nil
}
