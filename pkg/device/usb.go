package device

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/gousb"
	"github.com/google/gousb/usbid"

	"github.com/kendryte-hacks/k230boot/pkg/k230"
	"github.com/kendryte-hacks/k230boot/pkg/xfer"
)

// Interface-claim retry policy. The contention window is a brief OS-level
// handle release after enumeration, so poll at a fixed short cadence rather
// than backing off.
const (
	claimTimeout = time.Second
	claimPeriod  = 200 * time.Microsecond
)

// ErrNotFound is returned when no device in recovery mode is on the bus.
var ErrNotFound = errors.New("device not found, is it connected and in the right mode?")

const (
	ctrlVendorOut = gousb.ControlOut | gousb.ControlVendor | gousb.ControlDevice
	ctrlVendorIn  = gousb.ControlIn | gousb.ControlVendor | gousb.ControlDevice
)

// USB is a K230D in recovery mode, opened and claimed over libusb.
type USB struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	out  *gousb.OutEndpoint
}

// FindUSB locates the first device on the bus matching the recovery-mode
// VID/PID, opens it, claims its first interface and resolves the bulk-out
// endpoint from the active configuration's first alt setting.
func FindUSB(verbose bool) (*USB, error) {
	ctx := gousb.NewContext()
	u, err := openAndClaim(ctx, verbose)
	if err != nil {
		ctx.Close()
		return nil, err
	}
	return u, nil
}

func openAndClaim(ctx *gousb.Context, verbose bool) (*USB, error) {
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(k230.VendorID) && desc.Product == gousb.ID(k230.ProductID)
	})
	// Opening unrelated devices on the bus may fail; that only matters if no
	// matching device came back.
	if len(devs) == 0 {
		if err != nil {
			return nil, fmt.Errorf("enumerating devices: %v", err)
		}
		return nil, ErrNotFound
	}
	for _, d := range devs[1:] {
		d.Close()
	}
	dev := devs[0]

	if man, merr := dev.Manufacturer(); merr == nil {
		prod, _ := dev.Product()
		log.Printf("Found %s %s", man, prod)
	}
	if verbose {
		log.Printf("Device: %s", usbid.Describe(dev.Desc))
	}
	log.Printf("Speed %s, max packet size %d", dev.Desc.Speed, maxPacketSize(dev.Desc.Speed))

	if err := dev.SetAutoDetach(true); err != nil {
		log.Printf("Cannot enable kernel driver auto-detach: %v", err)
	}

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("reading active configuration: %v", err)
	}
	cfg, err := dev.Config(cfgNum)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("selecting configuration %d: %v", cfgNum, err)
	}

	// Just use the first interface, first alt setting.
	var intf *gousb.Interface
	claimErr := claimRetry(func() error {
		var cerr error
		intf, cerr = cfg.Interface(0, 0)
		return cerr
	})
	if claimErr != nil {
		cfg.Close()
		dev.Close()
		return nil, claimErr
	}

	out, err := outEndpoint(intf)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		return nil, err
	}

	return &USB{ctx: ctx, dev: dev, cfg: cfg, intf: intf, out: out}, nil
}

// claimRetry calls claim at a fixed cadence until it succeeds or the budget
// elapses, then reports the last failure.
func claimRetry(claim func() error) error {
	start := time.Now()
	for {
		err := claim()
		if err == nil {
			return nil
		}
		if time.Since(start) > claimTimeout {
			return fmt.Errorf("claiming interface: %w", err)
		}
		time.Sleep(claimPeriod)
	}
}

func outEndpoint(intf *gousb.Interface) (*gousb.OutEndpoint, error) {
	for _, ep := range intf.Setting.Endpoints {
		if ep.Direction == gousb.EndpointDirectionOut {
			return intf.OutEndpoint(ep.Number)
		}
	}
	return nil, fmt.Errorf("interface %s has no out endpoint", intf)
}

func maxPacketSize(s gousb.Speed) int {
	switch s {
	case gousb.SpeedLow, gousb.SpeedFull:
		return 64
	case gousb.SpeedHigh:
		return 512
	case gousb.SpeedSuper:
		return 1024
	}
	return 0
}

func (u *USB) Name() string {
	return fmt.Sprintf("K230D at bus %d address %d", u.dev.Desc.Bus, u.dev.Desc.Address)
}

func (u *USB) ControlIn(request uint8, value, index uint16, buf []byte) (int, error) {
	return xfer.Timed(xfer.Deadline, func() (int, error) {
		return u.dev.Control(ctrlVendorIn, request, value, index, buf)
	})
}

func (u *USB) ControlOut(request uint8, value, index uint16) error {
	_, err := xfer.Timed(xfer.Deadline, func() (int, error) {
		return u.dev.Control(ctrlVendorOut, request, value, index, nil)
	})
	return err
}

func (u *USB) BulkOut(p []byte) (int, error) {
	return xfer.Timed(xfer.Deadline, func() (int, error) {
		return u.out.Write(p)
	})
}

func (u *USB) Close() error {
	u.intf.Close()
	if err := u.cfg.Close(); err != nil {
		log.Printf("Cannot release configuration: %v", err)
	}
	if err := u.dev.Close(); err != nil {
		log.Printf("Cannot close device: %v", err)
	}
	return u.ctx.Close()
}
