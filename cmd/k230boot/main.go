// k230boot drives the USB recovery protocol of the Kendryte K230D mask ROM:
// it can print the chip identification, push a binary image into on-chip
// memory and run it, or send the chip back to the mask ROM entry point.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/kendryte-hacks/k230boot/pkg/device"
	"github.com/kendryte-hacks/k230boot/pkg/k230"
)

var (
	verbose  = flag.Bool("verbose", false, "print USB device details during discovery")
	emulator = flag.Bool("emulator", false, "drive an in-process emulated device instead of real hardware")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: k230boot [options] <command> [arguments]

Commands:
  cpu-info                      print CPU info and exit
  rom                           jump back to the mask ROM
  load [-address ADDR] FILE     load a binary image into device memory
  run [-address ADDR] [-space sram|dram] FILE
                                load a binary image and run it

ADDR accepts decimal or 0x-prefixed hex. The default load address is the
SRAM run base (%#x).

Options:
`, k230.SRAMRunBase)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	dev, err := openBackend()
	if err != nil {
		fmt.Printf("Cannot open device: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()
	log.Printf("Using %s", dev.Name())

	loader := k230.NewLoader(dev)

	// The chip identification is printed for every command.
	info, err := loader.CpuInfo()
	if err != nil {
		fmt.Printf("Cannot read CPU info: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Device says: %s\n", info)

	switch cmd {
	case "cpu-info":
		// The banner above is the whole job.
	case "rom":
		if err := loader.BootROM(); err != nil {
			fmt.Printf("Cannot jump back to mask ROM: %v\n", err)
			os.Exit(1)
		}
	case "load":
		addr, path := imageFlags("load", args, false)
		loadFile(addr, path, loader.LoadImage)
	case "run":
		addr, path := imageFlags("run", args, true)
		loadFile(addr, path, loader.Run)
	default:
		fmt.Printf("Unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}
}

func openBackend() (device.Backend, error) {
	if *emulator {
		return device.NewEmulator("K230D emulated mask ROM"), nil
	}
	return device.FindUSB(*verbose)
}

// imageFlags parses the per-command flags of load and run: the image file,
// an optional memory space, and an explicit address overriding the space.
func imageFlags(name string, args []string, withSpace bool) (addr uint32, path string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	addrStr := fs.String("address", "", "load address, overrides -space")
	space := "sram"
	if withSpace {
		fs.StringVar(&space, "space", "sram", "memory space to load into (sram or dram)")
	}
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Printf("%s needs exactly one image file\n", name)
		usage()
		os.Exit(1)
	}

	base, ok := k230.Spaces[space]
	if !ok {
		fmt.Printf("Unknown memory space %q\n", space)
		os.Exit(1)
	}
	addr = base
	if *addrStr != "" {
		v, err := strconv.ParseUint(*addrStr, 0, 32)
		if err != nil {
			fmt.Printf("Bad address %q: %v\n", *addrStr, err)
			os.Exit(1)
		}
		addr = uint32(v)
	}
	return addr, fs.Arg(0)
}

func loadFile(addr uint32, path string, push func(uint32, io.Reader) error) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("Cannot open image file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		log.Printf("Pushing %d bytes to %#x", fi.Size(), addr)
	}
	if err := push(addr, f); err != nil {
		fmt.Printf("Cannot load %q: %v\n", path, err)
		os.Exit(1)
	}
}
