// ABOUTME: Output device probe
// ABOUTME: Lists backends, devices and the stream configs negotiation would try
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Resonate-Protocol/playout/internal/version"
	"github.com/Resonate-Protocol/playout/pkg/audio/output"
	"github.com/Resonate-Protocol/playout/pkg/audio/source"
)

var (
	backend = flag.String("backend", "", "Backend to probe (default: all)")
	open    = flag.Bool("open", false, "Open each backend's default output and play a short beep")
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	names := output.HostNames()
	if *backend != "" {
		names = []string{*backend}
	}

	fmt.Printf("%s\n\n", version.String())

	failed := false
	for _, name := range names {
		host, err := output.NewHost(name)
		if err != nil {
			fmt.Printf("== %s: unavailable (%v)\n\n", name, err)
			continue
		}

		if err := probe(os.Stdout, host); err != nil {
			fmt.Printf("   error: %v\n", err)
			failed = true
		}
		if *open {
			if err := beep(os.Stdout, host); err != nil {
				fmt.Printf("   open failed: %v\n", err)
				failed = true
			}
		}
		fmt.Println()

		if err := host.Close(); err != nil {
			log.Printf("Warning: failed to close %s: %v", name, err)
		}
	}

	if failed {
		os.Exit(1)
	}
}

// probe prints every output device of host with its candidate configs
func probe(w io.Writer, host output.Host) error {
	fmt.Fprintf(w, "== %s\n", host.Name())

	defaultID := ""
	if dev, err := host.DefaultOutputDevice(); err == nil {
		defaultID = dev.ID()
	} else {
		fmt.Fprintf(w, "   no default device: %v\n", err)
	}

	devices, err := host.OutputDevices()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	if len(devices) == 0 {
		fmt.Fprintln(w, "   no output devices")
		return nil
	}

	for _, dev := range devices {
		marker := " "
		if dev.ID() == defaultID {
			marker = "*"
		}
		fmt.Fprintf(w, " %s %s [%s]\n", marker, dev.Name(), dev.ID())

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		i := 0
		for c := range output.Candidates(dev) {
			i++
			if c.Err != nil {
				fmt.Fprintf(tw, "     %d.\terror\t%v\n", i, c.Err)
				continue
			}
			fmt.Fprintf(tw, "     %d.\t%s\t%d bytes/frame\n", i, c.Config, c.Config.Channels*c.Config.Format.SampleSize())
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// beep negotiates the default output the same way the player does and plays
// a quarter second tone on it
func beep(w io.Writer, host output.Host) error {
	stream, handle, err := output.TryDefault(host, output.WithAttemptObserver(func(a output.Attempt) {
		status := "ok"
		if a.Err != nil {
			status = a.Err.Error()
		}
		fmt.Fprintf(w, "   try %s on %s: %s\n", a.Config, a.Device, status)
	}))
	if err != nil {
		return err
	}
	defer stream.Close()

	length := 250 * time.Millisecond
	if err := handle.PlayRaw(source.Take(source.Sine(1, 48000, 880, 0.3), length)); err != nil {
		return err
	}
	time.Sleep(length + 50*time.Millisecond)
	fmt.Fprintf(w, "   played on %s (%s)\n", stream.Device(), stream.Config())
	return nil
}
