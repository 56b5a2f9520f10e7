// Command transportd runs the Bluetooth audio transport core as a
// standalone daemon: it claims a BlueZ profile/endpoint registration (out
// of scope per spec.md §1, left to an external caller of the transport
// package in this build), owns one Device registry per paired peer, and
// waits until signalled to stop, then destroys every registered transport.
//
// This entrypoint mirrors the teacher's Robot.Start/Stop lifecycle
// (context.WithCancel + signal.Notify + a done channel with a bounded
// shutdown wait), adapted to the daemon's own dependencies instead of
// driver/connection collections.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/bluez-audio/transportd/internal/config"
	"github.com/bluez-audio/transportd/internal/logging"
	"github.com/bluez-audio/transportd/transport"
)

func main() {
	var (
		policyPath = flag.String("policy", "", "path to a YAML codec/volume policy file (optional)")
		logLevel   = flag.String("log-level", "info", "debug, info, warn, or error")
		logFormat  = flag.String("log-format", "text", "text or json")
	)
	flag.Parse()

	if err := logging.ConfigureFromString(*logLevel, *logFormat, "stdout"); err != nil {
		log.Fatalf("configure logging: %v", err)
	}
	logger := logging.GetLogger("transportd")

	policy := config.DefaultPolicy()
	if *policyPath != "" {
		loaded, err := config.LoadPolicyFile(*policyPath)
		if err != nil {
			logger.Errorf("load policy file: %v", err)
			os.Exit(1)
		}
		policy = loaded
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		logger.Errorf("connect to system bus: %v", err)
		os.Exit(1)
	}
	defer conn.Close()

	daemon := newDaemon(config.NewContext(conn, policy), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := daemon.Run(ctx); err != nil {
		logger.Errorf("daemon exited with error: %v", err)
		os.Exit(1)
	}
}

// daemon owns the top-level device registry and the goroutine that would,
// in a complete build, drive BlueZ Profile1/MediaEndpoint1 callbacks into
// Device.AddA2DPTransport/AddSCOTransport. Wiring those D-Bus object
// exports is the out-of-scope "BlueZ RPC plumbing" spec.md §1 assigns to
// an external caller; this entrypoint exists to give the transport
// package a runnable home and a tested shutdown sequence.
type daemon struct {
	ctx     *config.Context
	log     *logging.Logger
	devices map[string]*transport.Device
}

func newDaemon(ctx *config.Context, log *logging.Logger) *daemon {
	return &daemon{
		ctx:     ctx,
		log:     log,
		devices: make(map[string]*transport.Device),
	}
}

// deviceFor returns the registry for address, creating one on first use.
func (d *daemon) deviceFor(address string) *transport.Device {
	if dev, ok := d.devices[address]; ok {
		return dev
	}
	dev := transport.NewDevice(d.ctx, address)
	d.devices[address] = dev
	return dev
}

// Run blocks until ctx is cancelled (by SIGINT, via signal.NotifyContext),
// then destroys every outstanding transport across every device before
// returning, bounding the wait the way Robot.Stop bounds its own work-done
// wait.
func (d *daemon) Run(ctx context.Context) error {
	d.log.Infof("transportd started")
	<-ctx.Done()
	d.log.Infof("shutting down")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, dev := range d.devices {
			for _, t := range dev.Transports() {
				t.Destroy() // drops the Transports() snapshot's own ref
				t.Destroy() // drops the registry's ref, triggering teardown
			}
		}
	}()

	select {
	case <-done:
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timed out waiting for transports to shut down")
	}
}
