// Command cranelink_host runs a simulated crane board UART0 against a real
// serial device and logs every joystick record it receives.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/jangala-dev/tinygo-cranelink/cranelink"
	"github.com/jangala-dev/tinygo-cranelink/hostlink"
	"github.com/jangala-dev/tinygo-cranelink/uartx"
)

var (
	echo = flag.Bool("echo", false, "Send every decoded record back to the joystick.")
	poll = flag.Duration("poll", 10*time.Millisecond, "Foreground polling period.")
)

func init() {
	hostlink.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg := hostlink.NewConfig()
	rate, err := cfg.BaudRate()
	if err != nil {
		glog.Exit(err)
	}

	sim := uartx.NewSim()
	ports := uartx.NewPorts(sim, uartx.NewSim())
	port := ports.Port(uartx.UART0)
	port.Initialize()
	port.SetBaudRate(rate)

	conn, err := cfg.Open()
	if err != nil {
		glog.Exit(err)
	}
	glog.Infof("bridging %s at %d baud", cfg.Device, rate.BitsPerSecond())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go crane(ctx, port)

	if err := cfg.NewBridge(sim, conn).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		glog.Errorf("bridge: %v", err)
		glog.Flush()
		os.Exit(1)
	}
	glog.Info("stop requested")
}

// crane is the board's main loop: poll for complete lines and decode them.
func crane(ctx context.Context, port *uartx.Port) {
	ticker := time.NewTicker(*poll)
	defer ticker.Stop()

	last := cranelink.Neutral()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for {
			f, err := cranelink.Receive(port)
			if errors.Is(err, cranelink.ErrNoFrame) {
				break
			}
			if err != nil {
				glog.Warningf("drop record: %v", err)
				continue
			}
			if f != last {
				glog.Infof("frame %v", f)
				last = f
			} else {
				glog.V(1).Infof("frame %v", f)
			}
			if *echo {
				f.Send(port)
			}
		}
	}
}
