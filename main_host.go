//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"ember/app"
	"ember/hal"
	"ember/internal/klog"
)

func main() {
	var hcfg hal.HeadlessConfig
	var serve bool
	var logLevel string
	var noBlink, noRTPulse, noSensorLog, noConsole bool
	cfg := app.DefaultConfig()

	flag.BoolVar(&hcfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&hcfg.Hz, "hz", 60, "Step rate in headless mode.")
	flag.Uint64Var(&hcfg.Ticks, "ticks", 0, "Stop after N steps in headless mode (0 = run forever).")
	flag.BoolVar(&serve, "serve", false, "Run in real time without a window until interrupted.")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (disabled, emerg ... info, debug, trace).")
	flag.IntVar(&cfg.QueueSize, "queue", cfg.QueueSize, "Event queue size.")
	flag.BoolVar(&noBlink, "no-blink", false, "Do not start the LED blinker.")
	flag.BoolVar(&noRTPulse, "no-rtpulse", false, "Do not start the real-time pulse task.")
	flag.BoolVar(&noSensorLog, "no-sensorlog", false, "Do not start the sensor logger.")
	flag.BoolVar(&noConsole, "no-console", false, "Do not show log lines on the display.")
	flag.Parse()

	level, err := klog.ParseLevel(logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.LogLevel = level
	cfg.Blink = !noBlink
	cfg.RTPulse = !noRTPulse
	cfg.SensorLog = !noSensorLog
	cfg.Console = !noConsole

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case serve:
		err = hal.RunServe(ctx, func(ctx context.Context, h hal.HAL) error {
			return app.Run(ctx, h, cfg)
		})
	case hcfg.Enabled:
		err = hal.RunHeadless(ctx, func(h hal.HAL) func() error {
			return app.NewWithConfig(h, cfg)
		}, hcfg)
	default:
		err = hal.RunWindow(func(h hal.HAL) func() error {
			return app.NewWithConfig(h, cfg)
		})
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
