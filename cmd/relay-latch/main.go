// Command relay-latch drives a latching GPIO output and serves its HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/sweeney/relay-latch/internal/clock"
	"github.com/sweeney/relay-latch/internal/config"
	"github.com/sweeney/relay-latch/internal/console"
	"github.com/sweeney/relay-latch/internal/discovery"
	"github.com/sweeney/relay-latch/internal/gpio"
	"github.com/sweeney/relay-latch/internal/journal"
	"github.com/sweeney/relay-latch/internal/latch"
	"github.com/sweeney/relay-latch/internal/logging"
	"github.com/sweeney/relay-latch/internal/mqtt"
	"github.com/sweeney/relay-latch/internal/status"
	"github.com/sweeney/relay-latch/internal/web"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "/etc/relay-latch/config.yaml", "Path to YAML configuration")
	httpAddr := flag.String("http", "", "HTTP listen address (overrides config)")
	driver := flag.String("gpio-driver", "", "GPIO driver: cdev, rpio or fake (overrides config)")
	printState := flag.Bool("print-state", false, "Initialise the output, print its state and exit")
	dumpJournal := flag.String("dump-journal", "", "Decode a journal file to stdout and exit")

	flag.Parse()

	if *dumpJournal != "" {
		if err := dumpJournalFile(*dumpJournal, os.Stdout); err != nil {
			log.Fatalf("fatal: %v", err)
		}
		return
	}

	cfg, cfgErr := loadConfig(*configPath)
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *driver != "" {
		cfg.GPIO.Driver = *driver
	}

	logger := logging.New(cfg.Logging, version)
	if err := run(cfg, cfgErr, *printState, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads path. A missing or invalid file is not fatal: the defaults
// are returned together with the error so it can be shown in the menu.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Default(), err
	}
	return cfg, nil
}

func dumpJournalFile(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()
	return journal.Dump(w, f)
}

func controllerOptions(cfg config.LatchConfig) ([]latch.Option, error) {
	revert, err := latch.ParseRevertPolicy(cfg.Revert)
	if err != nil {
		return nil, err
	}
	clamp, err := latch.ParseClampPolicy(cfg.Clamp)
	if err != nil {
		return nil, err
	}
	return []latch.Option{
		latch.WithRevertPolicy(revert),
		latch.WithClampPolicy(clamp),
		latch.WithPeriod(int64(cfg.DefaultSeconds)),
		latch.WithTestModeProbe(latch.MarkerFile(cfg.TestModeMarker)),
	}, nil
}

func run(cfg *config.Config, cfgErr error, printState bool, logger *logging.Logger) (err error) {
	opts, err := controllerOptions(cfg.Latch)
	if err != nil {
		return fmt.Errorf("latch config: %w", err)
	}

	out, err := gpio.Open(cfg.GPIO)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() { err = multierr.Append(err, out.Close()) }()

	src := clock.System()

	if printState {
		ctrl, err := latch.New(out, src, opts...)
		if err != nil {
			return fmt.Errorf("init output: %w", err)
		}
		lvl, err := ctrl.ReadOutput()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		snap := ctrl.State()
		fmt.Printf("D1: %s, latch: %ds (%s, %s)\n", lvl, snap.PeriodSeconds, snap.RevertPolicy, snap.ClampPolicy)
		return nil
	}

	// The console goes first so every later log line shares its writer.
	var (
		lines     <-chan string
		menuOut   io.Writer = os.Stdout
		stopInput           = func() {}
	)
	if cfg.Console.Enabled {
		con, cerr := console.New(cfg.Console.Prompt)
		if cerr != nil {
			logger.Warn("console unavailable", "error", cerr)
		} else {
			logger = logging.NewWithWriter(cfg.Logging, version, con.Stdout())
			menuOut = con.Stdout()
			lines = con.Lines()
			ctx, cancel := context.WithCancel(context.Background())
			go con.Run(ctx)
			stopInput = func() {
				cancel()
				if cerr := con.Close(); cerr != nil {
					logger.Debug("console close", "error", cerr)
				}
			}
		}
	}
	defer stopInput()

	hostname, _ := os.Hostname()
	tracker := status.NewTracker(time.Now(), status.Config{
		Hostname:     hostname,
		HTTPAddr:     cfg.HTTP.Addr,
		Broker:       cfg.MQTT.Broker,
		PollMs:       cfg.Latch.PollInterval.Milliseconds(),
		HeartbeatMs:  cfg.Heartbeat.Milliseconds(),
		RevertPolicy: cfg.Latch.Revert,
		ClampPolicy:  cfg.Latch.Clamp,
	})
	if cfgErr != nil {
		logger.Warn("using default configuration", "error", cfgErr)
		tracker.SetLastError(cfgErr.Error())
	}
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.NopPublisher{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.NopPublisher{}
	if cfg.MQTT.Enabled {
		p, perr := mqtt.NewRealPublisher(mqtt.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			BufferSize:  cfg.MQTT.BufferSize,
		}, logger)
		if perr != nil {
			logger.Warn("mqtt unavailable", "broker", cfg.MQTT.Broker, "error", perr)
			tracker.SetLastError(perr.Error())
		} else {
			publisher, mqttStatus = p, p
		}
	}
	defer func() { err = multierr.Append(err, publisher.Close()) }()

	var jr *journal.Journal
	if cfg.Journal.Enabled {
		j, jerr := journal.Open(cfg.Journal.Path)
		if jerr != nil {
			logger.Warn("journal unavailable", "path", cfg.Journal.Path, "error", jerr)
			tracker.SetLastError(jerr.Error())
		} else {
			jr = j
			defer func() { err = multierr.Append(err, jr.Close()) }()
		}
	}

	sink := newEventSink(publisher, jr, tracker, logger)
	defer sink.Close()

	ctrl, err := latch.New(out, src, append(opts, latch.WithEventHandler(sink.Handle))...)
	if err != nil {
		return fmt.Errorf("init output: %w", err)
	}
	tracker.UpdateLatch(ctrl.State())
	tracker.SetMQTTConnected(mqttStatus.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	if err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}); err != nil {
		logger.Warn("failed to publish startup event", "error", err)
	}

	srv := web.New(cfg.HTTP.Addr, web.Deps{
		Controller:   ctrl,
		Tracker:      tracker,
		Logger:       logger,
		AssetDir:     cfg.Web.AssetDir,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			tracker.SetLastError(err.Error())
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = multierr.Append(err, srv.Shutdown(ctx))
	}()

	if cfg.MDNS.Enabled {
		if adv, aerr := startDiscovery(cfg); aerr != nil {
			logger.Warn("mdns unavailable", "error", aerr)
			tracker.SetLastError(aerr.Error())
		} else {
			defer func() { err = multierr.Append(err, adv.Stop()) }()
		}
	}

	logger.Info("started",
		"http", cfg.HTTP.Addr,
		"gpio", cfg.GPIO.Driver,
		"pin", cfg.GPIO.Pin,
		"latch_seconds", ctrl.LatchPeriod(),
		"revert", cfg.Latch.Revert,
		"clamp", cfg.Latch.Clamp,
		"poll", cfg.Latch.PollInterval,
		"heartbeat", cfg.Heartbeat,
	)

	ticker := src.Clock().Ticker(cfg.Latch.PollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, loopDeps{
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		logger:     logger,
		menuOut:    menuOut,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
	}, ticker.C, sigCh, lines)
}

func startDiscovery(cfg *config.Config) (*discovery.Advertiser, error) {
	port, err := discovery.PortFromAddr(cfg.HTTP.Addr)
	if err != nil {
		return nil, err
	}
	adv := discovery.NewAdvertiser(discovery.Config{
		Instance:  cfg.MDNS.Instance,
		Interface: cfg.MDNS.Interface,
		Port:      port,
		Version:   version,
	})
	if err := adv.Start(); err != nil {
		return nil, err
	}
	return adv, nil
}

// loopController is the part of latch.Controller the poll loop drives.
type loopController interface {
	State() latch.Snapshot
	Reconcile() (bool, error)
	Reset() (latch.Snapshot, error)
}

type loopDeps struct {
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // optional
	tracker    *status.Tracker       // optional
	logger     *logging.Logger
	menuOut    io.Writer
	heartbeat  time.Duration // 0 disables
	now        func() time.Time
}

func runLoop(ctrl loopController, d loopDeps, tick <-chan time.Time, sig <-chan os.Signal, lines <-chan string) error {
	lastHeartbeat := d.now()
	reconcileFailing := false

	for {
		select {
		case s := <-sig:
			d.logger.Info("shutting down", "signal", s.String())
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: d.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if d.tracker != nil {
				d.refresh(ctrl.State())
				event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				d.logger.Warn("failed to publish shutdown event", "error", err)
			}
			return nil

		case line, ok := <-lines:
			if !ok {
				// Input ended; keep running without the console.
				lines = nil
				continue
			}
			d.command(ctrl, line)

		case <-tick:
			changed, err := ctrl.Reconcile()
			switch {
			case err != nil && !reconcileFailing:
				// The timer stays armed, so the next tick retries. Logged once
				// per failure run.
				d.logger.Warn("reconcile failed", "error", err)
				reconcileFailing = true
			case err == nil && reconcileFailing:
				d.logger.Info("reconcile recovered")
				reconcileFailing = false
			}
			snap := ctrl.State()
			if changed {
				d.logger.Info("latch expired", "expiry", uint32(snap.Expiry), "millis", uint32(snap.Now), "d1", snap.Level.String())
			}

			t := d.now()
			if d.heartbeat > 0 && t.Sub(lastHeartbeat) >= d.heartbeat {
				lastHeartbeat = t
				hb := mqtt.SystemEvent{Timestamp: t, Event: "HEARTBEAT"}
				if d.tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						d.tracker.SetNetwork(net)
					}
					d.refresh(snap)
					hb.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
				}
				d.logger.Debug("heartbeat", "d1", snap.Level.String(), "armed", snap.Armed)
				if err := d.publisher.PublishSystem(hb); err != nil {
					d.logger.Warn("heartbeat publish error", "error", err)
				}
			}

			d.refresh(snap)
		}
	}
}

func (d loopDeps) refresh(snap latch.Snapshot) {
	if d.tracker == nil {
		return
	}
	d.tracker.UpdateLatch(snap)
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func (d loopDeps) command(ctrl loopController, line string) {
	switch console.Parse(line) {
	case console.CmdNone:
	case console.CmdMenu:
		snap := status.Snapshot{Latch: ctrl.State()}
		if d.tracker != nil {
			d.refresh(snap.Latch)
			snap = d.tracker.Snapshot()
		}
		fmt.Fprint(d.menuOut, status.FormatMenu(snap))
	case console.CmdReset:
		snap, err := ctrl.Reset()
		if err != nil {
			fmt.Fprintf(d.menuOut, "reset failed: %v\n", err)
			return
		}
		d.refresh(snap)
		fmt.Fprintln(d.menuOut, "reset: D1 low, latch cleared")
	default:
		fmt.Fprintln(d.menuOut, console.Hint)
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
