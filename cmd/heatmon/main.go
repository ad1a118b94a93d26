// Command heatmon samples heating zone relay lines and publishes debounced
// demand changes to MQTT.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweeney/heatmon/internal/clock"
	"github.com/sweeney/heatmon/internal/config"
	"github.com/sweeney/heatmon/internal/export"
	"github.com/sweeney/heatmon/internal/gpio"
	"github.com/sweeney/heatmon/internal/logic"
	"github.com/sweeney/heatmon/internal/monitor"
	"github.com/sweeney/heatmon/internal/mqtt"
	"github.com/sweeney/heatmon/internal/schedule"
	"github.com/sweeney/heatmon/internal/status"
	"github.com/sweeney/heatmon/internal/web"
)

// exportInterval bounds how often unchanged state is mirrored to Redis.
const exportInterval = time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heatmon",
		Short: "Monitor heating zone demand and publish changes to MQTT",
		Long: `heatmon samples the relay sense line of each heating zone, debounces it
with a hysteresis counter and publishes demand changes to MQTT. The
recent history and counters are served over HTTP.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := run(cfg, log); err != nil {
				log.WithError(err).Error("fatal")
				return err
			}
			return nil
		},
	}
	config.RegisterFlags(cmd.PersistentFlags())
	cmd.AddCommand(newStateCmd())
	return cmd
}

func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the current logical state of every zone line and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reader, err := gpio.NewRealReader(cfg.GPIOChip, zoneLines(cfg.Zones))
			if err != nil {
				return fmt.Errorf("init gpio: %w", err)
			}
			defer reader.Close()
			return printState(cmd.OutOrStdout(), reader, cfg.Zones)
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, *logrus.Entry, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logrus.NewEntry(logger), nil
}

// printState writes one line per zone with its raw logical line value.
func printState(w io.Writer, reader gpio.Reader, zones []logic.ZoneConfig) error {
	for _, z := range zones {
		active, err := reader.Read(z.Line)
		if err != nil {
			return fmt.Errorf("read zone %d line %d: %w", z.ID, z.Line, err)
		}
		fmt.Fprintf(w, "zone %d (line %d): %s\n", z.ID, z.Line, stateString(active))
	}
	return nil
}

func run(cfg *config.Config, log *logrus.Entry) error {
	reader, err := gpio.NewRealReader(cfg.GPIOChip, zoneLines(cfg.Zones))
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.Broker,
		ClientID:   cfg.ClientID,
		Topics:     mqtt.NewTopics(cfg.TopicPrefix),
		BufferSize: cfg.MQTTBuffer,
		Logger:     log.WithField("component", "mqtt"),
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:          cfg.Poll.Milliseconds(),
		HeartbeatMs:     cfg.Heartbeat.Milliseconds(),
		SyncMs:          cfg.Sync.Milliseconds(),
		Broker:          cfg.Broker,
		TopicPrefix:     cfg.TopicPrefix,
		HTTPAddr:        cfg.HTTPAddr,
		HistoryCapacity: cfg.HistoryCapacity,
		BufferSize:      cfg.BufferSize,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	var exporter monitor.Exporter
	if cfg.RedisAddr != "" {
		rx, err := export.NewRedisExporter(export.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
			TTL:      cfg.RedisTTL,
			Logger:   log,
		})
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rx.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis not reachable yet, exports will retry")
		}
		cancel()
		async := export.NewAsync(rx, log)
		defer async.Close()
		exporter = async
	}

	mon, err := monitor.New(monitor.Options{
		Zones:           cfg.Zones,
		Hysteresis:      cfg.Hysteresis,
		HistoryCapacity: cfg.HistoryCapacity,
		BufferSize:      cfg.BufferSize,
		Reader:          reader,
		Publisher:       publisher,
		Tracker:         tracker,
		Conn:            publisher,
		Exporter:        exporter,
		ExportInterval:  exportInterval,
		Clock:           clock.Kernel{},
		Logger:          log,
	})
	if err != nil {
		return err
	}

	publishStartup(publisher, publisher, tracker, log)

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, log)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.WithField("addr", cfg.HTTPAddr).Info("http status server listening")
	}

	log.WithFields(logrus.Fields{
		"poll":      cfg.Poll,
		"heartbeat": cfg.Heartbeat,
		"sync":      cfg.Sync,
		"broker":    cfg.Broker,
		"zones":     config.FormatZones(cfg.Zones),
	}).Info("started")

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopConfig{
		Monitor:    mon,
		Publisher:  publisher,
		MQTTStatus: publisher,
		Tracker:    tracker,
		Poll:       cfg.Poll,
		Heartbeat:  cfg.Heartbeat,
		Sync:       cfg.Sync,
		Logger:     log,
	}, time.Now, ticker.C, sigCh)
}

// publishStartup sends the retained STARTUP event with a full status snapshot.
func publishStartup(publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, log *logrus.Entry) {
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.WithError(err).Warn("failed to publish startup event")
	} else {
		log.Info("published startup event")
	}
}

// Task names.
const (
	taskPoll      = "poll"
	taskHeartbeat = "heartbeat"
	taskSync      = "sync"
)

type loopConfig struct {
	Monitor    *monitor.Monitor
	Publisher  mqtt.Publisher
	MQTTStatus mqtt.ConnectionStatus
	Tracker    *status.Tracker
	Poll       time.Duration
	Heartbeat  time.Duration
	Sync       time.Duration
	Logger     *logrus.Entry
}

// runLoop runs the scheduler on every tick until a signal arrives. Each
// task runs when its interval has elapsed, so tick may fire faster than the
// poll interval without changing the sampling rate.
func runLoop(lc loopConfig, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	log := lc.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched, err := schedule.New(now(),
		schedule.Task{Name: taskPoll, Interval: lc.Poll, Run: func(t time.Time) {
			lc.Monitor.Tick(ctx, t)
		}},
		schedule.Task{Name: taskHeartbeat, Interval: lc.Heartbeat, Run: func(t time.Time) {
			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil && lc.Tracker != nil {
				lc.Tracker.SetNetwork(net)
			}
			lc.Monitor.Heartbeat(ctx, t)
		}},
		schedule.Task{Name: taskSync, Interval: lc.Sync, Run: func(t time.Time) {
			lc.Monitor.SyncClock(ctx, t)
		}},
	)
	if err != nil {
		return err
	}

	for {
		select {
		case s := <-sig:
			log.WithField("signal", s).Info("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if lc.Tracker != nil {
				if lc.MQTTStatus != nil {
					lc.Tracker.SetMQTTConnected(lc.MQTTStatus.IsConnected())
				}
				snap := lc.Tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := lc.Publisher.PublishSystem(event); err != nil {
				log.WithError(err).Warn("failed to publish shutdown event")
			} else {
				log.Info("published shutdown event")
			}
			return nil

		case <-tick:
			sched.RunDue(now())
		}
	}
}

func zoneLines(zones []logic.ZoneConfig) []int {
	lines := make([]int, len(zones))
	for i, z := range zones {
		lines[i] = z.Line
	}
	return lines
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

func stateString(active bool) string {
	if active {
		return "ACTIVE"
	}
	return "INACTIVE"
}
