package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/heatmon/internal/clock"
	"github.com/sweeney/heatmon/internal/gpio"
	"github.com/sweeney/heatmon/internal/logic"
	"github.com/sweeney/heatmon/internal/monitor"
	"github.com/sweeney/heatmon/internal/mqtt"
	"github.com/sweeney/heatmon/internal/status"
	"github.com/sweeney/heatmon/internal/wire"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants — not the other way around.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	info := readNetworkInfo()
	if info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo when NETWORK_STATUS is set")
	}
	if info.Status != "connected" {
		t.Errorf("Status: got %q, want %q", info.Status, "connected")
	}
	if info.IP != "" || info.SSID != "" {
		t.Errorf("expected unset fields empty, got %+v", info)
	}
}

// --- runLoop tests ---

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

var testZones = []logic.ZoneConfig{
	{ID: 0, Line: 5},
	{ID: 1, Line: 6},
}

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fixture struct {
	reader  *gpio.FakeReader
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	lc      loopConfig
}

// newFixture wires a monitor over fakes with a 10ms poll, 1s heartbeat and
// 12h clock sync.
func newFixture(t *testing.T, samples map[int][]bool, syncer clock.Syncer) *fixture {
	t.Helper()
	f := &fixture{
		reader:  gpio.NewFakeReader(samples),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(t0, status.Config{}),
	}
	mon, err := monitor.New(monitor.Options{
		Zones:           testZones,
		Hysteresis:      logic.DefaultHysteresis(),
		HistoryCapacity: logic.DefaultLogCapacity,
		BufferSize:      wire.DefaultBufferSize,
		Reader:          f.reader,
		Publisher:       f.pub,
		Tracker:         f.tracker,
		Conn:            f.pub,
		Clock:           syncer,
		Logger:          quietLogger(),
	})
	if err != nil {
		t.Fatalf("monitor.New: %v", err)
	}
	f.lc = loopConfig{
		Monitor:    mon,
		Publisher:  f.pub,
		MQTTStatus: f.pub,
		Tracker:    f.tracker,
		Poll:       10 * time.Millisecond,
		Heartbeat:  time.Second,
		Sync:       12 * time.Hour,
		Logger:     quietLogger(),
	}
	return f
}

// run drives runLoop with nTicks ticks on a 10ms clock, then signal.
func (f *fixture) run(t *testing.T, nTicks int, signal os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	clk := fakeClock(t0, 10*time.Millisecond)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(f.lc, clk, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	return <-errCh
}

func lines(v5, v6 bool) map[int][]bool {
	return map[int][]bool{5: {v5}, 6: {v6}}
}

func TestRunLoopNoEventsBeforeSettled(t *testing.T) {
	f := newFixture(t, lines(false, false), nil)

	if err := f.run(t, 150, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(f.pub.Events) != 0 {
		t.Errorf("expected 0 zone events, got %d", len(f.pub.Events))
	}
	if len(f.pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(f.pub.SystemEvents))
	}
	if f.pub.SystemEvents[0].Event != "SHUTDOWN" {
		t.Errorf("expected SHUTDOWN event, got %q", f.pub.SystemEvents[0].Event)
	}
}

func TestRunLoopSettlesZones(t *testing.T) {
	f := newFixture(t, lines(true, false), nil)

	if err := f.run(t, 151, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(f.pub.Events) != 2 {
		t.Fatalf("expected 2 zone events, got %d", len(f.pub.Events))
	}
	if ev := f.pub.Events[0]; ev.ZoneID != 0 || !ev.On {
		t.Errorf("first event: got %+v, want zone 0 ON", ev)
	}
	if ev := f.pub.Events[1]; ev.ZoneID != 1 || ev.On {
		t.Errorf("second event: got %+v, want zone 1 OFF", ev)
	}
	if string(f.pub.Payloads[0]) != `{"id":0,"t":1767225600,"on":1}` {
		t.Errorf("payload: got %s", f.pub.Payloads[0])
	}

	snap := f.tracker.Snapshot()
	if !snap.Ready() {
		t.Error("expected all zones settled")
	}
	if snap.Polls != 151 {
		t.Errorf("polls: got %d, want 151", snap.Polls)
	}
}

func TestRunLoopFlickerRejected(t *testing.T) {
	// Zone 0 sees a short burst of activity against a long inactive run.
	samples := lines(false, false)
	samples[5] = append(gpio.Repeat(true, 20), gpio.Repeat(false, 200)...)
	f := newFixture(t, samples, nil)

	if err := f.run(t, 220, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	for _, ev := range f.pub.Events {
		if ev.On {
			t.Errorf("unexpected ON event %+v", ev)
		}
	}
}

func TestRunLoopPollInterval(t *testing.T) {
	f := newFixture(t, lines(false, false), nil)
	f.lc.Poll = 20 * time.Millisecond

	if err := f.run(t, 100, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if got := f.tracker.Snapshot().Polls; got != 50 {
		t.Errorf("polls: got %d, want 50", got)
	}
}

func TestRunLoopGPIOReadError(t *testing.T) {
	f := newFixture(t, lines(false, false), nil)
	f.reader.ReadErrors[5] = errors.New("gpio fault")

	if err := f.run(t, 160, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	// A failing line counts as inactive, so zone 0 still settles OFF.
	if len(f.pub.Events) != 2 {
		t.Fatalf("expected 2 zone events, got %d", len(f.pub.Events))
	}
	found := false
	for _, se := range f.pub.SystemEvents {
		if se.Event == "SHUTDOWN" {
			found = true
		}
	}
	if !found {
		t.Error("expected SHUTDOWN system event after GPIO errors")
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	f := newFixture(t, lines(false, false), nil)

	// 250 ticks at 10ms: heartbeats fall due at 1s and 2s.
	if err := f.run(t, 250, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(f.pub.Heartbeats) != 2 {
		t.Fatalf("expected 2 heartbeats, got %d", len(f.pub.Heartbeats))
	}
	if f.pub.Heartbeats[0] != 0 || f.pub.Heartbeats[1] != 1 {
		t.Errorf("heartbeats: got %v, want [0 1]", f.pub.Heartbeats)
	}
	if got := f.tracker.Snapshot().Heartbeats; got != 2 {
		t.Errorf("tracker heartbeats: got %d, want 2", got)
	}
}

func TestRunLoopHeartbeatRefreshesNetworkInfo(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.42")
	t.Setenv(envNetworkWifiSSID, "HomeNet")

	f := newFixture(t, lines(false, false), nil)
	if err := f.run(t, 100, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	net := f.tracker.Snapshot().Network
	if net == nil {
		t.Fatal("expected network info after heartbeat")
	}
	if net.IP != "192.168.1.42" || net.SSID != "HomeNet" {
		t.Errorf("network: got %+v", net)
	}

	// The SHUTDOWN snapshot carries it through.
	if len(f.pub.SystemPayloads) != 1 {
		t.Fatalf("expected 1 system payload, got %d", len(f.pub.SystemPayloads))
	}
	if !strings.Contains(string(f.pub.SystemPayloads[0]), `"ip":"192.168.1.42"`) {
		t.Errorf("shutdown payload missing network: %s", f.pub.SystemPayloads[0])
	}
}

func TestRunLoopClockSync(t *testing.T) {
	var calls int
	syncer := clock.SyncerFunc(func(ctx context.Context) error {
		calls++
		return nil
	})
	f := newFixture(t, lines(false, false), syncer)
	f.lc.Sync = 500 * time.Millisecond

	if err := f.run(t, 250, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if calls != 5 {
		t.Errorf("sync calls: got %d, want 5", calls)
	}
	if want := t0.Add(2500 * time.Millisecond); !f.tracker.Snapshot().LastSync.Equal(want) {
		t.Errorf("last sync: got %v, want %v", f.tracker.Snapshot().LastSync, want)
	}
}

func TestRunLoopJitteredTicksKeepPollRate(t *testing.T) {
	f := newFixture(t, lines(false, false), nil)

	// Loop start at t0, then one reading per tick: every 10ms, with every
	// other tick delivered 0.3ms late.
	n := 0
	clk := func() time.Time {
		at := t0.Add(time.Duration(n) * 10 * time.Millisecond)
		if n%2 == 1 {
			at = at.Add(300 * time.Microsecond)
		}
		n++
		return at
	}

	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(f.lc, clk, tick, sig)
	}()
	for i := 0; i < 1000; i++ {
		tick <- time.Time{}
	}
	sig <- syscall.SIGTERM
	if err := <-errCh; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if got := f.tracker.Snapshot().Polls; got != 1000 {
		t.Errorf("polls: got %d, want 1000", got)
	}
}

func TestRunLoopPublishError(t *testing.T) {
	f := newFixture(t, lines(true, false), nil)
	f.pub.PublishError = errors.New("broker unavailable")

	if err := f.run(t, 160, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(f.pub.Events) != 0 {
		t.Errorf("expected 0 recorded events (publish failed), got %d", len(f.pub.Events))
	}
	if f.tracker.Snapshot().EventCount != 2 {
		t.Errorf("expected history to hold 2 events despite publish errors")
	}

	found := false
	for _, se := range f.pub.SystemEvents {
		if se.Event == "SHUTDOWN" {
			found = true
		}
	}
	if !found {
		t.Error("expected SHUTDOWN system event despite publish errors")
	}
}

func TestRunLoopInvalidInterval(t *testing.T) {
	f := newFixture(t, lines(false, false), nil)
	f.lc.Heartbeat = 0

	tick := make(chan time.Time)
	sig := make(chan os.Signal)
	if err := runLoop(f.lc, time.Now, tick, sig); err == nil {
		t.Error("expected error for zero heartbeat interval")
	}
}

func TestRunLoopShutdownSignals(t *testing.T) {
	tests := []struct {
		signal os.Signal
		reason string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			f := newFixture(t, lines(false, false), nil)
			f.pub.Connected = true

			if err := f.run(t, 4, tt.signal); err != nil {
				t.Fatalf("runLoop returned error: %v", err)
			}

			if len(f.pub.SystemEvents) != 1 {
				t.Fatalf("expected 1 system event, got %d", len(f.pub.SystemEvents))
			}
			se := f.pub.SystemEvents[0]
			if se.Event != "SHUTDOWN" {
				t.Errorf("expected SHUTDOWN, got %q", se.Event)
			}
			if se.Reason != tt.reason {
				t.Errorf("expected reason %s, got %q", tt.reason, se.Reason)
			}
			if !se.Retained {
				t.Error("expected Retained=true for SHUTDOWN")
			}
			payload := string(f.pub.SystemPayloads[0])
			if !strings.Contains(payload, `"event":"SHUTDOWN"`) || !strings.Contains(payload, `"connected":true`) {
				t.Errorf("payload: %s", payload)
			}
		})
	}
}

func TestPublishStartup(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	tracker := status.NewTracker(t0, status.Config{Broker: "tcp://broker:1883"})

	publishStartup(pub, pub, tracker, quietLogger())

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	se := pub.SystemEvents[0]
	if se.Event != "STARTUP" || !se.Retained {
		t.Errorf("got %+v, want retained STARTUP", se)
	}
	if !strings.Contains(string(pub.SystemPayloads[0]), `"event":"STARTUP"`) {
		t.Errorf("payload: %s", pub.SystemPayloads[0])
	}
	if !tracker.Snapshot().MQTTConnected {
		t.Error("expected tracker to record MQTT connection")
	}
}

func TestPublishStartupError(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.PublishSystemError = errors.New("offline")
	tracker := status.NewTracker(t0, status.Config{})

	publishStartup(pub, nil, tracker, quietLogger())

	if len(pub.SystemEvents) != 0 {
		t.Errorf("expected no recorded events, got %d", len(pub.SystemEvents))
	}
}

func TestPrintState(t *testing.T) {
	reader := gpio.NewFakeReader(lines(true, false))
	var buf bytes.Buffer

	if err := printState(&buf, reader, testZones); err != nil {
		t.Fatalf("printState: %v", err)
	}

	want := "zone 0 (line 5): ACTIVE\nzone 1 (line 6): INACTIVE\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestPrintStateReadError(t *testing.T) {
	reader := gpio.NewFakeReader(lines(true, false))
	reader.ReadErrors[6] = errors.New("busy")

	if err := printState(io.Discard, reader, testZones); err == nil {
		t.Error("expected error")
	}
}

func TestZoneLines(t *testing.T) {
	got := zoneLines([]logic.ZoneConfig{{ID: 2, Line: 13}, {ID: 0, Line: 5}})
	if len(got) != 2 || got[0] != 13 || got[1] != 5 {
		t.Errorf("got %v, want [13 5]", got)
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"config", "broker", "zone", "poll", "heartbeat", "sync", "buffer-size", "redis-addr", "log-level"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("missing flag --%s", name)
		}
	}

	found := false
	for _, sub := range cmd.Commands() {
		if sub.Name() == "state" {
			found = true
		}
	}
	if !found {
		t.Error("missing state subcommand")
	}
}

func TestRootCommandRejectsInvalidConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--buffer-size", "2"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for undersized buffer")
	}
}
