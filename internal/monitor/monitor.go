// Package monitor owns the zone demand state and drives it from the
// scheduler: sampling, history, publishing and the exposed snapshot.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/heatmon/internal/clock"
	"github.com/sweeney/heatmon/internal/gpio"
	"github.com/sweeney/heatmon/internal/logic"
	"github.com/sweeney/heatmon/internal/mqtt"
	"github.com/sweeney/heatmon/internal/status"
	"github.com/sweeney/heatmon/internal/wire"
)

// Exporter receives the exposed snapshot. export.Exporter satisfies it.
type Exporter interface {
	Export(ctx context.Context, snap status.Snapshot) error
}

// Options configures a Monitor. Reader, Publisher and Tracker are required.
type Options struct {
	Zones           []logic.ZoneConfig
	Hysteresis      logic.Hysteresis
	HistoryCapacity int
	BufferSize      int

	Reader    gpio.Reader
	Publisher mqtt.Publisher
	Tracker   *status.Tracker

	// Conn, if set, is polled for MQTT connectivity on every tick.
	Conn mqtt.ConnectionStatus
	// Exporter, if set, receives the snapshot after transitions and
	// heartbeats, and otherwise at most once per ExportInterval.
	Exporter       Exporter
	ExportInterval time.Duration
	// Clock, if set, is run by SyncClock.
	Clock clock.Syncer

	Logger *logrus.Entry
}

// Monitor is the single owner of all zone demand state.
// Not safe for concurrent use; the scheduler calls it from one goroutine.
// Readers use the status.Tracker it publishes to.
type Monitor struct {
	registry *logic.Registry
	events   *logic.EventLog
	history  *wire.History

	polls      logic.Counter
	heartbeats uint64
	lastPoll   time.Time
	lastEvent  time.Time
	lastSync   time.Time
	lastExport time.Time

	// failing holds the lines whose last read failed.
	failing map[int]bool

	reader         gpio.Reader
	publisher      mqtt.Publisher
	tracker        *status.Tracker
	conn           mqtt.ConnectionStatus
	exporter       Exporter
	exportInterval time.Duration
	clock          clock.Syncer
	log            *logrus.Entry
}

// New creates a Monitor and publishes its initial state to the tracker.
func New(opts Options) (*Monitor, error) {
	if opts.Reader == nil || opts.Publisher == nil || opts.Tracker == nil {
		return nil, errors.New("monitor: reader, publisher and tracker are required")
	}
	if opts.BufferSize < 3 {
		return nil, fmt.Errorf("monitor: %w (%d bytes)", wire.ErrBufferTooSmall, opts.BufferSize)
	}
	registry, err := logic.NewRegistry(opts.Zones, opts.Hysteresis)
	if err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	m := &Monitor{
		registry:       registry,
		events:         logic.NewEventLog(opts.HistoryCapacity),
		history:        wire.NewHistory(opts.BufferSize),
		failing:        make(map[int]bool),
		reader:         opts.Reader,
		publisher:      opts.Publisher,
		tracker:        opts.Tracker,
		conn:           opts.Conn,
		exporter:       opts.Exporter,
		exportInterval: opts.ExportInterval,
		clock:          opts.Clock,
		log:            log.WithField("component", "monitor"),
	}
	m.tracker.Update(m.State())
	return m, nil
}

// Tick samples every zone once and applies any transitions. It returns the
// transitions, in zone order.
func (m *Monitor) Tick(ctx context.Context, now time.Time) []logic.ZoneEvent {
	events := m.registry.Tick(m.sample, now)

	if len(events) > 0 {
		for _, ev := range events {
			m.events.Record(ev)
		}
		res, err := m.history.Update(m.events.All())
		if err != nil {
			m.log.WithError(err).Error("history encode failed")
		} else if res.Truncated {
			m.log.WithFields(logrus.Fields{
				"held":    m.events.Len(),
				"encoded": res.Events,
			}).Debug("history truncated to fit buffer")
		}
		m.lastEvent = now
	}

	m.polls = m.polls.Inc()
	m.lastPoll = now
	m.publishState()

	for _, ev := range events {
		m.log.WithFields(logrus.Fields{
			"zone":   ev.ZoneID,
			"demand": ev.Demand(),
		}).Info("zone demand changed")
		if err := m.publisher.PublishEvent(ev); err != nil {
			m.log.WithError(err).WithField("zone", ev.ZoneID).Warn("publish failed")
		}
	}

	if len(events) > 0 || m.exportDue(now) {
		m.export(ctx, now)
	}
	return events
}

// sample reads a zone's line. A failed read counts as inactive; the failure
// is logged once until the line reads cleanly again.
func (m *Monitor) sample(z logic.ZoneState) bool {
	active, err := m.reader.Read(z.Line)
	if err != nil {
		if !m.failing[z.Line] {
			m.failing[z.Line] = true
			m.log.WithError(err).WithFields(logrus.Fields{
				"zone": z.ID,
				"line": z.Line,
			}).Warn("line read failed, treating as inactive")
		}
		return false
	}
	if m.failing[z.Line] {
		delete(m.failing, z.Line)
		m.log.WithFields(logrus.Fields{
			"zone": z.ID,
			"line": z.Line,
		}).Info("line read recovered")
	}
	return active
}

// Heartbeat publishes the heartbeat counter, starting at 0.
func (m *Monitor) Heartbeat(ctx context.Context, now time.Time) {
	n := m.heartbeats
	m.heartbeats++
	if err := m.publisher.PublishHeartbeat(n); err != nil {
		m.log.WithError(err).Warn("heartbeat publish failed")
	} else {
		m.log.WithField("n", n).Debug("heartbeat")
	}
	m.publishState()
	m.export(ctx, now)
}

// SyncClock runs the clock check and records when it last succeeded.
func (m *Monitor) SyncClock(ctx context.Context, now time.Time) {
	if m.clock == nil {
		return
	}
	if err := m.clock.Sync(ctx); err != nil {
		m.log.WithError(err).Warn("clock sync failed")
		return
	}
	m.lastSync = now
	m.log.Debug("clock in sync")
	m.publishState()
}

// State returns the current exposed state. Zones is a fresh copy.
func (m *Monitor) State() status.State {
	res := m.history.Last()
	return status.State{
		Zones:      m.registry.Zones(),
		Events:     m.history.String(),
		EventCount: m.events.Len(),
		Encoded:    res.Events,
		Polls:      m.polls,
		LastPoll:   m.lastPoll,
		LastEvent:  m.lastEvent,
		LastSync:   m.lastSync,
		Heartbeats: m.heartbeats,
	}
}

// Events returns the event log, most recent first.
func (m *Monitor) Events() []logic.ZoneEvent {
	return m.events.Snapshot()
}

func (m *Monitor) publishState() {
	if m.conn == nil {
		m.tracker.Update(m.State())
		return
	}
	m.tracker.UpdateWithMQTT(m.State(), m.conn.IsConnected())
}

func (m *Monitor) exportDue(now time.Time) bool {
	return m.exporter != nil && now.Sub(m.lastExport) >= m.exportInterval
}

func (m *Monitor) export(ctx context.Context, now time.Time) {
	if m.exporter == nil {
		return
	}
	m.lastExport = now
	if err := m.exporter.Export(ctx, m.tracker.Snapshot()); err != nil {
		m.log.WithError(err).Warn("export failed")
	}
}
