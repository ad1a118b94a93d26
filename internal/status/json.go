package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Ready         bool            `json:"ready"`
	Zones         []ZoneJSON      `json:"zones"`
	Events        json.RawMessage `json:"zone_events"`
	EventCount    int             `json:"event_count"`
	Polls         int32           `json:"polls"`
	LastPoll      int64           `json:"last_poll"`
	LastEvent     int64           `json:"last_event"`
	LastSync      string          `json:"last_sync,omitempty"`
	Heartbeats    uint64          `json:"heartbeats"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Network       *NetworkJSON    `json:"network,omitempty"`
	Config        ConfigJSON      `json:"config"`
}

// ZoneJSON is the JSON representation of a zone.
type ZoneJSON struct {
	ID      int    `json:"id"`
	Line    int    `json:"line"`
	Demand  string `json:"demand"`
	Counter int    `json:"count"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs          int64  `json:"poll_ms"`
	HeartbeatMs     int64  `json:"heartbeat_ms"`
	SyncMs          int64  `json:"sync_ms"`
	Broker          string `json:"broker"`
	TopicPrefix     string `json:"topic_prefix"`
	HTTPAddr        string `json:"http_addr"`
	HistoryCapacity int    `json:"history_capacity"`
	BufferSize      int    `json:"buffer_size"`
}

func buildInner(snap Snapshot) StatusInner {
	zones := make([]ZoneJSON, len(snap.Zones))
	for i, z := range snap.Zones {
		zones[i] = ZoneJSON{ID: z.ID, Line: z.Line, Demand: z.Demand.String(), Counter: z.Counter}
	}

	events := snap.Events
	if events == "" {
		events = "[]"
	}

	inner := StatusInner{
		Ready:         snap.Ready(),
		Zones:         zones,
		Events:        json.RawMessage(events),
		EventCount:    snap.EventCount,
		Polls:         int32(snap.Polls),
		LastPoll:      unixOrZero(snap.LastPoll),
		LastEvent:     unixOrZero(snap.LastEvent),
		Heartbeats:    snap.Heartbeats,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			PollMs:          snap.Config.PollMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			SyncMs:          snap.Config.SyncMs,
			Broker:          snap.Config.Broker,
			TopicPrefix:     snap.Config.TopicPrefix,
			HTTPAddr:        snap.Config.HTTPAddr,
			HistoryCapacity: snap.Config.HistoryCapacity,
			BufferSize:      snap.Config.BufferSize,
		},
	}
	if !snap.LastSync.IsZero() {
		inner.LastSync = snap.LastSync.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
