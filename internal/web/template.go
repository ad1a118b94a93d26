package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/heatmon/internal/logic"
	"github.com/sweeney/heatmon/internal/status"
	"github.com/sweeney/heatmon/internal/wire"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"demandClass": func(d logic.Demand) string {
		switch d {
		case logic.DemandOn:
			return "on"
		case logic.DemandOff:
			return "off"
		default:
			return "unknown"
		}
	},
	"unix": func(t int64) string {
		return time.Unix(t, 0).UTC().Format("2006-01-02 15:04:05")
	},
	"since": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02 15:04:05")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Heatmon</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Heatmon</h1>

<h2>Zones</h2>
<table>
<tr><th>Zone</th><th>Line</th><th>Demand</th><th>Count</th></tr>
{{range .Zones}}<tr><td>{{.ID}}</td><td>{{.Line}}</td><td class="{{demandClass .Demand}}">{{.Demand}}</td><td>{{.Counter}}</td></tr>
{{end}}</table>
<p>Ready: {{if .Ready}}yes{{else}}no{{end}}</p>

<h2>Recent Events</h2>
{{if .Events}}<table>
<tr><th>Time (UTC)</th><th>Zone</th><th>Demand</th></tr>
{{range .Events}}<tr><td>{{unix .Time}}</td><td>{{.ZoneID}}</td><td class="{{demandClass .Demand}}">{{.Demand}}</td></tr>
{{end}}</table>
<p>{{.Encoded}} of {{.EventCount}} events fit the {{.Config.BufferSize}}-byte history.</p>
{{else}}<p>No events yet.</p>{{end}}

<h2>Polling</h2>
<table>
<tr><th>Polls</th><td>{{.Polls}}</td></tr>
<tr><th>Last poll</th><td>{{since .LastPoll}}</td></tr>
<tr><th>Last event</th><td>{{since .LastEvent}}</td></tr>
<tr><th>Last clock sync</th><td>{{since .LastSync}}</td></tr>
<tr><th>Heartbeats</th><td>{{.Heartbeats}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topics</th><td>{{.Config.TopicPrefix}}/…</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} — {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{.Config.HeartbeatMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/v1/variables">Variables</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// The template ranges over decoded events rather than the raw string.
	events, err := wire.Decode([]byte(snap.Events))
	if err != nil {
		events = nil
	}
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Ready  bool
		Events []logic.ZoneEvent
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Ready:    snap.Ready(),
		Events:   events,
	}
	return indexTmpl.Execute(w, data)
}
