package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/cover-control/internal/status"
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
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Cover Control</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.open { color: green; font-weight: bold; }
.close { color: #888; }
.opening, .closing { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Cover Control</h1>

<h2>Cover</h2>
<table>
<tr><th>State</th><td id="state" class="{{.Payload}}">{{.State}}</td></tr>
<tr><th>Completion timer</th><td>{{if .TimerArmed}}armed{{else}}idle{{end}}</td></tr>
{{if .Last}}<tr><th>Last event</th><td>{{.Last.Topic}} = {{.Last.Payload}}</td></tr>
<tr><th>At</th><td>{{.Last.At.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Config.ClientID}}<tr><th>Client ID</th><td>{{.Config.ClientID}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Dispatched</th><td>{{.Counts.Dispatched}}</td></tr>
<tr><th>Transitions</th><td>{{.Counts.Transitions}}</td></tr>
<tr><th>Stale timers</th><td>{{.Counts.Stale}}</td></tr>
<tr><th>Echoes</th><td>{{.Counts.Echoes}}</td></tr>
<tr><th>Overflows</th><td>{{.Counts.Overflows}}</td></tr>
<tr><th>Publish errors</th><td>{{.Counts.PublishErrors}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Transit time</th><td>{{.Config.TransitTimeMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		Payload string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Payload:  snap.State.Payload(),
	}
	return indexTmpl.Execute(w, data)
}
