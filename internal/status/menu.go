package status

import (
	"fmt"
	"strings"
	"time"
)

// FormatMenu renders the plain-text diagnostic menu shown on the console and
// at /menu.
func FormatMenu(snap Snapshot) string {
	var b strings.Builder
	l := snap.Latch

	b.WriteString("\n=== Relay Latch Menu ===\n")
	if n := snap.Network; n != nil {
		fmt.Fprintf(&b, "SSID: %s\n", orDash(n.SSID))
		fmt.Fprintf(&b, "WiFi status: %s\n", orDash(n.WifiStatus))
		fmt.Fprintf(&b, "IP: %s\n", orDash(n.IP))
	}
	fmt.Fprintf(&b, "Hostname: %s\n", orDash(snap.Config.Hostname))
	fmt.Fprintf(&b, "HTTP: %s\n", snap.Config.HTTPAddr)
	mqtt := "disconnected"
	if snap.MQTTConnected {
		mqtt = "connected"
	}
	fmt.Fprintf(&b, "MQTT: %s\n", mqtt)
	fmt.Fprintf(&b, "Uptime: %s\n", snap.Uptime().Truncate(time.Second))

	fmt.Fprintf(&b, "D1: %s\n", l.Level)
	fmt.Fprintf(&b, "Latch period: %ds (%s, %s)\n", l.PeriodSeconds, l.RevertPolicy, l.ClampPolicy)
	if l.LatchActive {
		fmt.Fprintf(&b, "Latch: active, %dms remaining (expiry %d)\n", l.Remaining().Milliseconds(), l.ExpiryMillis())
	} else if l.Armed {
		b.WriteString("Latch: expired, waiting for clear\n")
	} else {
		b.WriteString("Latch: idle\n")
	}
	if l.TestMode {
		b.WriteString("Test mode: on\n")
	}

	if snap.LastError != "" {
		fmt.Fprintf(&b, "Last error: %s\n", snap.LastError)
	}
	b.WriteString("Commands: m or ? to show this menu, reset to force D1 low\n")
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
