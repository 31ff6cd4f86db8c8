package command

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/adamavenir/socialdash/internal/notify"
	"github.com/adamavenir/socialdash/internal/types"
)

var (
	noColor = os.Getenv("NO_COLOR") != ""

	dim    = ansiCode("\x1b[2m")
	bold   = ansiCode("\x1b[1m")
	gray   = ansiCode("\x1b[38;5;240m")
	yellow = ansiCode("\x1b[38;5;220m")
	reset  = ansiCode("\x1b[0m")
)

func ansiCode(code string) string {
	if noColor {
		return ""
	}
	return code
}

// FormatNotification renders one record as a list line, with the excerpt
// on a second line when present.
func FormatNotification(rec types.Notification) string {
	marker := " "
	text := notify.Message(rec)
	if !rec.IsRead {
		marker = "•"
		text = bold + text + reset
	}
	if rec.From.Premium() {
		text += " " + yellow + "★" + reset
	}
	line := fmt.Sprintf("%s %s[%s]%s %s", marker, dim, rec.ID, reset, text)
	if ago := notify.Ago(rec.CreatedAt); ago != "" {
		line += fmt.Sprintf(" %s· %s%s", gray, ago, reset)
	}
	if excerpt := notify.Excerpt(rec); excerpt != "" {
		line += "\n    " + dim + notify.Truncate(excerpt, 80) + reset
	}
	return line
}

func writeNotifications(out io.Writer, records []types.Notification) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No notifications")
		return
	}
	for _, rec := range records {
		fmt.Fprintln(out, FormatNotification(rec))
	}
}

func writeJSON(out io.Writer, value any) error {
	return json.NewEncoder(out).Encode(value)
}

// formatEvent renders a non-notification live event for watch output.
func formatEvent(ev types.Event) string {
	switch ev.Kind {
	case types.EventConnected:
		return gray + "--- live ---" + reset
	case types.EventDisconnected:
		reason := ev.Reason
		if ev.Persistent {
			reason += ", giving up"
		}
		return gray + "--- disconnected: " + reason + " ---" + reset
	case types.EventOther:
		return gray + "event " + ev.MessageKind + " " + strings.TrimSpace(string(ev.Data)) + reset
	}
	return ""
}
