package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ringlog/internal/ipc"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

var (
	countPrinter = message.NewPrinter(language.English)
	titleCaser   = cases.Title(language.English)
)

func renderStatus(resp *ipc.StatusResponse, colorize bool) []string {
	var lines []string
	section := func(title string, body ...string) {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, renderSectionHeader(title, colorize)...)
		lines = append(lines, body...)
	}

	section("Daemon", daemonLines(resp, colorize)...)
	section("Sink", sinkLines(resp, colorize)...)
	if resp.Running {
		section("Line Server", serverLines(resp, colorize)...)
	}
	section("Archive", archiveLines(resp, colorize)...)
	return lines
}

func daemonLines(resp *ipc.StatusResponse, colorize bool) []string {
	if !resp.Running {
		return []string{renderStatusLine("Ringlog", statusWarn, "Not running (run `ringlog start`)", colorize)}
	}
	detail := fmt.Sprintf("Running (pid %d)", resp.PID)
	if !resp.StartedAt.IsZero() {
		detail = fmt.Sprintf("%s, up %s", detail, humanize.RelTime(resp.StartedAt, time.Now(), "", ""))
	}
	lines := []string{renderStatusLine("Ringlog", statusOK, strings.TrimSpace(detail), colorize)}
	if resp.Listen != "" {
		lines = append(lines, renderStatusLine("Listening", statusInfo, resp.Listen, colorize))
	}
	if resp.LogPath != "" {
		lines = append(lines, renderStatusLine("Log", statusInfo, resp.LogPath, colorize))
	}
	if resp.TimestampEvery != "" {
		lines = append(lines, renderStatusLine("Timestamps", statusInfo, "every "+resp.TimestampEvery, colorize))
	}
	return lines
}

func sinkLines(resp *ipc.StatusResponse, colorize bool) []string {
	kind := titleCaser.String(resp.SinkKind)
	if resp.SinkPath != "" {
		kind = fmt.Sprintf("%s (%s)", kind, resp.SinkPath)
	}
	lines := []string{renderStatusLine("Kind", statusInfo, kind, colorize)}
	if resp.DeviceAvailable != nil {
		if *resp.DeviceAvailable {
			lines = append(lines, renderStatusLine("Device", statusOK, "Present", colorize))
		} else {
			lines = append(lines, renderStatusLine("Device", statusError, "Missing (load the driver or check sink.device_path)", colorize))
		}
	}
	if !resp.Running {
		return append(lines, renderStatusLine("Capacity", statusInfo, fmt.Sprintf("%d records", resp.Capacity), colorize))
	}
	usage := fmt.Sprintf("%d of %d records, %s", resp.Records, resp.Capacity, humanize.IBytes(uint64(resp.TotalBytes)))
	kindForUsage := statusOK
	if resp.Capacity > 0 && resp.Records >= resp.Capacity {
		usage += " (full, oldest evicted on write)"
		kindForUsage = statusInfo
	}
	return append(lines, renderStatusLine("Stored", kindForUsage, usage, colorize))
}

func serverLines(resp *ipc.StatusResponse, colorize bool) []string {
	stats := resp.Server
	failedKind := statusOK
	if stats.Failed > 0 {
		failedKind = statusWarn
	}
	return []string{
		renderStatusLine("Accepted", statusInfo, countPrinter.Sprintf("%d", stats.Accepted), colorize),
		renderStatusLine("Committed", statusOK, countPrinter.Sprintf("%d", stats.Committed), colorize),
		renderStatusLine("Failed", failedKind, countPrinter.Sprintf("%d", stats.Failed), colorize),
		renderStatusLine("Active", statusInfo, countPrinter.Sprintf("%d", stats.Active), colorize),
	}
}

func archiveLines(resp *ipc.StatusResponse, colorize bool) []string {
	if !resp.ArchiveEnabled {
		return []string{renderStatusLine("Journal", statusInfo, "Disabled", colorize)}
	}
	detail := resp.ArchivePath
	if resp.Running {
		detail = countPrinter.Sprintf("%d records in %s", resp.ArchiveCount, resp.ArchivePath)
	}
	return []string{renderStatusLine("Journal", statusOK, detail, colorize)}
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
