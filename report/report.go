// Package report renders an orchestrator.Result the way the teacher's
// output package renders SIM card data: rounded tables via
// github.com/jedib0t/go-pretty/v6/table, with a colored status column
// (green=success, yellow=skipped/not-attempted, red=failed), plus a
// live-updating status line driven by the same on_dg_progress/on_stage
// callbacks the orchestrator emits (spec §6).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"emrtdcore/dg"
	"emrtdcore/orchestrator"
)

var (
	colorHeader  = text.Colors{text.FgCyan, text.Bold}
	colorLabel   = text.Colors{text.FgYellow}
	colorValue   = text.Colors{text.FgWhite}
	colorSuccess = text.Colors{text.FgGreen}
	colorFailed  = text.Colors{text.FgRed}
	colorSkipped = text.Colors{text.FgYellow}
)

func getTableStyle() table.Style {
	style := table.StyleRounded
	style.Color.Header = colorHeader
	style.Color.Row = text.Colors{text.FgWhite}
	style.Color.RowAlternate = text.Colors{text.FgHiWhite}
	style.Options.SeparateRows = false
	return style
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(getTableStyle())
	return t
}

func statusColor(s orchestrator.Status) text.Colors {
	switch s {
	case orchestrator.StatusSuccess:
		return colorSuccess
	case orchestrator.StatusFailed:
		return colorFailed
	default:
		return colorSkipped
	}
}

// dgName gives the conventional ICAO label for a Number, falling back to
// a generic "DGn" for anything this package doesn't special-case.
func dgName(n dg.Number) string {
	switch n {
	case dg.NumberCOM:
		return "EF.COM"
	case dg.NumberSOD:
		return "EF.SOD"
	default:
		return fmt.Sprintf("DG%d", n)
	}
}

// PrintSummary renders the protocol-stage status table (PACE/BAC/CA/PA).
func PrintSummary(w io.Writer, r *orchestrator.Result) {
	fmt.Fprintln(w)
	t := newTable(w)
	t.SetTitle("EMRTD READ SUMMARY")
	t.AppendHeader(table.Row{"Stage", "Status"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 20},
		{Number: 2, WidthMin: 15},
	})

	t.AppendRow(table.Row{"PACE", statusColor(r.PACEStatus).Sprint(r.PACEStatus.String())})
	t.AppendRow(table.Row{"BAC", statusColor(r.BACStatus).Sprint(r.BACStatus.String())})
	t.AppendRow(table.Row{"Chip Authentication", statusColor(r.CAStatus).Sprint(r.CAStatus.String())})
	paLabel := r.PAStatus.String()
	if r.PAStatus == orchestrator.StatusFailed && r.PAError != nil {
		paLabel = fmt.Sprintf("%s (%s)", paLabel, r.PAError)
	}
	t.AppendRow(table.Row{"Passive Authentication", statusColor(r.PAStatus).Sprint(paLabel)})
	t.Render()
}

// PrintDataGroups renders which Data Groups were declared present in
// EF.COM versus actually read, with their byte length.
func PrintDataGroups(w io.Writer, r *orchestrator.Result) {
	fmt.Fprintln(w)
	t := newTable(w)
	t.SetTitle("DATA GROUPS")
	t.AppendHeader(table.Row{"File", "Declared", "Read", "Length"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 10},
		{Number: 2, WidthMin: 10},
		{Number: 3, WidthMin: 10},
		{Number: 4, Colors: colorValue, WidthMin: 10},
	})

	declared := map[dg.Number]bool{}
	if r.COM != nil {
		for _, n := range r.COM.Present {
			declared[n] = true
		}
	}
	var numbers []dg.Number
	seen := map[dg.Number]bool{}
	for n := range declared {
		numbers = append(numbers, n)
		seen[n] = true
	}
	for n := range r.DataGroups {
		if !seen[n] {
			numbers = append(numbers, n)
			seen[n] = true
		}
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	for _, n := range numbers {
		raw, read := r.DataGroups[n]
		declStr := colorSkipped.Sprint("-")
		if declared[n] {
			declStr = colorValue.Sprint("yes")
		}
		readStr := colorFailed.Sprint("no")
		length := "-"
		if read {
			readStr = colorSuccess.Sprint("yes")
			length = fmt.Sprintf("%d", len(raw))
		}
		t.AppendRow(table.Row{dgName(n), declStr, readStr, length})
	}
	t.Render()
}

// Print renders the full report: summary then per-DG table.
func Print(w io.Writer, r *orchestrator.Result) {
	PrintSummary(w, r)
	PrintDataGroups(w, r)
}

// jsonResult is the --json rendering of a Result: byte slices as hex so
// the output stays readable and round-trips unambiguously through text.
type jsonResult struct {
	PACEStatus string            `json:"pace_status"`
	BACStatus  string            `json:"bac_status"`
	CAStatus   string            `json:"ca_status"`
	PAStatus   string            `json:"pa_status"`
	PAError    string            `json:"pa_error,omitempty"`
	DataGroups map[string]string `json:"data_groups"`
}

// WriteJSON renders r as JSON to w, for the CLI's --json flag.
func WriteJSON(w io.Writer, r *orchestrator.Result) error {
	out := jsonResult{
		PACEStatus: r.PACEStatus.String(),
		BACStatus:  r.BACStatus.String(),
		CAStatus:   r.CAStatus.String(),
		PAStatus:   r.PAStatus.String(),
		DataGroups: make(map[string]string, len(r.DataGroups)),
	}
	if r.PAError != nil {
		out.PAError = r.PAError.Error()
	}
	for n, raw := range r.DataGroups {
		out.DataGroups[dgName(n)] = fmt.Sprintf("%X", raw)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// StageLine renders one orchestrator.Stage as a single status line, the
// way the teacher's PrintSuccess/PrintWarning/PrintError one-liners work,
// for live progress during a read.
func StageLine(st orchestrator.Stage) string {
	switch st.Kind {
	case orchestrator.StageRequestPresent:
		return colorSkipped.Sprint("⏳ Waiting for card presentation...")
	case orchestrator.StageAuthenticating:
		return colorSkipped.Sprint("🔑 Authenticating...")
	case orchestrator.StageReading:
		return colorValue.Sprintf("📄 Reading %s: %d%%", fmt.Sprintf("tag=0x%02X", st.DGTag), st.Percent)
	case orchestrator.StageSuccess:
		return colorSuccess.Sprint("✓ Read complete")
	case orchestrator.StageError:
		return colorFailed.Sprintf("✗ %s", st.Err)
	default:
		return ""
	}
}

// PrintStage writes StageLine(st) to w followed by a newline, mirroring
// the teacher's PrintSuccess/PrintWarning/PrintError helpers.
func PrintStage(w io.Writer, st orchestrator.Stage) {
	fmt.Fprintln(w, StageLine(st))
}

// Stdout is the default writer PrintStage-style callers use when wiring
// orchestrator.Options.OnStage directly, matching the teacher's pattern
// of printing straight to os.Stdout from output package helpers.
var Stdout io.Writer = os.Stdout
