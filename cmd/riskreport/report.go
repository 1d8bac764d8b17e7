package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aristath/riskpulse/internal/config"
	"github.com/aristath/riskpulse/internal/domain"
)

// writeReport prints the batch as narratives (text) or as the JSON envelope.
func writeReport(w io.Writer, format string, result domain.BatchResult) error {
	if format == config.FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	var b strings.Builder
	for i, report := range result.Data {
		if i > 0 {
			b.WriteString("\n" + strings.Repeat("─", 60) + "\n\n")
		}
		if report.OK() {
			b.WriteString(report.Narrative)
			continue
		}
		fmt.Fprintf(&b, "❌ **%s**: analysis failed (%s): %s\n", strings.ToUpper(report.AssetID), report.ErrorKind, report.Error)
	}
	fmt.Fprintf(&b, "\nRun %s: %d succeeded, %d failed\n", result.RunID, result.Succeeded, result.Failed)

	_, err := io.WriteString(w, b.String())
	return err
}
