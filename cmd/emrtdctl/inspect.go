package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"emrtdcore/dg"
	"emrtdcore/sod"
)

var inspectKind string

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Decode a previously captured EF.CardAccess/EF.COM/EF.SOD file",
	Long: `Parse a raw Data Group file captured from a prior read (or from
another tool) and print its decoded structure, without touching a
reader. Useful for offline analysis of a dump produced by "emrtdctl
read --json".

The file kind is auto-detected from its name (cardaccess/com/sod) unless
--kind overrides it.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectKind, "kind", "", "cardaccess, com, or sod (default: guess from filename)")
	rootCmd.AddCommand(inspectCmd)
}

func detectKind(path string) string {
	lower := path
	for _, pair := range [][2]string{{"CARDACCESS", "cardaccess"}, {"COM", "com"}, {"SOD", "sod"}} {
		if containsUpperOrLower(lower, pair[0]) || containsUpperOrLower(lower, pair[1]) {
			return pair[1]
		}
	}
	return ""
}

func containsUpperOrLower(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	kind := inspectKind
	if kind == "" {
		kind = detectKind(path)
	}
	if kind == "" {
		return fmt.Errorf("inspect: cannot guess file kind from %q, pass --kind", path)
	}

	var out any
	switch kind {
	case "cardaccess":
		decoded, err := dg.DecodeCardAccess(raw)
		if err != nil {
			return fmt.Errorf("inspect: decode EF.CardAccess: %w", err)
		}
		out = decoded
	case "com":
		decoded, err := dg.DecodeCOM(raw)
		if err != nil {
			return fmt.Errorf("inspect: decode EF.COM: %w", err)
		}
		out = decoded
	case "sod":
		decoded, err := sod.Decode(raw)
		if err != nil {
			return fmt.Errorf("inspect: decode EF.SOD: %w", err)
		}
		out = decoded
	default:
		return fmt.Errorf("inspect: unknown kind %q (want cardaccess, com, or sod)", kind)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
