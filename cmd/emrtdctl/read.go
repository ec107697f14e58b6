package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"emrtdcore/orchestrator"
	"emrtdcore/report"
	"emrtdcore/transport/pcsc"
)

var (
	listReadersFlag bool
	quietProgress   bool
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read a document's chip over a PC/SC reader",
	Long: `Drive the full pipeline against a live reader: EF.CardAccess
discovery, PACE with BAC fallback, EF.COM, Chip Authentication off DG14
when present, every declared Data Group, EF.SOD, and Passive
Authentication.

Examples:
  # List available readers
  emrtdctl read --list

  # Read a document by MRZ fields
  emrtdctl read --doc-number L898902C3 --dob 740812 --doe 120415

  # Read using a precomputed MRZ key, reader selected by name
  emrtdctl read --mrz-key L898902C3674081221204159 --reader-name ACR122U

  # Emit JSON instead of tables
  emrtdctl --json read --mrz-key L898902C3674081221204159`,
	RunE: runRead,
}

func init() {
	readCmd.Flags().BoolVarP(&listReadersFlag, "list", "l", false,
		"list available PC/SC readers and exit")
	readCmd.Flags().BoolVar(&quietProgress, "quiet", false,
		"suppress the live stage/progress line")
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	if listReadersFlag {
		return listReaders()
	}
	if err := rejectCAN(); err != nil {
		return err
	}

	key, err := resolveMRZKey()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	t, err := connectReader(cfg.ReaderSubstring)
	if err != nil {
		return err
	}
	defer t.Close()

	onStage := func(st orchestrator.Stage) {}
	if !quietProgress && !jsonOutput {
		onStage = func(st orchestrator.Stage) { report.PrintStage(report.Stdout, st) }
	}

	result, err := orchestrator.Run(orchestrator.Options{
		Transport: t,
		MRZKey:    key,
		ChunkSize: cfg.ChunkSize,
		OnStage:   onStage,
	})
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	if jsonOutput {
		return report.WriteJSON(cmd.OutOrStdout(), result)
	}
	report.Print(cmd.OutOrStdout(), result)
	return nil
}

func listReaders() error {
	names, err := pcsc.ListReaders()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no PC/SC readers found")
		return nil
	}
	for i, name := range names {
		fmt.Printf("%d: %s\n", i, name)
	}
	return nil
}
