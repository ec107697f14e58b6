// Package main implements emrtdctl, the command-line driver for the
// eMRTD read pipeline in package orchestrator. Its command tree mirrors
// the teacher's cmd package: a root command carrying persistent flags
// (document identity, reader selection, --json) and subcommands for the
// distinct operations spec §8's end-to-end scenarios exercise.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"emrtdcore/config"
)

var (
	version = "0.1.0"

	// Persistent flags available to every subcommand.
	readerIndex  int
	docNumber    string
	dateOfBirth  string
	dateOfExpiry string
	mrzKey       string
	can          string
	jsonOutput   bool
	configFile   string

	v = viper.New()
)

var rootCmd = &cobra.Command{
	Use:     "emrtdctl",
	Short:   "ICAO Doc 9303 eMRTD reader",
	Version: version,
	Long: `emrtdctl reads the chip of an ICAO Doc 9303 electronic travel document
over a PC/SC contactless reader: EF.CardAccess discovery, PACE with BAC
fallback, Chip Authentication, every declared Data Group, and Passive
Authentication against the document's Security Object.`,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVarP(&readerIndex, "reader", "r", -1,
		"PC/SC reader index (omit to auto-select when exactly one reader is present)")
	pf.StringVar(&docNumber, "doc-number", "", "MRZ document number")
	pf.StringVar(&dateOfBirth, "dob", "", "MRZ date of birth, YYMMDD")
	pf.StringVar(&dateOfExpiry, "doe", "", "MRZ date of expiry, YYMMDD")
	pf.StringVar(&mrzKey, "mrz-key", "", "precomputed 24-character MRZ key, overrides --doc-number/--dob/--doe")
	pf.StringVar(&can, "can", "", "PACE Card Access Number (not supported: PACE-CAM/CAN mapping is out of scope, see Non-goals)")
	pf.BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON instead of tables")
	pf.StringVar(&configFile, "config", "", "YAML config file overriding the flag defaults above")

	if err := config.BindFlags(pf, v); err != nil {
		fmt.Fprintln(os.Stderr, "emrtdctl:", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(v, configFile)
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
