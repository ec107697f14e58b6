// Package config loads the operational knobs emrtdctl exposes beyond the
// protocol itself: the initial READ BINARY chunk size, reader selection, a
// GET RESPONSE Le and a PACE preference. None of this is protocol
// semantics — the state machine in package orchestrator always behaves per
// spec regardless of what this package loads. emrtdctl read uses the chunk
// size and the reader selection; the Le and PACE preference are loaded but
// not passed on.
//
// Loading follows the same Viper pattern kgiusti-go-fdo-server's cmd
// package uses: bind pflags, optionally read a config file over them,
// then pull typed values out.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the operational knobs read from flags/env/file.
type Config struct {
	// ChunkSize is the initial READ BINARY length lds.Reader starts
	// with (spec §4.7). Zero means lds.DefaultChunkSize.
	ChunkSize int

	// ResponseLe is loaded from the response-le key. emrtdctl read does
	// not pass it on: apdu.Send always uses the card's SW2 as the Le of
	// its GET RESPONSE follow-ups.
	ResponseLe int

	// PreferPACE is loaded from the prefer-pace key (default true).
	// emrtdctl read does not pass it on: orchestrator.Run attempts PACE
	// whenever EF.CardAccess advertises a supported PACEInfo, whatever
	// this value is.
	PreferPACE bool

	// ReaderSubstring, if non-empty, picks the PC/SC reader whose
	// name contains this substring (case-insensitive) instead of
	// requiring an explicit index.
	ReaderSubstring string
}

// Defaults returns the knob values used when no flag, env var, or config
// file sets them.
func Defaults() Config {
	return Config{
		ChunkSize:  0,
		ResponseLe: 0,
		PreferPACE: true,
	}
}

// BindFlags registers this package's knobs onto fs (typically a Cobra
// command's persistent flag set) and binds them into v, so env vars and
// an optional config file can also supply them.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.Int("chunk-size", 0, "initial READ BINARY chunk size (0 = protocol default)")
	fs.Int("response-le", 0, "GET RESPONSE Le (loaded into config; not used by read, which takes the card's SW2)")
	fs.Bool("prefer-pace", true, "PACE preference (loaded into config; not used by read, which tries PACE whenever EF.CardAccess advertises it)")
	fs.String("reader-name", "", "select a PC/SC reader by name substring")

	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("config: bind flags: %w", err)
	}
	return nil
}

// Load reads configFile (if non-empty) over whatever BindFlags already
// bound, then returns the resolved Config.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	return Config{
		ChunkSize:       v.GetInt("chunk-size"),
		ResponseLe:      v.GetInt("response-le"),
		PreferPACE:      v.GetBool("prefer-pace"),
		ReaderSubstring: v.GetString("reader-name"),
	}, nil
}
