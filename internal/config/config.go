// Package config loads startup defaults for the UCI option surface from an
// optional config file (chesscore.yaml/.json/.toml in the working directory
// or $CHESSCORE_CONFIG), read with viper. Every field here mirrors a
// "setoption" name 1:1; a later "setoption" line always overrides whatever
// the file set.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds the same knobs the UCI "setoption" surface exposes, read
// once at startup so a config file can pre-seed them before any
// "setoption" line arrives.
type Config struct {
	Hash             int
	Threads          int
	MultiPV          int
	Ponder           bool
	MoveOverheadMS   int
	SyzygyPath       string
	SyzygyProbeDepth int
	Syzygy50MoveRule bool
	UseNNUE          bool
	EvalFile         string
	EvalFileSmall    string
}

// Default returns the option defaults the "uci" handshake itself reports.
func Default() Config {
	return Config{
		Hash:             64,
		Threads:          1,
		MultiPV:          1,
		Ponder:           false,
		MoveOverheadMS:   30,
		SyzygyProbeDepth: 1,
		Syzygy50MoveRule: true,
		UseNNUE:          false,
	}
}

// Load reads chesscore.{yaml,json,toml} from the working directory (or the
// path in $CHESSCORE_CONFIG), falling back silently to Default when no
// config file is present — a missing file is expected, not an error.
func Load() Config {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("chesscore")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("hash", cfg.Hash)
	v.SetDefault("threads", cfg.Threads)
	v.SetDefault("multipv", cfg.MultiPV)
	v.SetDefault("ponder", cfg.Ponder)
	v.SetDefault("moveoverheadms", cfg.MoveOverheadMS)
	v.SetDefault("syzygypath", cfg.SyzygyPath)
	v.SetDefault("syzygyprobedepth", cfg.SyzygyProbeDepth)
	v.SetDefault("syzygy50moverule", cfg.Syzygy50MoveRule)
	v.SetDefault("usennue", cfg.UseNNUE)
	v.SetDefault("evalfile", cfg.EvalFile)
	v.SetDefault("evalfilesmall", cfg.EvalFileSmall)

	v.SetConfigName("chesscore")
	v.AddConfigPath(".")
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	}

	// A missing config file is the common case (no file shipped). The read
	// error is ignored in every case, including a file with bad syntax: the
	// caller then gets the defaults set above plus any environment overrides.
	_ = v.ReadInConfig()

	cfg.Hash = v.GetInt("hash")
	cfg.Threads = v.GetInt("threads")
	cfg.MultiPV = v.GetInt("multipv")
	cfg.Ponder = v.GetBool("ponder")
	cfg.MoveOverheadMS = v.GetInt("moveoverheadms")
	cfg.SyzygyPath = v.GetString("syzygypath")
	cfg.SyzygyProbeDepth = v.GetInt("syzygyprobedepth")
	cfg.Syzygy50MoveRule = v.GetBool("syzygy50moverule")
	cfg.UseNNUE = v.GetBool("usennue")
	cfg.EvalFile = v.GetString("evalfile")
	cfg.EvalFileSmall = v.GetString("evalfilesmall")

	return cfg
}
