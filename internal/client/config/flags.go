package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/mediadrop/internal/flagx"
)

// parseFlags overlays cfg with the flags it knows about. Unknown arguments
// are filtered out first so other components may define their own flags.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-s", "-z", "-q", "-t", "-d", "-l", "-o"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "s", cfg.ServerURL, "metadata server base URL")
	fs.BoolVar(&cfg.Compress, "z", cfg.Compress, "compress videos before upload")
	fs.Float64Var(&cfg.Quality, "q", cfg.Quality, "compression quality in (0, 1]")
	fs.DurationVar(&cfg.TransferTimeout, "t", cfg.TransferTimeout, "upload attempt timeout")
	fs.StringVar(&cfg.HistoryDB, "d", cfg.HistoryDB, "upload history database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFile, "o", cfg.LogFile, "log file path")

	return fs.Parse(args)
}
