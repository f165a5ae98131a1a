package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/autoservice/internal/flagx"
	"github.com/pkg/errors"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   backend base URL
//	-s string   storage DSN
//	-l string   log level
//
// Only these flags are looked at; the rest of args is ignored.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("autoservice", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.API.BaseURL, "a", cfg.API.BaseURL, "backend base URL")
	fs.StringVar(&cfg.Storage.DSN, "s", cfg.Storage.DSN, "storage DSN")
	fs.StringVar(&cfg.Log.Level, "l", cfg.Log.Level, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-a", "-s", "-l"})); err != nil {
		return errors.Wrap(err, "parse flags")
	}
	return nil
}
