package cmd

import (
	"github.com/achilleasa/mirage/log"
	"github.com/urfave/cli"
)

var logger = log.New("mirage")

// Apply the configured log directive, then the -v/-vv global flags which
// raise the default level.
func setupLogging(ctx *cli.Context, directive string) error {
	if directive != "" {
		d, err := log.ParseDirective(directive)
		if err != nil {
			return err
		}
		d.Apply()
	}

	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
	return nil
}
