package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/achilleasa/mirage/cmd"
	"github.com/urfave/cli"
)

// The render loop runs on the main goroutine and owns the mirror window's
// opengl context.
func init() {
	runtime.LockOSThread()
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "mirage"
	app.Usage = "composite remote desktop windows into a head-mounted display"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load settings from a YAML config file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "run the compositor",
			Description: `
Start a display session, wait for a producer to connect to the handshake
socket and render its windows as panes arranged around the viewer.

The compositor runs until interrupted or until the runtime ends the session.`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "socket, s",
					Usage: "abstract socket name for the producer handshake",
				},
				cli.BoolFlag{
					Name:  "no-handshake",
					Usage: "do not listen for a producer",
				},
				cli.StringFlag{
					Name:  "background, b",
					Usage: "equirect environment image (local path or http/https URL)",
				},
				cli.BoolFlag{
					Name:  "mirror, m",
					Usage: "show the left eye in a desktop window",
				},
				cli.StringFlag{
					Name:  "helper",
					Usage: "path to the helper binary to spawn",
				},
				cli.Float64Flag{
					Name:  "refresh-rate",
					Usage: "display refresh rate in Hz; 0 renders as fast as possible",
				},
			},
			Action: cmd.Run,
		},
		{
			Name:  "connect",
			Usage: "stream an image to a running compositor as a window",
			Description: `
Hand a connection to the compositor listening on the handshake socket and
push the image as a window. The image is then refreshed one tile at a time
until interrupted or until the hold period expires, at which point the
window is destroyed.`,
			ArgsUsage: "image_file",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "socket, s",
					Usage: "abstract socket name for the producer handshake",
				},
				cli.IntFlag{
					Name:  "id",
					Value: 1,
					Usage: "window id",
				},
				cli.Uint64Flag{
					Name:  "token",
					Usage: "device token; random if not set",
				},
				cli.IntFlag{
					Name:  "tiles-x",
					Value: 4,
					Usage: "horizontal tile count",
				},
				cli.IntFlag{
					Name:  "tiles-y",
					Value: 4,
					Usage: "vertical tile count",
				},
				cli.IntFlag{
					Name:  "max-width",
					Value: 1920,
					Usage: "downscale wider images to this width",
				},
				cli.DurationFlag{
					Name:  "interval",
					Value: 100 * time.Millisecond,
					Usage: "delay between tile refreshes",
				},
				cli.DurationFlag{
					Name:  "hold",
					Usage: "destroy the window after this long; 0 waits for an interrupt",
				},
			},
			Action: cmd.Connect,
		},
		{
			Name:   "info",
			Usage:  "print display runtime capabilities",
			Action: cmd.Info,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
