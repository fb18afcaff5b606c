package cmd

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/achilleasa/mirage/desktop"
	"github.com/achilleasa/mirage/renderer"
	"github.com/olekukonko/tablewriter"
)

var (
	defaultSky    = color.NRGBA{R: 40, G: 48, B: 72, A: 255}
	defaultGround = color.NRGBA{R: 16, G: 16, B: 20, A: 255}
)

func displayFrameStats(stats renderer.FrameStats, windows desktop.Stats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Eye", "Rendered", "Acquire failures", "Wait failures", "Release failures", "Block heights"})
	for eye, stat := range stats.Eyes {
		heights := make([]uint32, len(stat.Blocks))
		for i, b := range stat.Blocks {
			heights[i] = b.BlockH
		}
		table.Append([]string{
			fmt.Sprintf("%d", eye),
			fmt.Sprintf("%d", stat.Rendered),
			fmt.Sprintf("%d", stat.AcquireFailures),
			fmt.Sprintf("%d", stat.WaitFailures),
			fmt.Sprintf("%d", stat.ReleaseFailures),
			fmt.Sprintf("%v", heights),
		})
	}
	table.SetFooter([]string{
		"FRAMES", fmt.Sprintf("%d", stats.Frames),
		"EMPTY", fmt.Sprintf("%d", stats.EmptyFrames),
		"AVG / MAX", fmt.Sprintf("%s / %s", stats.AvgRenderTime(), stats.MaxRenderTime),
	})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
	logger.Noticef(
		"windows: %d live, %d updates, %d dropped, %d reaped; %d panes drawn; %d end frame failures",
		windows.Live, windows.Updates, windows.Dropped, windows.Reaped, stats.PanesDrawn, stats.EndFailures,
	)
}
