package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/achilleasa/mirage/xr"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Info prints the capabilities of the configured display runtime.
func Info(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	inst := newRuntime(cfg)
	defer inst.Destroy()

	props := inst.Properties()
	sys := inst.System()

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("\nRuntime %s %s\n  System     %s\n  Max layers %d\n  Max image  %d\n\n",
		props.RuntimeName, props.RuntimeVersion, sys.SystemName, sys.MaxLayers, sys.MaxImageSize))
	buf.WriteString(fmt.Sprintf("  API layers %s\n  Extensions %s\n\n",
		strings.Join(inst.APILayers(), ", "), strings.Join(inst.Extensions(), ", ")))

	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"View config", "View", "Recommended", "Max", "Images", "Blend modes"})
	for _, vc := range inst.ViewConfigurations() {
		views, err := inst.ViewConfigurationViews(vc)
		if err != nil {
			return err
		}

		var modes []string
		for _, mode := range inst.BlendModes(vc) {
			modes = append(modes, mode.String())
		}
		for index, view := range views {
			table.Append([]string{
				vc.String(),
				fmt.Sprintf("%d", index),
				fmt.Sprintf("%dx%d", view.RecommendedWidth, view.RecommendedHeight),
				fmt.Sprintf("%dx%d", view.MaxWidth, view.MaxHeight),
				fmt.Sprintf("%d / %d", view.RecommendedImageCount, view.MaxImageCount),
				strings.Join(modes, ", "),
			})
		}
	}
	table.Render()

	if session, err := inst.CreateSession(); err == nil {
		var formats []string
		for _, f := range session.SwapchainFormats() {
			formats = append(formats, f.String())
		}
		buf.WriteString(fmt.Sprintf("\n  Swapchain formats %s\n", strings.Join(formats, ", ")))
		session.Destroy()
	}

	logger.Notice(buf.String())
	return nil
}
