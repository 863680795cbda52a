package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/leafshift/pkg/errors"
	"github.com/matzehuels/leafshift/pkg/pipeline"
)

type convertOpts struct {
	output  string
	noCache bool
	refresh bool
}

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	var opts convertOpts

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert an RT plan to the other MLC family",
		Long: `Convert an RT plan between Millennium and HD leaf geometries.

The collimator family is identified from the first leaf boundary. The
converted plan is written next to the input as <name>_AdaptM2HD.dcm or
<name>_AdaptHD2M.dcm unless --output is given. A plan whose field does not
fit the target collimator is rejected and nothing is written.`,
		Example: `  leafshift convert RP.1.2.3.dcm
  leafshift convert RP.1.2.3.dcm -o /tmp/adapted.dcm --lang en`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: next to the input)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the conversion cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")

	return cmd
}

func (c *CLI) runConvert(cmd *cobra.Command, input string, opts convertOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, _, err := c.loadConfig()
	if err != nil {
		return err
	}
	lang := c.language(cfg)

	if err := errs.ValidatePath(input); err != nil {
		return c.localize(lang, err)
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	spinner := newSpinner(ctx, stderr, "Converting "+filepath.Base(input))
	spinner.Start()
	res, err := runner.Convert(ctx, data, pipeline.ConvertOptions{
		Name:     filepath.Base(input),
		Refresh:  opts.refresh,
		Progress: spinner.Beam,
	})
	if err != nil {
		spinner.Fail(c.tr.Text(lang, "ui.rejected"))
		return c.localize(lang, err)
	}
	spinner.Stop()

	output := opts.output
	if output == "" {
		output = filepath.Join(filepath.Dir(input), res.OutputName)
	}
	if err := os.WriteFile(output, res.Output, 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	prog.done("converted plan",
		"direction", res.Direction.String(),
		"beams", res.Beams,
		"cps", res.ControlPoints,
		"warnings", len(res.Warnings))

	printSuccess("%s", c.tr.Text(lang, "ui.converted", familyName(res.Direction.Source), familyName(res.Direction.Target)))
	printStats(res.Beams, res.ControlPoints, len(res.Warnings), res.CacheHit)
	if len(res.Warnings) > 0 {
		printWarning("%s", c.tr.Text(lang, "ui.warnings", len(res.Warnings)))
	}
	for _, w := range c.tr.Warnings(lang, res.Warnings) {
		printWarning("%s", w)
	}
	printFile(output)
	printNewline()
	printNextStep("Preview the converted aperture", fmt.Sprintf("%s render %s --converted", appName, input))
	return nil
}
