package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	errs "github.com/matzehuels/leafshift/pkg/errors"
	"github.com/matzehuels/leafshift/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output      string
	interactive bool
	noCache     bool
	aperture    pipeline.ApertureOptions
}

// renderCommand creates the render command for drawing apertures.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{aperture: pipeline.ApertureOptions{Format: pipeline.FormatSVG}}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Draw the MLC aperture of one control point to SVG or PNG",
		Long: `Draw the leaves, jaws and central axis of one control point.

With --converted the converted aperture is drawn over the original one. When
the plan cannot be converted a closed aperture of the target MLC is drawn
instead and the reason is printed.`,
		Example: `  leafshift render RP.dcm --beam 2 --cp 0
  leafshift render RP.dcm --converted --format png -o preview.png
  leafshift render RP.dcm -i`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>_beam<N>_cp<M>.<format>)")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "pick the beam and control point interactively")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the cache")
	cmd.Flags().IntVar(&opts.aperture.Beam, "beam", 0, "beam number (default: first beam)")
	cmd.Flags().IntVar(&opts.aperture.ControlPoint, "cp", 0, "control point position in the beam")
	cmd.Flags().StringVarP(&opts.aperture.Format, "format", "f", pipeline.FormatSVG, "output format: svg or png")
	cmd.Flags().BoolVar(&opts.aperture.Converted, "converted", false, "overlay the converted aperture")
	cmd.Flags().BoolVar(&opts.aperture.Grid, "grid", false, "draw a 50 mm grid")
	cmd.Flags().Float64Var(&opts.aperture.Scale, "scale", 0, "pixels per millimetre")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	cfg, _, err := c.loadConfig()
	if err != nil {
		return err
	}
	lang := c.language(cfg)

	if err := pipeline.ValidateFormat(opts.aperture.Format); err != nil {
		return c.localize(lang, err)
	}
	if err := errs.ValidatePath(input); err != nil {
		return c.localize(lang, err)
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	if opts.interactive {
		ok, err := c.pickControlPoint(input, &opts.aperture)
		if err != nil {
			return c.localize(lang, err)
		}
		if !ok {
			printInfo("Nothing selected")
			return nil
		}
	}

	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	res, err := runner.Aperture(ctx, data, opts.aperture)
	if err != nil {
		return c.localize(lang, err)
	}

	output := opts.output
	if output == "" {
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		output = filepath.Join(filepath.Dir(input),
			fmt.Sprintf("%s_beam%d_cp%d.%s", base, res.Beam, opts.aperture.ControlPoint, res.Format))
	}
	if err := os.WriteFile(output, res.Data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	if res.Rejected {
		printWarning("%s", c.tr.Error(lang, res.Reason))
	}
	printSuccess("Rendered beam %d, control point %d (%s)", res.Beam, opts.aperture.ControlPoint, directionName(res.Direction))
	printFile(output)
	return nil
}

// pickControlPoint runs the beam and control point pickers. It reports false
// when the user quit without choosing.
func (c *CLI) pickControlPoint(input string, opts *pipeline.ApertureOptions) (bool, error) {
	plan, err := readPlan(input)
	if err != nil {
		return false, err
	}
	if len(plan.Beams) == 0 {
		return false, errs.New(errs.ErrCodeInvalidInput, "plan has no beams")
	}

	final, err := tea.NewProgram(NewBeamListModel(plan.Beams)).Run()
	if err != nil {
		return false, fmt.Errorf("beam picker: %w", err)
	}
	beams := final.(BeamListModel)
	if beams.Selected == nil {
		return false, nil
	}

	final, err = tea.NewProgram(NewControlPointListModel(beams.Selected)).Run()
	if err != nil {
		return false, fmt.Errorf("control point picker: %w", err)
	}
	cps := final.(ControlPointListModel)
	if !cps.Chosen {
		return false, nil
	}

	opts.Beam = beams.Selected.Number
	opts.ControlPoint = cps.Selected
	return true, nil
}
