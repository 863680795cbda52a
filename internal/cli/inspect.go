package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/leafshift/pkg/convert"
	errs "github.com/matzehuels/leafshift/pkg/errors"
	"github.com/matzehuels/leafshift/pkg/mlc"
	"github.com/matzehuels/leafshift/pkg/rtplan"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "Summarize an RT plan and check whether it can be converted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}
			lang := c.language(cfg)

			plan, err := readPlan(args[0])
			if err != nil {
				return c.localize(lang, err)
			}
			dir, err := convert.Identify(plan)
			if err != nil {
				return c.localize(lang, err)
			}
			linacs, err := cfg.OpenLinacStore()
			if err != nil {
				return err
			}
			target, err := linacs.Snapshot().Machine(dir.Target)
			if err != nil {
				return err
			}

			fmt.Fprintln(stdout, StyleTitle.Render(plan.Label.Value))
			printKeyValue("Patient", fmt.Sprintf("%s (%s)", plan.PatientName, plan.PatientID))
			printKeyValue("Approval", plan.ApprovalStatus)
			printKeyValue("MLC", familyName(dir.Source))
			printKeyValue("Target", fmt.Sprintf("%s on %s (%s)", familyName(dir.Target), target.TreatmentMachineName, target.DeviceSerialNumber))
			printNewline()

			rows := make([][]string, 0, len(plan.Beams))
			for i := range plan.Beams {
				rows = append(rows, beamRow(&plan.Beams[i], dir))
			}
			printTable([]string{"Beam", "Name", "Machine", "CPs", "MLC", "Fits " + dir.Target.String()}, rows)

			_, err = convert.New(linacs.Snapshot(), loggerFromContext(cmd.Context())).Convert(cmd.Context(), plan)
			if err != nil {
				printError("%s", c.tr.Error(lang, err))
				return nil
			}
			printSuccess("%s", dir.Label())
			return nil
		},
	}
}

// readPlan validates path and decodes the record at it.
func readPlan(path string) (*rtplan.Plan, error) {
	if err := errs.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return rtplan.Read(f)
}

// beamRow summarizes one beam. A Millennium beam fits the HD collimator when
// every outer leaf pair is closed at every converted control point.
func beamRow(b *rtplan.Beam, dir convert.Direction) []string {
	n := convert.EffectiveControlPoints(b)
	cps := strconv.Itoa(n)
	if n != len(b.ControlPoints) {
		cps = fmt.Sprintf("%d of %d", n, len(b.ControlPoints))
	}
	if !b.HasMLC() {
		return []string{strconv.Itoa(b.Number), b.Name, b.TreatmentMachineName, cps, "none", "-"}
	}

	fits := "yes"
	if dir.Source == mlc.Millennium {
		for i := 0; i < n; i++ {
			cp := b.ControlPoints[i]
			if !cp.HasLeaves() || mlc.ValidateState(cp.Leaves) != nil {
				continue
			}
			if mm := mlc.OuterMismatches(cp.Leaves); len(mm) > 0 {
				fits = fmt.Sprintf("no (CP %d, leaf %d)", cp.Index, mm[0].Leaf)
				break
			}
		}
	}
	return []string{strconv.Itoa(b.Number), b.Name, b.TreatmentMachineName, cps, "yes", fits}
}
