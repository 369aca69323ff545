package commands

import (
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guzman109/ArrayMorph/internal/cli/output"
	"github.com/guzman109/ArrayMorph/pkg/chunk"
	"github.com/guzman109/ArrayMorph/pkg/plan"
)

var (
	planSel    selection
	planOutput string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the byte ranges a selection would fetch",
	Long: `Plan a chunk selection without contacting storage: print the segments
(one ranged request each) and the mappings they satisfy under the
configured transfer.segments policy.

Examples:
  arraymorph plan --uri temp/0.0 --shape 64,64 --ranges 0:31,16:47 --element-size 8

  # Machine-readable
  arraymorph plan --uri temp/0.0 --shape 64,64 --ranges 0:31,16:47 -o json`,
	RunE: runPlan,
}

func init() {
	planSel.addFlags(planCmd)
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(planOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	shape, ranges, err := planSel.parse()
	if err != nil {
		return err
	}

	key := planSel.uri
	if file := strings.TrimPrefix(planSel.file, "./"); file != "" {
		key = path.Join(file, planSel.uri)
	}
	desc, err := chunk.New(key, planSel.elementSize, shape, ranges)
	if err != nil {
		return err
	}

	segs, err := plan.NewPlanner(cfg.Transfer.SegmentPolicy()).PlanChunk(desc)
	if err != nil {
		return err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format).Print(output.NewPlanView(desc, segs))
}
