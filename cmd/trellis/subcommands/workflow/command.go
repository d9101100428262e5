package workflow

import (
	workflow_run "github.com/trellis-ml/trellis/cmd/trellis/subcommands/workflow/run"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	run, err := workflow_run.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Run the whole demo workflow from a single file.",
		struct{}{},
		flarc.WithSubcommand("run", run),
	)
}
