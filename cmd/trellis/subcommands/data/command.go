package data

import (
	data_stage "github.com/trellis-ml/trellis/cmd/trellis/subcommands/data/stage"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	stage, err := data_stage.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Manage datasets of the demonstration workflow.",
		struct{}{},
		flarc.WithSubcommand("stage", stage),
	)
}
