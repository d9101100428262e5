package result

import (
	result_pull "github.com/trellis-ml/trellis/cmd/trellis/subcommands/result/pull"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	pull, err := result_pull.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Inspect batch transform outputs.",
		struct{}{},
		flarc.WithSubcommand("pull", pull),
	)
}
