package image

import (
	image_customize "github.com/trellis-ml/trellis/cmd/trellis/subcommands/image/customize"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	customize, err := image_customize.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Manage algorithm container images.",
		struct{}{},
		flarc.WithSubcommand("customize", customize),
	)
}
