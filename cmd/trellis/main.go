package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"

	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/common"
	subdata "github.com/trellis-ml/trellis/cmd/trellis/subcommands/data"
	subimage "github.com/trellis-ml/trellis/cmd/trellis/subcommands/image"
	subinit "github.com/trellis-ml/trellis/cmd/trellis/subcommands/init"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/logger"
	subresult "github.com/trellis-ml/trellis/cmd/trellis/subcommands/result"
	subtrain "github.com/trellis-ml/trellis/cmd/trellis/subcommands/train"
	subtransform "github.com/trellis-ml/trellis/cmd/trellis/subcommands/transform"
	subver "github.com/trellis-ml/trellis/cmd/trellis/subcommands/version"
	subworkflow "github.com/trellis-ml/trellis/cmd/trellis/subcommands/workflow"
	"github.com/trellis-ml/trellis/pkg/utils/try"
	"github.com/youta-t/flarc"
)

func main() {
	name := path.Base(os.Args[0])
	logger := logger.Default()
	logger.SetPrefix(fmt.Sprintf("[%s] ", name))

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill,
	)
	defer cancel()

	cf := try.To(common.Flags(".")).OrFatal(logger)
	init := try.To(subinit.New()).OrFatal(logger)
	data := try.To(subdata.New()).OrFatal(logger)
	image := try.To(subimage.New()).OrFatal(logger)
	train := try.To(subtrain.New()).OrFatal(logger)
	transform := try.To(subtransform.New()).OrFatal(logger)
	result := try.To(subresult.New()).OrFatal(logger)
	workflow := try.To(subworkflow.New()).OrFatal(logger)
	version := try.To(subver.New()).OrFatal(logger)

	trellis := try.To(
		flarc.NewCommandGroup(
			"Trellis commandline interface",
			cf,
			flarc.WithSubcommand("init", init),
			flarc.WithSubcommand("data", data),
			flarc.WithSubcommand("image", image),
			flarc.WithSubcommand("train", train),
			flarc.WithSubcommand("transform", transform),
			flarc.WithSubcommand("result", result),
			flarc.WithSubcommand("workflow", workflow),
			flarc.WithSubcommand("version", version),
		),
	).OrFatal(logger)

	os.Exit(flarc.Run(ctx, trellis, flarc.WithHelp(true)))
}
