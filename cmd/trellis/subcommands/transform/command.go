package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/trellis-ml/trellis/cmd/trellis/config/profiles"
	"github.com/trellis-ml/trellis/cmd/trellis/env"
	trest "github.com/trellis-ml/trellis/cmd/trellis/rest"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/common"
	apijobs "github.com/trellis-ml/trellis/pkg/api/types/jobs"
	apistorage "github.com/trellis-ml/trellis/pkg/api/types/storage"
	kflag "github.com/trellis-ml/trellis/pkg/commandline/flag"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Model     string        `flag:"model" metavar:"s3://..." help:"trained model artifact, as reported by 'trellis train'"`
	Input     string        `flag:"input" metavar:"s3://..." help:"working location holding the staged dataset"`
	Output    string        `flag:"output" metavar:"s3://..." help:"location for the prediction table"`
	Resources *kflag.Params `flag:"resource" metavar:"KEY=VALUE..." help:"resource sizing, like cpu=4 or memory=16Gi. Repeatable."`
	Poll      time.Duration `flag:"poll" help:"status polling interval"`
	NoWait    bool          `flag:"no-wait" help:"submit and return without waiting for the job to settle"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"run batch inference over the test partition with a trained model.",
		Flags{
			Resources: &kflag.Params{},
			Poll:      30 * time.Second,
		},
		flarc.Args{},
		common.NewTask(Task),
		flarc.WithDescription(`
Submit a batch transform job against a trained model artifact.

The job reads the "test" partition of the working location and writes
the prediction table to --output. With the customized image, each output
row carries the prediction, the base value and one attribution value per
input feature.

Unless --no-wait is given, the command blocks until the job settles,
then prints the job in JSON. Use "trellis result pull" to download the
output table.
`),
	)
}

func Task(
	ctx context.Context,
	logger *log.Logger,
	e env.TrellisEnv,
	p profiles.TrellisProfile,
	client trest.TrellisClient,
	cl flarc.Commandline[Flags],
	_ []any,
) error {
	flags := cl.Flags()

	if flags.Model == "" {
		return fmt.Errorf("%w: --model is required", flarc.ErrUsage)
	}
	if flags.Input == "" || flags.Output == "" {
		return fmt.Errorf("%w: --input and --output are required", flarc.ErrUsage)
	}

	input, err := apistorage.ParseURI(flags.Input)
	if err != nil {
		return fmt.Errorf("%w: %s", flarc.ErrUsage, err)
	}
	output, err := apistorage.ParseURI(flags.Output)
	if err != nil {
		return fmt.Errorf("%w: %s", flarc.ErrUsage, err)
	}

	resources, err := common.ParseResources(e.Resources, *flags.Resources)
	if err != nil {
		return fmt.Errorf("%w: %s", flarc.ErrUsage, err)
	}

	spec := apijobs.TransformSpec{
		ModelArtifact: flags.Model,
		Resources:     resources,
		Input:         input.Sub(apistorage.PartitionTest),
		Output:        output,
	}

	detail, err := RunTransform(ctx, logger, client, spec, flags.Poll, !flags.NoWait)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cl.Stdout())
	enc.SetIndent("", "    ")
	if err := enc.Encode(detail); err != nil {
		logger.Panicf("fail to dump transform job")
	}

	return nil
}

// RunTransform submits the job and, when wait, blocks until it settles.
//
// A job settling in a status other than Completed is an error.
func RunTransform(
	ctx context.Context,
	logger *log.Logger,
	client trest.TrellisClient,
	spec apijobs.TransformSpec,
	poll time.Duration,
	wait bool,
) (apijobs.TransformDetail, error) {
	detail, err := client.SubmitTransform(ctx, spec)
	if err != nil {
		return apijobs.TransformDetail{}, err
	}
	logger.Printf("transform job is submitted: %s", detail.TransformId)

	if !wait {
		return detail, nil
	}

	detail, err = client.WaitTransform(ctx, detail.TransformId, poll)
	if err != nil {
		return apijobs.TransformDetail{}, err
	}

	if detail.Status != apijobs.Completed {
		return detail, fmt.Errorf(
			"transform %s is %s: %s", detail.TransformId, detail.Status, detail.Reason,
		)
	}

	logger.Printf("[OK] transform %s is completed", detail.TransformId)
	return detail, nil
}
