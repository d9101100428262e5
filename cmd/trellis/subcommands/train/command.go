package train

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
	Image           string        `flag:"image" metavar:"IMAGE" help:"customized algorithm image to train with"`
	Input           string        `flag:"input" metavar:"s3://..." help:"working location holding the staged dataset"`
	Output          string        `flag:"output" metavar:"s3://..." help:"location for the trained model artifact"`
	Hyperparameters *kflag.Params `flag:"hyperparameter" alias:"H" metavar:"KEY=VALUE..." help:"hyperparameter passed to the algorithm. Repeatable."`
	Resources       *kflag.Params `flag:"resource" metavar:"KEY=VALUE..." help:"resource sizing, like cpu=4 or memory=16Gi. Repeatable."`
	Poll            time.Duration `flag:"poll" help:"status polling interval"`
	NoWait          bool          `flag:"no-wait" help:"submit and return without waiting for the job to settle"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"submit a training job against the customized algorithm image.",
		Flags{
			Hyperparameters: &kflag.Params{},
			Resources:       &kflag.Params{},
			Poll:            30 * time.Second,
		},
		flarc.Args{},
		common.NewTask(Task),
		flarc.WithDescription(`
Submit a training job. The job trains with two labeled input channels
read from the working location: "train" and "validation".

Hyperparameters given by --hyperparameter are layered over the defaults
of your trellisenv file.

Unless --no-wait is given, the command blocks until the job settles,
then prints the job in JSON. The model artifact URI in the output is
the input for "trellis transform".
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

	if flags.Image == "" {
		return fmt.Errorf("%w: --image is required", flarc.ErrUsage)
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

	spec := apijobs.TrainingSpec{
		Image:           flags.Image,
		Hyperparameters: common.MergeParams(e.Hyperparameters, *flags.Hyperparameters),
		Resources:       resources,
		Channels: []apijobs.Channel{
			{
				Name:        apistorage.PartitionTrain,
				Source:      input.Sub(apistorage.PartitionTrain),
				ContentType: "text/csv",
			},
			{
				Name:        apistorage.PartitionValidation,
				Source:      input.Sub(apistorage.PartitionValidation),
				ContentType: "text/csv",
			},
		},
		Output: output,
	}

	detail, err := RunTraining(ctx, logger, client, spec, flags.Poll, !flags.NoWait)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cl.Stdout())
	enc.SetIndent("", "    ")
	if err := enc.Encode(detail); err != nil {
		logger.Panicf("fail to dump training job")
	}

	return nil
}

// RunTraining submits the job and, when wait, blocks until it settles.
//
// A job settling in a status other than Completed is an error.
func RunTraining(
	ctx context.Context,
	logger *log.Logger,
	client trest.TrellisClient,
	spec apijobs.TrainingSpec,
	poll time.Duration,
	wait bool,
) (apijobs.TrainingDetail, error) {
	detail, err := client.SubmitTraining(ctx, spec)
	if err != nil {
		return apijobs.TrainingDetail{}, err
	}
	logger.Printf("training job is submitted: %s", detail.TrainingId)

	if !wait {
		return detail, nil
	}

	detail, err = client.WaitTraining(ctx, detail.TrainingId, poll)
	if err != nil {
		return apijobs.TrainingDetail{}, err
	}

	if detail.Status != apijobs.Completed {
		return detail, fmt.Errorf(
			"training %s is %s: %s", detail.TrainingId, detail.Status, detail.Reason,
		)
	}

	logger.Printf("[OK] training %s is completed. model artifact: %s", detail.TrainingId, detail.ModelArtifact)
	return detail, nil
}
