package stage

import (
	"context"
	"fmt"
	"log"

	"github.com/trellis-ml/trellis/cmd/trellis/config/profiles"
	"github.com/trellis-ml/trellis/cmd/trellis/env"
	trest "github.com/trellis-ml/trellis/cmd/trellis/rest"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/common"
	apistorage "github.com/trellis-ml/trellis/pkg/api/types/storage"
	"github.com/youta-t/flarc"
)

const (
	ARG_SOURCE = "SOURCE"
	ARG_WORK   = "WORK"
)

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"copy the dataset partitions into the working storage location.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_SOURCE, Required: true,
				Help: "location holding the dataset, like s3://examples/datasets/abalone",
			},
			{
				Name: ARG_WORK, Required: true,
				Help: "working location the workflow reads from, like s3://my-bucket/demo",
			},
		},
		common.NewTask(Task),
		flarc.WithDescription(`
Copy the three dataset partitions ("train", "test", "validation") from
SOURCE into WORK, server-side, one by one in that order.

Each partition is the object "<prefix>/<partition>/<partition>.csv".
`),
	)
}

func Task(
	ctx context.Context,
	logger *log.Logger,
	e env.TrellisEnv,
	p profiles.TrellisProfile,
	client trest.TrellisClient,
	cl flarc.Commandline[struct{}],
	_ []any,
) error {
	args := cl.Args()

	source, err := apistorage.ParseURI(args[ARG_SOURCE][0])
	if err != nil {
		return fmt.Errorf("%w: %s", flarc.ErrUsage, err)
	}
	work, err := apistorage.ParseURI(args[ARG_WORK][0])
	if err != nil {
		return fmt.Errorf("%w: %s", flarc.ErrUsage, err)
	}

	return Stage(ctx, logger, client, source, work)
}

// Stage copies each dataset partition from source to work.
//
// Copies are strictly sequential and stop at the first failure.
func Stage(
	ctx context.Context,
	logger *log.Logger,
	client trest.TrellisClient,
	source apistorage.Location,
	work apistorage.Location,
) error {
	for _, partition := range apistorage.Partitions() {
		src := source.PartitionObject(partition)
		dst := work.PartitionObject(partition)

		logger.Printf("copying %s to %s", src.URI(), dst.URI())
		if err := client.CopyObject(ctx, src, dst); err != nil {
			return fmt.Errorf("staging %s: %w", partition, err)
		}
	}

	logger.Printf("[OK] dataset is staged at %s", work.URI())
	return nil
}
