package run

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/trellis-ml/trellis/cmd/trellis/config/profiles"
	"github.com/trellis-ml/trellis/cmd/trellis/env"
	trest "github.com/trellis-ml/trellis/cmd/trellis/rest"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/common"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/data/stage"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/image/customize"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/train"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/transform"
	apijobs "github.com/trellis-ml/trellis/pkg/api/types/jobs"
	apistorage "github.com/trellis-ml/trellis/pkg/api/types/storage"
	"github.com/trellis-ml/trellis/pkg/images/ref"
	"github.com/trellis-ml/trellis/pkg/results"
	"github.com/trellis-ml/trellis/pkg/utils"
	"github.com/youta-t/flarc"
	"gopkg.in/yaml.v3"
)

const ARG_WORKFLOW_FILE = "WORKFLOW_FILE"

// Workflow is the yaml file "trellis workflow run" takes.
type Workflow struct {
	Source string `yaml:"source"`
	Work   string `yaml:"work"`

	BaseImage     string `yaml:"baseImage"`
	BaseImageFile string `yaml:"baseImageFile"`
	HandoffFile   string `yaml:"handoffFile"`
	Namespace     string `yaml:"namespace"`

	Hyperparameters map[string]string `yaml:"hyperparameters"`
	Resources       apijobs.Resources `yaml:"resources"`

	ModelOutput  string `yaml:"modelOutput"`
	ResultOutput string `yaml:"resultOutput"`

	Poll string `yaml:"poll"`
}

// Option carries the image customization step, replaceable in tests.
//
// Every other step talks to the platform api only, so tests swap the
// rest client instead.
type Option struct {
	customize func(
		ctx context.Context,
		logger *log.Logger,
		client trest.TrellisClient,
		profile profiles.TrellisProfile,
		base ref.BaseImage,
		namespace string,
	) (string, error)
}

func WithCustomizer(
	customize func(
		ctx context.Context,
		logger *log.Logger,
		client trest.TrellisClient,
		profile profiles.TrellisProfile,
		base ref.BaseImage,
		namespace string,
	) (string, error),
) func(*Option) *Option {
	return func(o *Option) *Option {
		o.customize = customize
		return o
	}
}

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	option := utils.ApplyAll(
		&Option{customize: customize.Customize},
		options...,
	)

	return flarc.NewCommand(
		"run stage, customize, train, transform and fetch the result, in order.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_WORKFLOW_FILE, Required: true,
				Help: "yaml file describing the workflow. See description below.",
			},
		},
		common.NewTask(func(
			ctx context.Context,
			logger *log.Logger,
			e env.TrellisEnv,
			p profiles.TrellisProfile,
			client trest.TrellisClient,
			cl flarc.Commandline[struct{}],
			_ []any,
		) error {
			buf, err := os.ReadFile(cl.Args()[ARG_WORKFLOW_FILE][0])
			if err != nil {
				return fmt.Errorf("reading workflow file: %w", err)
			}

			wf := Workflow{}
			if err := yaml.Unmarshal(buf, &wf); err != nil {
				return fmt.Errorf("%w: workflow file is broken: %s", flarc.ErrUsage, err)
			}

			return Run(ctx, logger, client, p, e, *option, wf, cl.Stdout())
		}),
		flarc.WithDescription(`
Run the whole demo workflow described in WORKFLOW_FILE, step by step:

1. stage the dataset partitions from "source" into "work",
2. customize the base algorithm image and publish it,
3. train with the published image over the staged dataset,
4. run a batch transform over the test partition with the trained model,
5. download the prediction table and print it.

Example workflow file:

	source: s3://examples/datasets/abalone
	work: s3://my-bucket/demo
	baseImage: 123456789012.reg.ap-northeast-1.trellis.dev/algorithms/xgboost:1.2-2
	namespace: demo
	hyperparameters:
	    max_depth: "5"
	    num_round: "6"
	modelOutput: s3://my-bucket/demo/model
	resultOutput: s3://my-bucket/demo/result

"baseImageFile" may be given instead of "baseImage" to read the
reference from a file, and "handoffFile" records the resolved
reference for later steps outside this command.
`),
	)
}

// Run executes the workflow. It stops at the first failing step.
func Run(
	ctx context.Context,
	logger *log.Logger,
	client trest.TrellisClient,
	profile profiles.TrellisProfile,
	e env.TrellisEnv,
	op Option,
	wf Workflow,
	out io.Writer,
) error {
	source, err := apistorage.ParseURI(wf.Source)
	if err != nil {
		return fmt.Errorf("workflow source: %w", err)
	}
	work, err := apistorage.ParseURI(wf.Work)
	if err != nil {
		return fmt.Errorf("workflow work: %w", err)
	}
	modelOutput, err := apistorage.ParseURI(wf.ModelOutput)
	if err != nil {
		return fmt.Errorf("workflow modelOutput: %w", err)
	}
	resultOutput, err := apistorage.ParseURI(wf.ResultOutput)
	if err != nil {
		return fmt.Errorf("workflow resultOutput: %w", err)
	}

	var base ref.BaseImage
	if wf.BaseImage != "" {
		base, err = ref.Parse(wf.BaseImage)
	} else if wf.BaseImageFile != "" {
		base, err = ref.Load(wf.BaseImageFile)
	} else {
		err = fmt.Errorf("give baseImage or baseImageFile")
	}
	if err != nil {
		return fmt.Errorf("workflow base image: %w", err)
	}

	poll := 30 * time.Second
	if wf.Poll != "" {
		poll, err = time.ParseDuration(wf.Poll)
		if err != nil {
			return fmt.Errorf("workflow poll: %w", err)
		}
	}

	namespace := wf.Namespace
	if namespace == "" {
		namespace = e.Namespace
	}

	if err := stage.Stage(ctx, logger, client, source, work); err != nil {
		return err
	}

	if wf.HandoffFile != "" {
		if err := ref.Store(wf.HandoffFile, base); err != nil {
			return fmt.Errorf("writing handoff file %s: %w", wf.HandoffFile, err)
		}
	}

	image, err := op.customize(ctx, logger, client, profile, base, namespace)
	if err != nil {
		return err
	}

	resources := apijobs.Resources{}
	for k, v := range e.Resources {
		resources[k] = v
	}
	for k, v := range wf.Resources {
		resources[k] = v
	}

	hyperparameters := map[string]string{}
	for k, v := range e.Hyperparameters {
		hyperparameters[k] = v
	}
	for k, v := range wf.Hyperparameters {
		hyperparameters[k] = v
	}

	training, err := train.RunTraining(
		ctx, logger, client,
		apijobs.TrainingSpec{
			Image:           image,
			Hyperparameters: hyperparameters,
			Resources:       resources,
			Channels: []apijobs.Channel{
				{
					Name:        apistorage.PartitionTrain,
					Source:      work.Sub(apistorage.PartitionTrain),
					ContentType: "text/csv",
				},
				{
					Name:        apistorage.PartitionValidation,
					Source:      work.Sub(apistorage.PartitionValidation),
					ContentType: "text/csv",
				},
			},
			Output: modelOutput,
		},
		poll, true,
	)
	if err != nil {
		return err
	}

	tf, err := transform.RunTransform(
		ctx, logger, client,
		apijobs.TransformSpec{
			ModelArtifact: training.ModelArtifact,
			Resources:     resources,
			Input:         work.Sub(apistorage.PartitionTest),
			Output:        resultOutput,
		},
		poll, true,
	)
	if err != nil {
		return err
	}

	return client.GetTransformResultRaw(ctx, tf.TransformId, func(r io.Reader) error {
		table, err := results.Parse(r)
		if err != nil {
			return err
		}
		logger.Printf(
			"[OK] workflow is done: %d rows, %d attribution columns",
			len(table.Rows), table.Features(),
		)
		return table.Render(out)
	})
}
