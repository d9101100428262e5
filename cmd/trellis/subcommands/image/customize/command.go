package customize

import (
	"context"
	"fmt"
	"log"
	"strings"

	gcr "github.com/google/go-containerregistry/pkg/v1"
	"github.com/trellis-ml/trellis/cmd/trellis/config/profiles"
	"github.com/trellis-ml/trellis/cmd/trellis/env"
	trest "github.com/trellis-ml/trellis/cmd/trellis/rest"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/common"
	apireg "github.com/trellis-ml/trellis/pkg/api/types/registry"
	imgcustomize "github.com/trellis-ml/trellis/pkg/images/customize"
	"github.com/trellis-ml/trellis/pkg/images/ref"
	"github.com/trellis-ml/trellis/pkg/utils"
	"github.com/youta-t/flarc"
)

type Flags struct {
	FromFile  string `flag:"from-file" metavar:"PATH" help:"read the base image reference from this file instead of BASE_IMAGE"`
	Handoff   string `flag:"handoff" metavar:"PATH" help:"write the resolved base image reference to this file"`
	Namespace string `flag:"namespace" help:"repository namespace of the customized image (default: trellisenv namespace)"`
}

const ARG_BASE_IMAGE = "BASE_IMAGE"

// Option carries the registry-side operations, replaceable in tests.
type Option struct {
	pull    func(ctx context.Context, reference string, tok apireg.Token) (gcr.Image, error)
	locate  func(ctx context.Context, img gcr.Image, dirname string) (string, error)
	rebuild func(base gcr.Image, algorithmDir string) (gcr.Image, error)
	push    func(ctx context.Context, img gcr.Image, reference string, tok apireg.Token) error
}

func WithRegistryOps(
	pull func(ctx context.Context, reference string, tok apireg.Token) (gcr.Image, error),
	locate func(ctx context.Context, img gcr.Image, dirname string) (string, error),
	rebuild func(base gcr.Image, algorithmDir string) (gcr.Image, error),
	push func(ctx context.Context, img gcr.Image, reference string, tok apireg.Token) error,
) func(*Option) *Option {
	return func(o *Option) *Option {
		o.pull = pull
		o.locate = locate
		o.rebuild = rebuild
		o.push = push
		return o
	}
}

func defaultOption() *Option {
	return &Option{
		pull:    imgcustomize.Pull,
		locate:  imgcustomize.LocateAlgorithmDir,
		rebuild: imgcustomize.Rebuild,
		push:    imgcustomize.Push,
	}
}

// Customize runs the full procedure against live registries.
func Customize(
	ctx context.Context,
	logger *log.Logger,
	client trest.TrellisClient,
	profile profiles.TrellisProfile,
	base ref.BaseImage,
	namespace string,
) (string, error) {
	return RunCustomize(ctx, logger, client, profile, *defaultOption(), base, namespace)
}

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	option := utils.ApplyAll(defaultOption(), options...)

	return flarc.NewCommand(
		"pull a prebuilt algorithm image, rebuild it to emit attribution values, and publish it.",
		Flags{},
		flarc.Args{
			{
				Name: ARG_BASE_IMAGE, Required: false,
				Help: "base image reference, like 123456789012.reg.ap-northeast-1.trellis.dev/algorithms/xgboost:1.2-2",
			},
		},
		common.NewTask(func(
			ctx context.Context,
			logger *log.Logger,
			e env.TrellisEnv,
			p profiles.TrellisProfile,
			client trest.TrellisClient,
			cl flarc.Commandline[Flags],
			_ []any,
		) error {
			flags := cl.Flags()

			var base ref.BaseImage
			if args := cl.Args()[ARG_BASE_IMAGE]; 0 < len(args) {
				b, err := ref.Parse(args[0])
				if err != nil {
					return fmt.Errorf("%w: %s", flarc.ErrUsage, err)
				}
				base = b
			} else if flags.FromFile != "" {
				b, err := ref.Load(flags.FromFile)
				if err != nil {
					return fmt.Errorf("reading base image reference from %s: %w", flags.FromFile, err)
				}
				base = b
			} else {
				return fmt.Errorf(
					"%w: give %s or --from-file", flarc.ErrUsage, ARG_BASE_IMAGE,
				)
			}

			if flags.Handoff != "" {
				if err := ref.Store(flags.Handoff, base); err != nil {
					return fmt.Errorf("writing handoff file %s: %w", flags.Handoff, err)
				}
			}

			namespace := flags.Namespace
			if namespace == "" {
				namespace = e.Namespace
			}

			pushed, err := RunCustomize(ctx, logger, client, p, *option, base, namespace)
			if err != nil {
				return err
			}

			fmt.Fprintln(cl.Stdout(), pushed)
			return nil
		}),
		flarc.WithDescription(`
Customize a prebuilt algorithm image so that batch inference emits
per-feature attribution values next to each prediction.

The procedure:

1. obtain a short-lived credential for the source registry and pull the
   base image,
2. locate the algorithm's internal code directory inside the image
   filesystem (searched by the algorithm name),
3. rebuild the image with that directory path supplied as the build
   parameter,
4. ensure the destination repository exists in your private registry
   (it is created only when missing),
5. push the customized image as "<namespace>/<algorithm>-explain:<version>".

The pushed reference is printed to stdout.
`),
	)
}

// RunCustomize performs the customization against live registries.
func RunCustomize(
	ctx context.Context,
	logger *log.Logger,
	client trest.TrellisClient,
	profile profiles.TrellisProfile,
	op Option,
	base ref.BaseImage,
	namespace string,
) (string, error) {
	logger.Printf("base image: %s (algorithm=%s, version=%s)", base.Raw, base.Algorithm, base.Version)

	srcTok, err := client.GetRegistryToken(ctx, base.Registry)
	if err != nil {
		return "", fmt.Errorf("getting credential for %s: %w", base.Registry, err)
	}

	img, err := op.pull(ctx, base.Raw, srcTok)
	if err != nil {
		return "", fmt.Errorf("pulling %s: %w", base.Raw, err)
	}

	dir, err := op.locate(ctx, img, base.Algorithm)
	if err != nil {
		return "", err
	}
	logger.Printf("algorithm code directory: %s", dir)

	derived, err := op.rebuild(img, dir)
	if err != nil {
		return "", fmt.Errorf("rebuilding image: %w", err)
	}

	repoName := base.CustomRepository(namespace)
	repo, err := client.EnsureRepository(ctx, repoName)
	if err != nil {
		return "", fmt.Errorf("ensuring repository %s: %w", repoName, err)
	}

	dstRef := repo.URI + ":" + base.Version
	if repo.URI == "" {
		dstRef = base.CustomReference(profile.Account, profile.Region, namespace)
	}

	dstHost, _, _ := strings.Cut(dstRef, "/")
	dstTok, err := client.GetRegistryToken(ctx, dstHost)
	if err != nil {
		return "", fmt.Errorf("getting credential for %s: %w", dstHost, err)
	}

	if err := op.push(ctx, derived, dstRef, dstTok); err != nil {
		return "", fmt.Errorf("pushing %s: %w", dstRef, err)
	}

	logger.Printf("[OK] customized image is published: %s", dstRef)
	return dstRef, nil
}
