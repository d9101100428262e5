package pull

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"
	"github.com/trellis-ml/trellis/cmd/trellis/config/profiles"
	"github.com/trellis-ml/trellis/cmd/trellis/env"
	trest "github.com/trellis-ml/trellis/cmd/trellis/rest"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/common"
	"github.com/trellis-ml/trellis/pkg/results"
	"github.com/youta-t/flarc"
)

const (
	ARG_TRANSFORM_ID = "TRANSFORM_ID"
	ARG_DEST         = "DEST"
)

const noBar pb.ProgressBarTemplate = `{{with string . "prefix"}}{{.}} {{end}}{{counters . }} {{with string . "suffix"}} {{.}}{{end}}`

type Option struct {
	progressOutput io.Writer
}

func WithProgressOutput(w io.Writer) func(*Option) *Option {
	return func(o *Option) *Option {
		o.progressOutput = w
		return o
	}
}

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	option := &Option{
		progressOutput: os.Stderr,
	}
	for _, opt := range options {
		option = opt(option)
	}

	return flarc.NewCommand(
		"download the output table of a batch transform.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_TRANSFORM_ID, Required: true,
				Help: "identifier of a settled transform job.",
			},
			{
				Name: ARG_DEST, Required: false,
				Help: `
file where the raw output table (csv) will be saved.
If omitted, the table is parsed and printed to stdout with aligned columns.
`,
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
			transformId := cl.Args()[ARG_TRANSFORM_ID][0]

			dest := ""
			if args := cl.Args()[ARG_DEST]; 0 < len(args) {
				dest = args[0]
			}

			if dest == "" {
				return client.GetTransformResultRaw(ctx, transformId, func(r io.Reader) error {
					table, err := results.Parse(r)
					if err != nil {
						return err
					}
					logger.Printf(
						"%d rows, %d attribution columns", len(table.Rows), table.Features(),
					)
					return table.Render(cl.Stdout())
				})
			}

			return client.GetTransformResultRaw(ctx, transformId, func(r io.Reader) error {
				if d := filepath.Dir(dest); d != "" {
					if err := os.MkdirAll(d, os.FileMode(0777)); err != nil {
						return err
					}
				}
				f, err := os.OpenFile(dest, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(0666))
				if err != nil {
					return err
				}
				defer f.Close()

				bar := noBar.New(-1)
				bar.SetWriter(option.progressOutput)
				bar.Set("prefix", fmt.Sprintf("Downloading to %s:", dest))
				bar.Start()
				w := bar.NewProxyWriter(f)
				defer w.Close()
				if _, err := io.Copy(w, r); err != nil {
					return err
				}
				return nil
			})
		}),
		flarc.WithDescription(`
Download the prediction table of a settled transform job.

Rows are comma separated with no header. Columns are the prediction,
the base (expected) value, and one attribution value per input feature.

Print the parsed table:

	{{ .Command }} transform-1

Save the raw csv:

	{{ .Command }} transform-1 ./output.csv
`),
	)
}
