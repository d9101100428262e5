package init

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	prof "github.com/trellis-ml/trellis/cmd/trellis/config/profiles"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/common"
	"github.com/youta-t/flarc"
	"gopkg.in/yaml.v3"
)

const ARG_PROFILE_FILE = "PROFILE_FILE"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"initialize this directory as a trellis-powered project.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_PROFILE_FILE, Required: true,
				Help: "filepath to a trellis profile file, which you received from your admin.",
			},
		},
		common.NewTaskWithCommonFlag(Task),
		flarc.WithDescription(`
Register a new trellis profile into your profile store.

A "trellis profile" is a file which contains information about a Trellis
platform tenancy: the API endpoint and the account/region naming your
private registry. "{{ .Command }}" registers the given profile file into
your profile store.

The name of the profile is given by "--profile" ( default: current filepath ).
`),
	)
}

func Task(
	ctx context.Context,
	logger *log.Logger,
	cf common.CommonFlags,
	cl flarc.Commandline[struct{}],
	_ []any,
) error {
	profFile := cl.Args()[ARG_PROFILE_FILE][0]

	profStore, err := prof.LoadProfileStore(cf.ProfileStore)
	if errors.Is(err, prof.ErrProfileStoreNotFound) {
		// ok.
		profStore = prof.ProfileStore{}
	} else if err != nil {
		return fmt.Errorf(
			"failed to load profile store (%s): %w", cf.ProfileStore, err,
		)
	}

	newProf := new(prof.TrellisProfile)
	{
		content, err := os.ReadFile(profFile)
		if err != nil {
			return fmt.Errorf("failed to read profile file (%s): %w", profFile, err)
		}

		if err := yaml.Unmarshal(content, newProf); err != nil {
			return fmt.Errorf("failed to parse profile file (%s): %w", profFile, err)
		}
	}
	if err := newProf.Verify(); err != nil {
		return fmt.Errorf("%s: %w", profFile, err)
	}

	profName := cf.Profile
	profStore[profName] = newProf
	if err := profStore.Save(cf.ProfileStore); err != nil {
		return fmt.Errorf(
			"failed to save profile store (%s): %w", cf.ProfileStore, err,
		)
	}

	logger.Printf("profile '%s' is registered in %s", profName, cf.ProfileStore)
	return nil
}
