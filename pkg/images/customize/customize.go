package customize

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	gcrname "github.com/google/go-containerregistry/pkg/name"
	gcr "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	apireg "github.com/trellis-ml/trellis/pkg/api/types/registry"
	"github.com/trellis-ml/trellis/pkg/images/scan"
)

// Env vars read by the platform's training/serving stack.
//
// EnvAlgorithmDir points the directory holding the algorithm's internal
// train/serve code, found inside the base image. EnvEmitAttributions turns
// on per-feature attribution output in batch inference.
const (
	EnvAlgorithmDir     = "TRELLIS_ALGORITHM_DIR"
	EnvEmitAttributions = "TRELLIS_EMIT_ATTRIBUTIONS"
)

// Pull fetches an image from a registry with a short-lived credential.
func Pull(ctx context.Context, reference string, tok apireg.Token) (gcr.Image, error) {
	r, err := gcrname.ParseReference(reference)
	if err != nil {
		return nil, err
	}
	return remote.Image(
		r,
		remote.WithContext(ctx),
		remote.WithAuth(&authn.Basic{Username: tok.Username, Password: tok.Password}),
	)
}

// LocateAlgorithmDir flattens the image filesystem and finds the directory
// named dirname.
//
// The original workflow ran the container and searched its filesystem from
// inside. Scanning the exported layers gives the same answer without needing
// a container runtime on this host.
func LocateAlgorithmDir(ctx context.Context, img gcr.Image, dirname string) (string, error) {
	rc := mutate.Extract(img)
	defer rc.Close()

	found, err := scan.FindDir(ctx, rc, dirname)
	if err != nil {
		return "", fmt.Errorf("searching %s in image filesystem: %w", dirname, err)
	}
	return found, nil
}

// Rebuild derives a new image from base: the algorithm dir path is supplied
// as the build parameter, and attribution output is switched on.
func Rebuild(base gcr.Image, algorithmDir string) (gcr.Image, error) {
	cf, err := base.ConfigFile()
	if err != nil {
		return nil, err
	}

	cfg := cf.Config.DeepCopy()
	cfg.Env = setEnv(cfg.Env, EnvAlgorithmDir, algorithmDir)
	cfg.Env = setEnv(cfg.Env, EnvEmitAttributions, "1")

	return mutate.Config(base, *cfg)
}

// Push publishes the image to reference with a short-lived credential.
func Push(ctx context.Context, img gcr.Image, reference string, tok apireg.Token) error {
	r, err := gcrname.ParseReference(reference)
	if err != nil {
		return err
	}
	return remote.Write(
		r, img,
		remote.WithContext(ctx),
		remote.WithAuth(&authn.Basic{Username: tok.Username, Password: tok.Password}),
	)
}

// setEnv sets key=value in a docker-style env list, replacing an existing
// entry for key if any.
func setEnv(env []string, key, value string) []string {
	entry := key + "=" + value
	for nth, e := range env {
		if strings.HasPrefix(e, key+"=") {
			ret := make([]string, len(env))
			copy(ret, env)
			ret[nth] = entry
			return ret
		}
	}
	return append(append([]string{}, env...), entry)
}
