package customize_test

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	gcrrand "github.com/google/go-containerregistry/pkg/v1/random"
	gcrtarball "github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/trellis-ml/trellis/pkg/images/customize"
	"github.com/trellis-ml/trellis/pkg/images/scan"
	"github.com/trellis-ml/trellis/pkg/utils/try"
)

func layerWithDirs(t *testing.T, dirs []string) *bytes.Buffer {
	t.Helper()

	buf := bytes.NewBuffer(nil)
	tw := tar.NewWriter(buf)
	for _, d := range dirs {
		if err := tw.WriteHeader(&tar.Header{
			Name: d, Typeflag: tar.TypeDir, Mode: 0755,
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestLocateAlgorithmDir(t *testing.T) {
	ctx := context.Background()

	t.Run("when the image filesystem holds the directory, its path is found", func(t *testing.T) {
		content := layerWithDirs(t, []string{
			"opt/", "opt/ml/", "opt/ml/code/", "opt/ml/code/xgboost/",
		}).Bytes()
		layer := try.To(gcrtarball.LayerFromOpener(func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		})).OrFatal(t)
		img := try.To(mutate.AppendLayers(empty.Image, layer)).OrFatal(t)

		dir, err := customize.LocateAlgorithmDir(ctx, img, "xgboost")
		if err != nil {
			t.Fatal(err)
		}
		if dir != "/opt/ml/code/xgboost" {
			t.Errorf("unexpected dir: %s", dir)
		}
	})

	t.Run("when no directory has the name, it should error", func(t *testing.T) {
		img := try.To(gcrrand.Image(64, 1)).OrFatal(t)

		if _, err := customize.LocateAlgorithmDir(ctx, img, "no-such-algorithm"); !errors.Is(err, scan.ErrDirNotFound) {
			t.Errorf("expected ErrDirNotFound, actual: %v", err)
		}
	})
}

func TestRebuild(t *testing.T) {
	t.Run("the derived image carries the algorithm dir and the attribution switch", func(t *testing.T) {
		base := try.To(gcrrand.Image(64, 1)).OrFatal(t)

		derived := try.To(customize.Rebuild(base, "/opt/ml/code/xgboost")).OrFatal(t)

		cf := try.To(derived.ConfigFile()).OrFatal(t)
		env := map[string]bool{}
		for _, e := range cf.Config.Env {
			env[e] = true
		}
		if !env[customize.EnvAlgorithmDir+"=/opt/ml/code/xgboost"] {
			t.Errorf("algorithm dir is not set: %v", cf.Config.Env)
		}
		if !env[customize.EnvEmitAttributions+"=1"] {
			t.Errorf("attribution switch is not set: %v", cf.Config.Env)
		}
	})

	t.Run("rebuilding twice replaces the env entries instead of duplicating them", func(t *testing.T) {
		base := try.To(gcrrand.Image(64, 1)).OrFatal(t)

		once := try.To(customize.Rebuild(base, "/opt/first")).OrFatal(t)
		twice := try.To(customize.Rebuild(once, "/opt/second")).OrFatal(t)

		cf := try.To(twice.ConfigFile()).OrFatal(t)
		hits := 0
		for _, e := range cf.Config.Env {
			switch e {
			case customize.EnvAlgorithmDir + "=/opt/second":
				hits += 1
			case customize.EnvAlgorithmDir + "=/opt/first":
				t.Errorf("stale entry is left: %v", cf.Config.Env)
			}
		}
		if hits != 1 {
			t.Errorf("algorithm dir should be set exactly once: %v", cf.Config.Env)
		}
	})

	t.Run("the base image layers are kept", func(t *testing.T) {
		base := try.To(gcrrand.Image(64, 2)).OrFatal(t)

		derived := try.To(customize.Rebuild(base, "/opt/ml/code/xgboost")).OrFatal(t)

		baseLayers := try.To(base.Layers()).OrFatal(t)
		derivedLayers := try.To(derived.Layers()).OrFatal(t)
		if len(baseLayers) != len(derivedLayers) {
			t.Fatalf("layer count changed: %d -> %d", len(baseLayers), len(derivedLayers))
		}
		for nth := range baseLayers {
			bd := try.To(baseLayers[nth].Digest()).OrFatal(t)
			dd := try.To(derivedLayers[nth].Digest()).OrFatal(t)
			if bd != dd {
				t.Errorf("layer %d changed: %s -> %s", nth, bd, dd)
			}
		}
	})
}
