package customize_test

import (
	"context"
	"errors"
	"testing"

	gcr "github.com/google/go-containerregistry/pkg/v1"
	gcrrand "github.com/google/go-containerregistry/pkg/v1/random"
	"github.com/trellis-ml/trellis/cmd/trellis/config/profiles"
	"github.com/trellis-ml/trellis/cmd/trellis/rest/mock"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/image/customize"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/logger"
	apireg "github.com/trellis-ml/trellis/pkg/api/types/registry"
	"github.com/trellis-ml/trellis/pkg/cmp"
	"github.com/trellis-ml/trellis/pkg/images/ref"
	"github.com/trellis-ml/trellis/pkg/utils/try"
)

func TestRunCustomize(t *testing.T) {
	profile := profiles.TrellisProfile{
		ApiRoot: "https://api.trellis.invalid",
		Account: "123456789012",
		Region:  "ap-northeast-1",
	}
	base := try.To(ref.Parse(
		"123456789012.reg.ap-northeast-1.trellis.dev/algorithms/xgboost:1.2-2",
	)).OrFatal(t)

	type fakeOps struct {
		pulled    []string
		located   []string
		rebuilt   []string
		pushed    []string
		locateErr error
	}

	newOps := func(t *testing.T, f *fakeOps) func(*customize.Option) *customize.Option {
		img := try.To(gcrrand.Image(64, 1)).OrFatal(t)
		return customize.WithRegistryOps(
			func(ctx context.Context, reference string, tok apireg.Token) (gcr.Image, error) {
				f.pulled = append(f.pulled, reference)
				return img, nil
			},
			func(ctx context.Context, i gcr.Image, dirname string) (string, error) {
				f.located = append(f.located, dirname)
				if f.locateErr != nil {
					return "", f.locateErr
				}
				return "/opt/ml/code/" + dirname, nil
			},
			func(b gcr.Image, algorithmDir string) (gcr.Image, error) {
				f.rebuilt = append(f.rebuilt, algorithmDir)
				return b, nil
			},
			func(ctx context.Context, i gcr.Image, reference string, tok apireg.Token) error {
				f.pushed = append(f.pushed, reference)
				return nil
			},
		)
	}

	extractOption := func(t *testing.T, opts ...func(*customize.Option) *customize.Option) customize.Option {
		t.Helper()
		o := &customize.Option{}
		for _, opt := range opts {
			o = opt(o)
		}
		return *o
	}

	t.Run("the image is pulled, rebuilt and pushed to the ensured repository", func(t *testing.T) {
		client := mock.New(t)
		client.Impl.GetRegistryToken = func(ctx context.Context, registryHost string) (apireg.Token, error) {
			return apireg.Token{Username: "user", Password: "pass", Registry: registryHost}, nil
		}
		client.Impl.EnsureRepository = func(ctx context.Context, name string) (apireg.Repository, error) {
			return apireg.Repository{
				Name: name,
				URI:  "123456789012.reg.ap-northeast-1.trellis.dev/" + name,
			}, nil
		}

		f := &fakeOps{}
		pushed, err := customize.RunCustomize(
			context.Background(), logger.Null(), client, profile,
			extractOption(t, newOps(t, f)), base, "demo",
		)
		if err != nil {
			t.Fatal(err)
		}

		want := "123456789012.reg.ap-northeast-1.trellis.dev/demo/xgboost-explain:1.2-2"
		if pushed != want {
			t.Errorf("expected: %s, actual: %s", want, pushed)
		}

		if !cmp.SliceEq(f.pulled, []string{base.Raw}) {
			t.Errorf("unexpected pulls: %v", f.pulled)
		}
		if !cmp.SliceEq(f.located, []string{"xgboost"}) {
			t.Errorf("unexpected locates: %v", f.located)
		}
		if !cmp.SliceEq(f.rebuilt, []string{"/opt/ml/code/xgboost"}) {
			t.Errorf("unexpected rebuilds: %v", f.rebuilt)
		}
		if !cmp.SliceEq(f.pushed, []string{want}) {
			t.Errorf("unexpected pushes: %v", f.pushed)
		}

		if !cmp.SliceEq(client.Calls.EnsureRepository, []string{"demo/xgboost-explain"}) {
			t.Errorf("unexpected repositories: %v", client.Calls.EnsureRepository)
		}
		if !cmp.SliceEq(client.Calls.GetRegistryToken, []string{
			"123456789012.reg.ap-northeast-1.trellis.dev",
			"123456789012.reg.ap-northeast-1.trellis.dev",
		}) {
			t.Errorf("unexpected token requests: %v", client.Calls.GetRegistryToken)
		}
	})

	t.Run("when the repository answer has no URI, the reference is derived from the profile", func(t *testing.T) {
		client := mock.New(t)
		client.Impl.GetRegistryToken = func(ctx context.Context, registryHost string) (apireg.Token, error) {
			return apireg.Token{}, nil
		}
		client.Impl.EnsureRepository = func(ctx context.Context, name string) (apireg.Repository, error) {
			return apireg.Repository{Name: name}, nil
		}

		f := &fakeOps{}
		pushed, err := customize.RunCustomize(
			context.Background(), logger.Null(), client, profile,
			extractOption(t, newOps(t, f)), base, "demo",
		)
		if err != nil {
			t.Fatal(err)
		}

		want := "123456789012.reg.ap-northeast-1.trellis.dev/demo/xgboost-explain:1.2-2"
		if pushed != want {
			t.Errorf("expected: %s, actual: %s", want, pushed)
		}
	})

	t.Run("when the algorithm directory is not found, nothing is pushed", func(t *testing.T) {
		client := mock.New(t)
		client.Impl.GetRegistryToken = func(ctx context.Context, registryHost string) (apireg.Token, error) {
			return apireg.Token{}, nil
		}

		wantErr := errors.New("fake error")
		f := &fakeOps{locateErr: wantErr}
		_, err := customize.RunCustomize(
			context.Background(), logger.Null(), client, profile,
			extractOption(t, newOps(t, f)), base, "demo",
		)
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected %v, actual: %v", wantErr, err)
		}

		if len(f.pushed) != 0 {
			t.Errorf("push should not happen: %v", f.pushed)
		}
		if len(client.Calls.EnsureRepository) != 0 {
			t.Errorf("repository should not be touched: %v", client.Calls.EnsureRepository)
		}
	})
}
