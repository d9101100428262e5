package stage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/trellis-ml/trellis/cmd/trellis/rest/mock"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/data/stage"
	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/logger"
	apistorage "github.com/trellis-ml/trellis/pkg/api/types/storage"
	"github.com/trellis-ml/trellis/pkg/cmp"
)

func TestStage(t *testing.T) {
	source := apistorage.Location{Bucket: "examples", Prefix: "datasets/abalone"}
	work := apistorage.Location{Bucket: "my-bucket", Prefix: "demo"}

	t.Run("all partitions are copied, one by one, in order", func(t *testing.T) {
		client := mock.New(t)
		client.Impl.CopyObject = func(ctx context.Context, src, dst apistorage.Object) error {
			return nil
		}

		if err := stage.Stage(context.Background(), logger.Null(), client, source, work); err != nil {
			t.Fatal(err)
		}

		want := []mock.CopyObjectArgs{
			{
				Src: apistorage.Object{Bucket: "examples", Key: "datasets/abalone/train/train.csv"},
				Dst: apistorage.Object{Bucket: "my-bucket", Key: "demo/train/train.csv"},
			},
			{
				Src: apistorage.Object{Bucket: "examples", Key: "datasets/abalone/test/test.csv"},
				Dst: apistorage.Object{Bucket: "my-bucket", Key: "demo/test/test.csv"},
			},
			{
				Src: apistorage.Object{Bucket: "examples", Key: "datasets/abalone/validation/validation.csv"},
				Dst: apistorage.Object{Bucket: "my-bucket", Key: "demo/validation/validation.csv"},
			},
		}
		if !cmp.SliceEqWith(
			client.Calls.CopyObject, want,
			func(a, b mock.CopyObjectArgs) bool {
				return a.Src.Equal(b.Src) && a.Dst.Equal(b.Dst)
			},
		) {
			t.Errorf("expected: %+v, actual: %+v", want, client.Calls.CopyObject)
		}
	})

	t.Run("copying stops at the first failure", func(t *testing.T) {
		wantErr := errors.New("fake error")

		client := mock.New(t)
		client.Impl.CopyObject = func(ctx context.Context, src, dst apistorage.Object) error {
			if 2 <= len(client.Calls.CopyObject) {
				return wantErr
			}
			return nil
		}

		err := stage.Stage(context.Background(), logger.Null(), client, source, work)
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected %v, actual: %v", wantErr, err)
		}
		if len(client.Calls.CopyObject) != 2 {
			t.Errorf("expected 2 copy attempts, actual: %d", len(client.Calls.CopyObject))
		}
	})
}
