package common_test

import (
	"testing"

	"github.com/trellis-ml/trellis/cmd/trellis/subcommands/common"
	"github.com/trellis-ml/trellis/pkg/api/types/jobs"
	kflag "github.com/trellis-ml/trellis/pkg/commandline/flag"
	"github.com/trellis-ml/trellis/pkg/cmp"
	"k8s.io/apimachinery/pkg/api/resource"
)

func params(t *testing.T, kvs ...string) kflag.Params {
	t.Helper()
	ps := kflag.Params{}
	for _, kv := range kvs {
		if err := ps.Set(kv); err != nil {
			t.Fatal(err)
		}
	}
	return ps
}

func TestParseResources(t *testing.T) {
	t.Run("flag values are parsed as quantities and layered over defaults", func(t *testing.T) {
		defaults := jobs.Resources{
			"cpu":    resource.MustParse("1"),
			"memory": resource.MustParse("4Gi"),
		}

		actual, err := common.ParseResources(defaults, params(t, "cpu=4", "gpu=1"))
		if err != nil {
			t.Fatal(err)
		}

		want := jobs.Resources{
			"cpu":    resource.MustParse("4"),
			"memory": resource.MustParse("4Gi"),
			"gpu":    resource.MustParse("1"),
		}
		if !actual.Equal(want) {
			t.Errorf("expected: %v, actual: %v", want, actual)
		}
	})

	t.Run("defaults are not modified", func(t *testing.T) {
		defaults := jobs.Resources{"cpu": resource.MustParse("1")}

		if _, err := common.ParseResources(defaults, params(t, "cpu=4")); err != nil {
			t.Fatal(err)
		}

		if q := defaults["cpu"]; !q.Equal(resource.MustParse("1")) {
			t.Errorf("defaults are modified: %v", defaults)
		}
	})

	t.Run("a value that is not a quantity is an error", func(t *testing.T) {
		if _, err := common.ParseResources(nil, params(t, "cpu=four")); err == nil {
			t.Error("expected error, but no error")
		}
	})
}

func TestMergeParams(t *testing.T) {
	t.Run("flag values win over defaults", func(t *testing.T) {
		actual := common.MergeParams(
			map[string]string{"eta": "0.1", "max_depth": "5"},
			params(t, "eta=0.2", "num_round=6"),
		)

		want := map[string]string{"eta": "0.2", "max_depth": "5", "num_round": "6"}
		if !cmp.MapEq(actual, want) {
			t.Errorf("expected: %v, actual: %v", want, actual)
		}
	})

	t.Run("nil defaults merge to just the flags", func(t *testing.T) {
		actual := common.MergeParams(nil, params(t, "eta=0.2"))
		if !cmp.MapEq(actual, map[string]string{"eta": "0.2"}) {
			t.Errorf("unexpected: %v", actual)
		}
	})
}
