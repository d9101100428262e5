package env_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/trellis-ml/trellis/cmd/trellis/env"
	"github.com/trellis-ml/trellis/pkg/cmp"
	"k8s.io/apimachinery/pkg/api/resource"
)

func TestLoadTrellisEnv(t *testing.T) {
	t.Run("when the file exists, defaults are read from it", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "trellisenv")
		content := `
namespace: demo
hyperparameters:
    max_depth: "5"
    eta: "0.2"
resources:
    cpu: "4"
    memory: 16Gi
`
		if err := os.WriteFile(file, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		e, err := env.LoadTrellisEnv(file)
		if err != nil {
			t.Fatal(err)
		}

		if e.Namespace != "demo" {
			t.Errorf("unexpected namespace: %s", e.Namespace)
		}
		if !cmp.MapEq(e.Hyperparameters, map[string]string{"max_depth": "5", "eta": "0.2"}) {
			t.Errorf("unexpected hyperparameters: %v", e.Hyperparameters)
		}

		cpu := resource.MustParse("4")
		memory := resource.MustParse("16Gi")
		if q, ok := e.Resources["cpu"]; !ok || !q.Equal(cpu) {
			t.Errorf("unexpected cpu: %v", e.Resources)
		}
		if q, ok := e.Resources["memory"]; !ok || !q.Equal(memory) {
			t.Errorf("unexpected memory: %v", e.Resources)
		}
	})

	t.Run("when the file is missing, defaults are empty and it is not an error", func(t *testing.T) {
		e, err := env.LoadTrellisEnv(filepath.Join(t.TempDir(), "no-such-file"))
		if err != nil {
			t.Fatal(err)
		}
		if e.Namespace != "" || len(e.Hyperparameters) != 0 || len(e.Resources) != 0 {
			t.Errorf("expected empty env, actual: %+v", e)
		}
	})

	t.Run("when the file is broken yaml, it is an error", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "trellisenv")
		if err := os.WriteFile(file, []byte(":\tbroken"), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := env.LoadTrellisEnv(file); err == nil {
			t.Error("expected error, but no error")
		}
	})
}
