package rest_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apijobs "github.com/trellis-ml/trellis/pkg/api/types/jobs"
	apistorage "github.com/trellis-ml/trellis/pkg/api/types/storage"
	"github.com/trellis-ml/trellis/pkg/utils/try"
)

func TestSubmitTransform(t *testing.T) {
	t.Run("the spec is posted as is and the created job is returned", func(t *testing.T) {
		spec := apijobs.TransformSpec{
			ModelArtifact: "s3://my-bucket/demo/model/model.tar.gz",
			Input:         apistorage.Location{Bucket: "my-bucket", Prefix: "demo/test"},
			Output:        apistorage.Location{Bucket: "my-bucket", Prefix: "demo/result"},
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/transforms" {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}

			received := apijobs.TransformSpec{}
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Errorf("request body is broken: %s", err)
			}
			if !received.Equal(spec) {
				t.Errorf("expected: %+v, actual: %+v", spec, received)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(apijobs.TransformDetail{
				TransformId: "transform-1",
				Spec:        received,
				Status:      apijobs.Submitted,
			})
		}))
		defer server.Close()

		client := newClient(t, server)
		detail := try.To(client.SubmitTransform(context.Background(), spec)).OrFatal(t)

		if detail.TransformId != "transform-1" {
			t.Errorf("unexpected transformId: %s", detail.TransformId)
		}
	})
}

func TestWaitTransform(t *testing.T) {
	t.Run("polling continues until the job settles", func(t *testing.T) {
		polled := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			polled += 1
			status := apijobs.Running
			if 3 <= polled {
				status = apijobs.Completed
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(apijobs.TransformDetail{
				TransformId: "transform-1",
				Status:      status,
			})
		}))
		defer server.Close()

		client := newClient(t, server)
		detail := try.To(client.WaitTransform(
			context.Background(), "transform-1", 1*time.Millisecond,
		)).OrFatal(t)

		if polled != 3 {
			t.Errorf("expected 3 polls, actual: %d", polled)
		}
		if detail.Status != apijobs.Completed {
			t.Errorf("unexpected status: %s", detail.Status)
		}
	})
}

func TestGetTransformResultRaw(t *testing.T) {
	t.Run("the result stream is handed to the handler", func(t *testing.T) {
		content := "9.5,10.2,-0.3\n8.1,10.2,-1.5\n"
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/transforms/transform-1/result" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "text/csv")
			io.WriteString(w, content)
		}))
		defer server.Close()

		client := newClient(t, server)

		received := ""
		err := client.GetTransformResultRaw(
			context.Background(), "transform-1",
			func(r io.Reader) error {
				buf, err := io.ReadAll(r)
				received = string(buf)
				return err
			},
		)
		if err != nil {
			t.Fatal(err)
		}
		if received != content {
			t.Errorf("expected: %q, actual: %q", content, received)
		}
	})

	t.Run("when the result is not found, the handler is never called", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := newClient(t, server)

		called := false
		err := client.GetTransformResultRaw(
			context.Background(), "transform-1",
			func(io.Reader) error {
				called = true
				return nil
			},
		)
		if err == nil {
			t.Error("expected error, but no error")
		}
		if called {
			t.Error("handler should not be called")
		}
	})
}
