package mock

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/trellis-ml/trellis/cmd/trellis/rest"
	apijobs "github.com/trellis-ml/trellis/pkg/api/types/jobs"
	apireg "github.com/trellis-ml/trellis/pkg/api/types/registry"
	apistorage "github.com/trellis-ml/trellis/pkg/api/types/storage"
)

type CopyObjectArgs struct {
	Src apistorage.Object
	Dst apistorage.Object
}

type PutObjectArgs struct {
	Obj apistorage.Object
}

type WaitArgs struct {
	JobId    string
	Interval time.Duration
}

func New(t *testing.T) *mockTrellisClient {
	return &mockTrellisClient{t: t}
}

type mockTrellisClient struct {
	t    *testing.T
	Impl struct {
		CopyObject            func(ctx context.Context, src, dst apistorage.Object) error
		PutObject             func(ctx context.Context, obj apistorage.Object, source io.Reader) error
		GetObjectRaw          func(ctx context.Context, obj apistorage.Object, handler func(io.Reader) error) error
		GetRegistryToken      func(ctx context.Context, registryHost string) (apireg.Token, error)
		GetRepository         func(ctx context.Context, name string) (apireg.Repository, error)
		CreateRepository      func(ctx context.Context, name string) (apireg.Repository, error)
		EnsureRepository      func(ctx context.Context, name string) (apireg.Repository, error)
		SubmitTraining        func(ctx context.Context, spec apijobs.TrainingSpec) (apijobs.TrainingDetail, error)
		GetTraining           func(ctx context.Context, trainingId string) (apijobs.TrainingDetail, error)
		WaitTraining          func(ctx context.Context, trainingId string, interval time.Duration) (apijobs.TrainingDetail, error)
		SubmitTransform       func(ctx context.Context, spec apijobs.TransformSpec) (apijobs.TransformDetail, error)
		GetTransform          func(ctx context.Context, transformId string) (apijobs.TransformDetail, error)
		WaitTransform         func(ctx context.Context, transformId string, interval time.Duration) (apijobs.TransformDetail, error)
		GetTransformResultRaw func(ctx context.Context, transformId string, handler func(io.Reader) error) error
	}
	Calls struct {
		CopyObject            []CopyObjectArgs
		PutObject             []PutObjectArgs
		GetObjectRaw          []apistorage.Object
		GetRegistryToken      []string
		GetRepository         []string
		CreateRepository      []string
		EnsureRepository      []string
		SubmitTraining        []apijobs.TrainingSpec
		GetTraining           []string
		WaitTraining          []WaitArgs
		SubmitTransform       []apijobs.TransformSpec
		GetTransform          []string
		WaitTransform         []WaitArgs
		GetTransformResultRaw []string
	}
}

var _ rest.TrellisClient = &mockTrellisClient{}

func (m *mockTrellisClient) CopyObject(ctx context.Context, src, dst apistorage.Object) error {
	m.t.Helper()

	m.Calls.CopyObject = append(m.Calls.CopyObject, CopyObjectArgs{Src: src, Dst: dst})
	if m.Impl.CopyObject == nil {
		m.t.Fatal("CopyObject is not ready to be called")
	}
	return m.Impl.CopyObject(ctx, src, dst)
}

func (m *mockTrellisClient) PutObject(ctx context.Context, obj apistorage.Object, source io.Reader) error {
	m.t.Helper()

	m.Calls.PutObject = append(m.Calls.PutObject, PutObjectArgs{Obj: obj})
	if m.Impl.PutObject == nil {
		m.t.Fatal("PutObject is not ready to be called")
	}
	return m.Impl.PutObject(ctx, obj, source)
}

func (m *mockTrellisClient) GetObjectRaw(ctx context.Context, obj apistorage.Object, handler func(io.Reader) error) error {
	m.t.Helper()

	m.Calls.GetObjectRaw = append(m.Calls.GetObjectRaw, obj)
	if m.Impl.GetObjectRaw == nil {
		m.t.Fatal("GetObjectRaw is not ready to be called")
	}
	return m.Impl.GetObjectRaw(ctx, obj, handler)
}

func (m *mockTrellisClient) GetRegistryToken(ctx context.Context, registryHost string) (apireg.Token, error) {
	m.t.Helper()

	m.Calls.GetRegistryToken = append(m.Calls.GetRegistryToken, registryHost)
	if m.Impl.GetRegistryToken == nil {
		m.t.Fatal("GetRegistryToken is not ready to be called")
	}
	return m.Impl.GetRegistryToken(ctx, registryHost)
}

func (m *mockTrellisClient) GetRepository(ctx context.Context, name string) (apireg.Repository, error) {
	m.t.Helper()

	m.Calls.GetRepository = append(m.Calls.GetRepository, name)
	if m.Impl.GetRepository == nil {
		m.t.Fatal("GetRepository is not ready to be called")
	}
	return m.Impl.GetRepository(ctx, name)
}

func (m *mockTrellisClient) CreateRepository(ctx context.Context, name string) (apireg.Repository, error) {
	m.t.Helper()

	m.Calls.CreateRepository = append(m.Calls.CreateRepository, name)
	if m.Impl.CreateRepository == nil {
		m.t.Fatal("CreateRepository is not ready to be called")
	}
	return m.Impl.CreateRepository(ctx, name)
}

func (m *mockTrellisClient) EnsureRepository(ctx context.Context, name string) (apireg.Repository, error) {
	m.t.Helper()

	m.Calls.EnsureRepository = append(m.Calls.EnsureRepository, name)
	if m.Impl.EnsureRepository == nil {
		m.t.Fatal("EnsureRepository is not ready to be called")
	}
	return m.Impl.EnsureRepository(ctx, name)
}

func (m *mockTrellisClient) SubmitTraining(ctx context.Context, spec apijobs.TrainingSpec) (apijobs.TrainingDetail, error) {
	m.t.Helper()

	m.Calls.SubmitTraining = append(m.Calls.SubmitTraining, spec)
	if m.Impl.SubmitTraining == nil {
		m.t.Fatal("SubmitTraining is not ready to be called")
	}
	return m.Impl.SubmitTraining(ctx, spec)
}

func (m *mockTrellisClient) GetTraining(ctx context.Context, trainingId string) (apijobs.TrainingDetail, error) {
	m.t.Helper()

	m.Calls.GetTraining = append(m.Calls.GetTraining, trainingId)
	if m.Impl.GetTraining == nil {
		m.t.Fatal("GetTraining is not ready to be called")
	}
	return m.Impl.GetTraining(ctx, trainingId)
}

func (m *mockTrellisClient) WaitTraining(ctx context.Context, trainingId string, interval time.Duration) (apijobs.TrainingDetail, error) {
	m.t.Helper()

	m.Calls.WaitTraining = append(m.Calls.WaitTraining, WaitArgs{JobId: trainingId, Interval: interval})
	if m.Impl.WaitTraining == nil {
		m.t.Fatal("WaitTraining is not ready to be called")
	}
	return m.Impl.WaitTraining(ctx, trainingId, interval)
}

func (m *mockTrellisClient) SubmitTransform(ctx context.Context, spec apijobs.TransformSpec) (apijobs.TransformDetail, error) {
	m.t.Helper()

	m.Calls.SubmitTransform = append(m.Calls.SubmitTransform, spec)
	if m.Impl.SubmitTransform == nil {
		m.t.Fatal("SubmitTransform is not ready to be called")
	}
	return m.Impl.SubmitTransform(ctx, spec)
}

func (m *mockTrellisClient) GetTransform(ctx context.Context, transformId string) (apijobs.TransformDetail, error) {
	m.t.Helper()

	m.Calls.GetTransform = append(m.Calls.GetTransform, transformId)
	if m.Impl.GetTransform == nil {
		m.t.Fatal("GetTransform is not ready to be called")
	}
	return m.Impl.GetTransform(ctx, transformId)
}

func (m *mockTrellisClient) WaitTransform(ctx context.Context, transformId string, interval time.Duration) (apijobs.TransformDetail, error) {
	m.t.Helper()

	m.Calls.WaitTransform = append(m.Calls.WaitTransform, WaitArgs{JobId: transformId, Interval: interval})
	if m.Impl.WaitTransform == nil {
		m.t.Fatal("WaitTransform is not ready to be called")
	}
	return m.Impl.WaitTransform(ctx, transformId, interval)
}

func (m *mockTrellisClient) GetTransformResultRaw(ctx context.Context, transformId string, handler func(io.Reader) error) error {
	m.t.Helper()

	m.Calls.GetTransformResultRaw = append(m.Calls.GetTransformResultRaw, transformId)
	if m.Impl.GetTransformResultRaw == nil {
		m.t.Fatal("GetTransformResultRaw is not ready to be called")
	}
	return m.Impl.GetTransformResultRaw(ctx, transformId, handler)
}
