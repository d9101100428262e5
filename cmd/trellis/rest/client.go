package rest

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tprof "github.com/trellis-ml/trellis/cmd/trellis/config/profiles"
	apijobs "github.com/trellis-ml/trellis/pkg/api/types/jobs"
	apireg "github.com/trellis-ml/trellis/pkg/api/types/registry"
	apistorage "github.com/trellis-ml/trellis/pkg/api/types/storage"
	"github.com/trellis-ml/trellis/pkg/utils"
)

type TrellisClient interface {
	// CopyObject copies an object server-side between storage locations.
	//
	// # Args
	//
	// - context.Context
	//
	// - src, dst: objects to copy from / to.
	//
	// # Returns
	//
	// - error
	CopyObject(ctx context.Context, src, dst apistorage.Object) error

	// PutObject uploads an object from a stream.
	PutObject(ctx context.Context, obj apistorage.Object, source io.Reader) error

	// GetObjectRaw downloads an object.
	//
	// # Args
	//
	// - context.Context
	//
	// - obj: object to download.
	//
	// - handler: function to be called for raw stream.
	// If handler returns an error, downloading is stopped and the error is returned.
	//
	// # Returns
	//
	// - error: error occured when starting downloading.
	GetObjectRaw(ctx context.Context, obj apistorage.Object, handler func(io.Reader) error) error

	// GetRegistryToken obtains a short-lived credential for a registry host.
	GetRegistryToken(ctx context.Context, registryHost string) (apireg.Token, error)

	// GetRepository gets a repository in the private registry.
	//
	// # Returns
	//
	// - apireg.Repository: found repository
	//
	// - error: ErrRepositoryNotFound when the repository does not exist.
	GetRepository(ctx context.Context, name string) (apireg.Repository, error)

	// CreateRepository creates a repository in the private registry.
	CreateRepository(ctx context.Context, name string) (apireg.Repository, error)

	// EnsureRepository gets the repository, creating it only when the
	// existence check fails with ErrRepositoryNotFound.
	//
	// Re-running against an existing repository never attempts creation.
	EnsureRepository(ctx context.Context, name string) (apireg.Repository, error)

	// SubmitTraining submits a training job.
	SubmitTraining(ctx context.Context, spec apijobs.TrainingSpec) (apijobs.TrainingDetail, error)

	// GetTraining gets a training job with given trainingId.
	GetTraining(ctx context.Context, trainingId string) (apijobs.TrainingDetail, error)

	// WaitTraining polls the training job until its status is terminal.
	//
	// # Args
	//
	// - context.Context: cancelling it stops polling.
	//
	// - trainingId: job to wait for.
	//
	// - interval: polling interval.
	//
	// # Returns
	//
	// - apijobs.TrainingDetail: the job in its terminal status.
	//
	// - error
	WaitTraining(ctx context.Context, trainingId string, interval time.Duration) (apijobs.TrainingDetail, error)

	// SubmitTransform submits a batch transform job.
	SubmitTransform(ctx context.Context, spec apijobs.TransformSpec) (apijobs.TransformDetail, error)

	// GetTransform gets a transform job with given transformId.
	GetTransform(ctx context.Context, transformId string) (apijobs.TransformDetail, error)

	// WaitTransform polls the transform job until its status is terminal.
	WaitTransform(ctx context.Context, transformId string, interval time.Duration) (apijobs.TransformDetail, error)

	// GetTransformResultRaw downloads the output table of a transform job.
	//
	// # Args
	//
	// - context.Context
	//
	// - transformId: job whose output to download.
	//
	// - handler: function to be called for raw stream.
	// If handler returns an error, downloading is stopped and the error is returned.
	//
	// # Returns
	//
	// - error: error occured when starting downloading.
	GetTransformResultRaw(ctx context.Context, transformId string, handler func(io.Reader) error) error
}

type client struct {
	httpclient *http.Client
	api        string
}

// create new trellis client for TrellisProfile
//
// # Args
//
// - *tprof.TrellisProfile
//
// # Return
//
// - TrellisClient: created client
//
// - error: If given profile is invalid, ErrProfileInvalid is returned.
func NewClient(prof *tprof.TrellisProfile) (TrellisClient, error) {
	if err := prof.Verify(); err != nil {
		return nil, err
	}
	httpclient := new(http.Client)

	if prof.Cert.CA != "" {
		hc, err := trustCa(httpclient, []string{prof.Cert.CA})
		if err != nil {
			return nil, err
		}
		httpclient = hc
	}

	c := &client{
		httpclient: httpclient,
		api:        strings.TrimSuffix(prof.ApiRoot, "/"),
	}

	return c, nil
}

// build URL with path
func (c *client) apipath(path ...string) string {
	path = utils.Map(path, func(p string) string {
		return strings.TrimPrefix(strings.TrimSuffix(p, "/"), "/")
	})

	return strings.Join(append([]string{c.api}, path...), "/")
}

func trustCa(hc *http.Client, cacerts []string) (*http.Client, error) {
	if len(cacerts) <= 0 {
		return hc, nil
	}

	if hc.Transport == nil {
		hc.Transport = http.DefaultTransport
	}

	tran, ok := hc.Transport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("failed to add ca cert")
	}
	tran = tran.Clone()

	tcc := tran.TLSClientConfig.Clone()
	if tcc == nil {
		tcc = &tls.Config{}
	}

	rootcas := tcc.RootCAs
	if rootcas == nil {
		rootcas = x509.NewCertPool()
		tcc.RootCAs = rootcas
	}
	for _, ca := range cacerts {
		bin, err := base64.StdEncoding.DecodeString(ca)
		if err != nil {
			return nil, err
		}

		if !rootcas.AppendCertsFromPEM(bin) {
			return nil, fmt.Errorf("failed to add cert")
		}
	}

	tran.TLSClientConfig = tcc
	hc.Transport = tran
	return hc, nil
}
