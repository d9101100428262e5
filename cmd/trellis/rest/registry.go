package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apireg "github.com/trellis-ml/trellis/pkg/api/types/registry"
)

var ErrRepositoryNotFound = errors.New("repository not found")

func (c *client) GetRegistryToken(ctx context.Context, registryHost string) (apireg.Token, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.apipath("registry", "token"), nil,
	)
	if err != nil {
		return apireg.Token{}, err
	}
	q := req.URL.Query()
	q.Add("registry", registryHost)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return apireg.Token{}, err
	}
	defer resp.Body.Close()

	var token apireg.Token
	if err := unmarshalJsonResponse(
		resp, &token,
		MessageFor{
			Status4xx: fmt.Sprintf("cannot get credential for registry %s", registryHost),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return apireg.Token{}, err
	}
	return token, nil
}

func (c *client) GetRepository(ctx context.Context, name string) (apireg.Repository, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.apipath("registry", "repositories", name), nil,
	)
	if err != nil {
		return apireg.Repository{}, err
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return apireg.Repository{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apireg.Repository{}, fmt.Errorf("%w: %s", ErrRepositoryNotFound, name)
	}

	var repo apireg.Repository
	if err := unmarshalJsonResponse(
		resp, &repo,
		MessageFor{
			Status4xx: fmt.Sprintf("cannot get repository %s", name),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return apireg.Repository{}, err
	}
	return repo, nil
}

func (c *client) CreateRepository(ctx context.Context, name string) (apireg.Repository, error) {
	body, err := json.Marshal(apireg.RepositorySpec{Name: name})
	if err != nil {
		return apireg.Repository{}, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.apipath("registry", "repositories"), bytes.NewReader(body),
	)
	if err != nil {
		return apireg.Repository{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return apireg.Repository{}, err
	}
	defer resp.Body.Close()

	var repo apireg.Repository
	if err := unmarshalJsonResponse(
		resp, &repo,
		MessageFor{
			Status4xx: fmt.Sprintf("cannot create repository %s", name),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return apireg.Repository{}, err
	}
	return repo, nil
}

func (c *client) EnsureRepository(ctx context.Context, name string) (apireg.Repository, error) {
	repo, err := c.GetRepository(ctx, name)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, ErrRepositoryNotFound) {
		return apireg.Repository{}, err
	}
	return c.CreateRepository(ctx, name)
}
