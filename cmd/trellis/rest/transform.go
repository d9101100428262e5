package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apijobs "github.com/trellis-ml/trellis/pkg/api/types/jobs"
)

func (c *client) SubmitTransform(
	ctx context.Context, spec apijobs.TransformSpec,
) (apijobs.TransformDetail, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return apijobs.TransformDetail{}, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.apipath("transforms"), bytes.NewReader(body),
	)
	if err != nil {
		return apijobs.TransformDetail{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return apijobs.TransformDetail{}, err
	}
	defer resp.Body.Close()

	var detail apijobs.TransformDetail
	if err := unmarshalJsonResponse(
		resp, &detail,
		MessageFor{
			Status4xx: "transform job is rejected",
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return apijobs.TransformDetail{}, err
	}
	return detail, nil
}

func (c *client) GetTransform(
	ctx context.Context, transformId string,
) (apijobs.TransformDetail, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.apipath("transforms", transformId), nil,
	)
	if err != nil {
		return apijobs.TransformDetail{}, err
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return apijobs.TransformDetail{}, err
	}
	defer resp.Body.Close()

	var detail apijobs.TransformDetail
	if err := unmarshalJsonResponse(
		resp, &detail,
		MessageFor{
			Status4xx: fmt.Sprintf("transformId:%s is not found", transformId),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return apijobs.TransformDetail{}, err
	}
	return detail, nil
}

func (c *client) WaitTransform(
	ctx context.Context, transformId string, interval time.Duration,
) (apijobs.TransformDetail, error) {
	return waitJob(ctx, interval, func(ctx context.Context) (apijobs.TransformDetail, apijobs.Status, error) {
		detail, err := c.GetTransform(ctx, transformId)
		return detail, detail.Status, err
	})
}

func (c *client) GetTransformResultRaw(
	ctx context.Context, transformId string, handler func(io.Reader) error,
) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.apipath("transforms", transformId, "result"), nil,
	)
	if err != nil {
		return err
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	r, err := unmarshalStreamResponse(
		resp,
		MessageFor{
			Status4xx: fmt.Sprintf("cannot get result of transformId:%s", transformId),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	)
	if err != nil {
		return err
	}

	return handler(r)
}
