package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apijobs "github.com/trellis-ml/trellis/pkg/api/types/jobs"
)

func (c *client) SubmitTraining(
	ctx context.Context, spec apijobs.TrainingSpec,
) (apijobs.TrainingDetail, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return apijobs.TrainingDetail{}, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.apipath("trainings"), bytes.NewReader(body),
	)
	if err != nil {
		return apijobs.TrainingDetail{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return apijobs.TrainingDetail{}, err
	}
	defer resp.Body.Close()

	var detail apijobs.TrainingDetail
	if err := unmarshalJsonResponse(
		resp, &detail,
		MessageFor{
			Status4xx: "training job is rejected",
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return apijobs.TrainingDetail{}, err
	}
	return detail, nil
}

func (c *client) GetTraining(
	ctx context.Context, trainingId string,
) (apijobs.TrainingDetail, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.apipath("trainings", trainingId), nil,
	)
	if err != nil {
		return apijobs.TrainingDetail{}, err
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return apijobs.TrainingDetail{}, err
	}
	defer resp.Body.Close()

	var detail apijobs.TrainingDetail
	if err := unmarshalJsonResponse(
		resp, &detail,
		MessageFor{
			Status4xx: fmt.Sprintf("trainingId:%s is not found", trainingId),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return apijobs.TrainingDetail{}, err
	}
	return detail, nil
}

func (c *client) WaitTraining(
	ctx context.Context, trainingId string, interval time.Duration,
) (apijobs.TrainingDetail, error) {
	return waitJob(ctx, interval, func(ctx context.Context) (apijobs.TrainingDetail, apijobs.Status, error) {
		detail, err := c.GetTraining(ctx, trainingId)
		return detail, detail.Status, err
	})
}

// waitJob polls get until the job status is terminal.
func waitJob[D any](
	ctx context.Context,
	interval time.Duration,
	get func(context.Context) (D, apijobs.Status, error),
) (D, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		detail, status, err := get(ctx)
		if err != nil {
			return *new(D), err
		}
		if status.Terminal() {
			return detail, nil
		}

		select {
		case <-ctx.Done():
			return *new(D), ctx.Err()
		case <-ticker.C:
		}
	}
}
