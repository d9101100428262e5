package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apistorage "github.com/trellis-ml/trellis/pkg/api/types/storage"
)

func (c *client) CopyObject(ctx context.Context, src, dst apistorage.Object) error {
	body, err := json.Marshal(struct {
		Src apistorage.Object `json:"src"`
		Dst apistorage.Object `json:"dst"`
	}{Src: src, Dst: dst})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.apipath("storage", "copy"), bytes.NewReader(body),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return unmarshalResponseDiscardingPayload(
		resp,
		MessageFor{
			Status4xx: fmt.Sprintf("cannot copy %s to %s", src.URI(), dst.URI()),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	)
}

func (c *client) PutObject(ctx context.Context, obj apistorage.Object, source io.Reader) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPut, c.apipath("storage", "objects", obj.Bucket, obj.Key), source,
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return unmarshalResponseDiscardingPayload(
		resp,
		MessageFor{
			Status4xx: fmt.Sprintf("cannot write %s", obj.URI()),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	)
}

func (c *client) GetObjectRaw(
	ctx context.Context, obj apistorage.Object, handler func(io.Reader) error,
) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.apipath("storage", "objects", obj.Bucket, obj.Key), nil,
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
			Status4xx: fmt.Sprintf("%s is not found", obj.URI()),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	)
	if err != nil {
		return err
	}

	return handler(r)
}
