package client

import (
	"context"
	"fmt"
	"medbook/pkg/model"
	"net/http"
	"net/url"
)

// AdminClient talks to the schedules service on behalf of operators.
type AdminClient struct {
	httpClient *HttpClient
}

func NewAdminClient(baseURL string) *AdminClient {
	return &AdminClient{httpClient: NewHttpClient(baseURL)}
}

func (c *AdminClient) GenerateSlots(ctx context.Context, req *model.GenerateRequest) (*model.GenerateResult, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/slots/generate", req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generate slots failed (%d): %s", resp.StatusCode, GetErrorMessage(resp))
	}

	var result model.GenerateResult
	if err := resp.DecodeData(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *AdminClient) DeleteSchedule(ctx context.Context, id string) error {
	resp, err := c.httpClient.DELETE(ctx, "/api/v1/schedules/id/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete schedule failed (%d): %s", resp.StatusCode, GetErrorMessage(resp))
	}
	return nil
}

func (c *AdminClient) ListSchedules(ctx context.Context, doctorID string) ([]*model.Schedule, error) {
	q := url.Values{}
	if doctorID != "" {
		q.Set("doctor_id", doctorID)
	}

	resp, err := c.httpClient.GET(ctx, "/api/v1/schedules?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list schedules failed (%d): %s", resp.StatusCode, GetErrorMessage(resp))
	}

	var schedules []*model.Schedule
	if err := resp.DecodeData(&schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}
