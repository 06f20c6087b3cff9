package timetable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ErrGenerator marks every failure of the external solver call.
var ErrGenerator = errors.New("timetable generator failed")

// GeneratorError is a non-2xx answer from the solver.
type GeneratorError struct {
	StatusCode int
	Message    string
}

func (e *GeneratorError) Error() string {
	return e.Message
}

func (e *GeneratorError) Is(target error) bool {
	return target == ErrGenerator
}

// Client calls the external timetable solver over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) endpoint(departmentID *uint) string {
	if departmentID != nil {
		return fmt.Sprintf("%s/generate-timetable/studentwise/department/%d", c.baseURL, *departmentID)
	}
	return c.baseURL + "/generate-timetable/studentwise"
}

// Generate posts req to the solver, scoped to a department when departmentID is set.
func (c *Client) Generate(ctx context.Context, req *GenerationRequest, departmentID *uint) (*GenerationResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}

	url := c.endpoint(departmentID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Printf("❌ Generator request to %s failed: %v", url, err)
		return nil, fmt.Errorf("%w: %w", ErrGenerator, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrGenerator, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("Backend error: %d", resp.StatusCode)
		}
		log.Printf("❌ Generator returned %d in %v", resp.StatusCode, time.Since(start))
		return nil, &GeneratorError{StatusCode: resp.StatusCode, Message: msg}
	}

	out, err := ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrGenerator, err)
	}

	log.Printf("✅ Generator answered in %v (fitness %.3f, %d generations)",
		time.Since(start), out.FitnessScore, out.GenerationCount)
	return out, nil
}
