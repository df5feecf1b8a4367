package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"datagate/internal/domain"
)

// OPAClient queries an Open Policy Agent data API endpoint. The decision
// request is wrapped as {"input": ...} per the OPA v1 data API; the policy
// document is expected to produce {"allow": bool, "reason": string}, though a
// bare boolean result is also accepted.
type OPAClient struct {
	baseURL    string
	policyPath string
	httpClient *http.Client
}

// NewOPAClient creates a client for POST {baseURL}/v1/data/{policyPath}.
// timeout bounds each decision call; 0 defaults to 3 seconds.
func NewOPAClient(baseURL, policyPath string, timeout time.Duration) *OPAClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &OPAClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		policyPath: strings.Trim(policyPath, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type opaRequest struct {
	Input *domain.DecisionRequest `json:"input"`
}

type opaResponse struct {
	Result json.RawMessage `json:"result"`
}

// Decide submits the decision request. Errors, non-200 statuses, and
// malformed or missing results are all returned as errors; the caller treats
// every error as deny.
func (c *OPAClient) Decide(ctx context.Context, req *domain.DecisionRequest) (domain.Decision, error) {
	body, err := json.Marshal(opaRequest{Input: req})
	if err != nil {
		return domain.Decision{}, fmt.Errorf("marshal decision request: %w", err)
	}

	url := c.baseURL + "/v1/data/" + c.policyPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Decision{}, fmt.Errorf("build oracle request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("call policy oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Decision{}, fmt.Errorf("policy oracle returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Decision{}, fmt.Errorf("read oracle response: %w", err)
	}

	var wrapped opaResponse
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return domain.Decision{}, fmt.Errorf("decode oracle response: %w", err)
	}
	if len(wrapped.Result) == 0 {
		// Undefined result: the policy path does not exist or produced
		// nothing. Not a decision.
		return domain.Decision{}, fmt.Errorf("policy oracle returned no result")
	}

	var decision domain.Decision
	if err := json.Unmarshal(wrapped.Result, &decision); err == nil {
		return decision, nil
	}

	var allow bool
	if err := json.Unmarshal(wrapped.Result, &allow); err == nil {
		return domain.Decision{Allow: allow}, nil
	}

	return domain.Decision{}, fmt.Errorf("policy oracle returned malformed result")
}
