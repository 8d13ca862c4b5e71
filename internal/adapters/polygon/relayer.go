package polygon

// relayer.go — gas-sponsoring relayer client.
//
// The relayer accepts a call bundle, submits it on the user's behalf and
// sponsors the gas, metered against a per-credential usage quota. The
// client submits with one credential at a time; quota exhaustion is
// surfaced as a typed error so the caller can rotate the pool.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

const (
	relayerSubmitTimeout = 15 * time.Second
	relayerWaitTimeout   = 120 * time.Second
)

// QuotaExceededError is returned when a relayer credential hit its quota.
type QuotaExceededError struct {
	Message    string
	ResetAfter time.Duration // 0 when the reset time could not be parsed
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("relayer quota exceeded: %s", e.Message)
}

// RelayerCall is one call of the submitted bundle.
type RelayerCall struct {
	To   string `json:"to"`
	Data string `json:"data"`
	From string `json:"from,omitempty"`
}

// relayTaskResponse is the relayer's acknowledgement of a submission.
type relayTaskResponse struct {
	TaskID string `json:"taskId"`
	Error  string `json:"error,omitempty"`
}

// relayTaskStatus is the polled state of a submitted task.
type relayTaskStatus struct {
	TaskID string `json:"taskId"`
	State  string `json:"state"` // pending, executed, cancelled
	TxHash string `json:"transactionHash"`
	Error  string `json:"error,omitempty"`
}

// RelayerClient submits sponsored transactions through the relayer API.
type RelayerClient struct {
	baseURL string
	http    *http.Client
}

// NewRelayerClient creates a relayer client for the given base URL.
func NewRelayerClient(baseURL string) *RelayerClient {
	return &RelayerClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: relayerSubmitTimeout},
	}
}

// Execute submits the call bundle with the given credential and waits for
// the sponsored transaction to be mined, returning its hash.
func (rc *RelayerClient) Execute(ctx context.Context, cred domain.RelayerCredential, calls []RelayerCall) (string, error) {
	taskID, err := rc.submit(ctx, cred, calls)
	if err != nil {
		return "", err
	}
	return rc.wait(ctx, cred, taskID)
}

// submit posts the call bundle and returns the relayer task id.
func (rc *RelayerClient) submit(ctx context.Context, cred domain.RelayerCredential, calls []RelayerCall) (string, error) {
	body, err := json.Marshal(map[string]any{"calls": calls})
	if err != nil {
		return "", fmt.Errorf("relayer: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.baseURL+"/relay", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("relayer: request: %w", err)
	}
	rc.setCredHeaders(req, cred)
	req.Header.Set("Content-Type", "application/json")

	resp, err := rc.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("relayer: submit: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired {
		return "", newQuotaError(string(respBody))
	}
	if resp.StatusCode >= 400 {
		msg := string(respBody)
		if domain.IsQuotaError(msg) {
			return "", newQuotaError(msg)
		}
		return "", fmt.Errorf("relayer: submit status %d: %s", resp.StatusCode, msg)
	}

	var task relayTaskResponse
	if err := json.Unmarshal(respBody, &task); err != nil {
		return "", fmt.Errorf("relayer: parse task: %w", err)
	}
	if task.Error != "" {
		if domain.IsQuotaError(task.Error) {
			return "", newQuotaError(task.Error)
		}
		return "", fmt.Errorf("relayer: %s", task.Error)
	}
	if task.TaskID == "" {
		return "", fmt.Errorf("relayer: empty task id")
	}
	return task.TaskID, nil
}

// wait polls the task until the relayer reports a mined transaction hash.
func (rc *RelayerClient) wait(ctx context.Context, cred domain.RelayerCredential, taskID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, relayerWaitTimeout)
	defer cancel()

	operation := func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rc.baseURL+"/tasks/"+taskID, nil)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		rc.setCredHeaders(req, cred)

		resp, err := rc.http.Do(req)
		if err != nil {
			return "", err // transient, retry
		}
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)

		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("task status %d: %s", resp.StatusCode, respBody)
		}

		var status relayTaskStatus
		if err := json.Unmarshal(respBody, &status); err != nil {
			return "", backoff.Permanent(fmt.Errorf("parse task status: %w", err))
		}

		switch status.State {
		case "executed":
			if status.TxHash == "" {
				return "", backoff.Permanent(fmt.Errorf("task executed without tx hash"))
			}
			return status.TxHash, nil
		case "cancelled":
			return "", backoff.Permanent(fmt.Errorf("task cancelled: %s", status.Error))
		default:
			return "", fmt.Errorf("task %s still %s", taskID, status.State)
		}
	}

	txHash, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(relayerWaitTimeout),
	)
	if err != nil {
		return "", fmt.Errorf("relayer: wait task %s: %w", taskID, err)
	}
	return txHash, nil
}

func (rc *RelayerClient) setCredHeaders(req *http.Request, cred domain.RelayerCredential) {
	req.Header.Set("X-Api-Key", cred.Key)
	req.Header.Set("X-Api-Secret", cred.Secret)
	req.Header.Set("X-Api-Passphrase", cred.Passphrase)
}

var quotaResetRe = regexp.MustCompile(`resets? in (\d+) seconds?`)

// newQuotaError builds a QuotaExceededError, parsing "resets in N seconds"
// out of the relayer's message when present.
func newQuotaError(msg string) *QuotaExceededError {
	e := &QuotaExceededError{Message: msg}
	if m := quotaResetRe.FindStringSubmatch(msg); len(m) == 2 {
		if secs, err := strconv.Atoi(m[1]); err == nil {
			e.ResetAfter = time.Duration(secs) * time.Second
		}
	}
	return e
}
