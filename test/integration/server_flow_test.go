//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

type topicsResponse struct {
	Anchors  [][]string `json:"anchors"`
	Topics   [][]string `json:"topics"`
	Accuracy *float64   `json:"accuracy"`
}

type errorResponse struct {
	Reason string `json:"reason"`
	Token  string `json:"token"`
}

func serverURL() string {
	if u := os.Getenv("TBUIE_SERVER_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://localhost:5000"
}

var httpClient = &http.Client{Timeout: 5 * time.Minute}

func getJSON(t *testing.T, path string, wantStatus int, out interface{}) {
	t.Helper()
	resp, err := httpClient.Get(serverURL() + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: expected status %d, got %d: %s", path, wantStatus, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("GET %s: failed to decode response: %v", path, err)
	}
}

// TestServerFlow exercises the analyst loop against a running server
func TestServerFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	if resp, err := httpClient.Get(serverURL() + "/health"); err != nil {
		t.Skipf("Server not reachable at %s: %v", serverURL(), err)
	} else {
		resp.Body.Close()
	}

	t.Log("Step 1: Fetching vocabulary...")
	var vocab struct {
		Vocab []string `json:"vocab"`
	}
	getJSON(t, "/vocab", http.StatusOK, &vocab)
	if len(vocab.Vocab) < 2 {
		t.Fatalf("Expected at least two vocabulary words, got %d", len(vocab.Vocab))
	}

	t.Log("Step 2: Recovering topics from the initial anchors...")
	var initial topicsResponse
	getJSON(t, "/topics", http.StatusOK, &initial)
	if len(initial.Anchors) != len(initial.Topics) {
		t.Fatalf("Expected one topic per anchor, got %d anchors and %d topics", len(initial.Anchors), len(initial.Topics))
	}

	t.Log("Step 3: Recovering topics from analyst anchors...")
	anchors := [][]string{{vocab.Vocab[0]}, {vocab.Vocab[1]}}
	raw, _ := json.Marshal(anchors)
	var custom topicsResponse
	getJSON(t, "/topics?anchors="+url.QueryEscape(string(raw)), http.StatusOK, &custom)
	if len(custom.Topics) != 2 {
		t.Fatalf("Expected 2 topics, got %d", len(custom.Topics))
	}
	if custom.Accuracy != nil && (*custom.Accuracy < 0 || *custom.Accuracy > 1) {
		t.Errorf("Accuracy out of range: %v", *custom.Accuracy)
	}

	t.Log("Step 4: Unknown tokens are rejected...")
	var rejected errorResponse
	bad := url.QueryEscape(`[["zzzz-not-a-token"]]`)
	getJSON(t, "/topics?anchors="+bad, http.StatusBadRequest, &rejected)
	if rejected.Reason != "unknown_token" || rejected.Token != "zzzz-not-a-token" {
		t.Errorf("Unexpected rejection: %+v", rejected)
	}

	t.Log("Step 5: Concurrent submissions are both stored...")
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"anchors":%s,"submission":%d}`, raw, i)
			resp, err := httpClient.Post(serverURL()+"/finished", "application/json", strings.NewReader(body))
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Body.Close()
			ack, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK || string(ack) != "OK" {
				errs[i] = fmt.Errorf("status %d: %s", resp.StatusCode, ack)
			}
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Errorf("Submission %d failed: %v", i, err)
		}
	}

	t.Logf("✅ Analyst flow completed against %s", serverURL())
}
