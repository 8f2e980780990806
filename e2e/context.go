package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

var scenarioSeq atomic.Int64

// TestContext carries HTTP state across the steps of one scenario.
type TestContext struct {
	BaseURL string
	client  *http.Client

	lastStatus  int
	lastBody    []byte
	lastHeaders http.Header

	identities map[string]string
	current    string
	vars       map[string]string
	runID      string
	clientIP   string
}

// NewTestContext targets E2E_BASE_URL, defaulting to a local server.
func NewTestContext() *TestContext {
	base := os.Getenv("E2E_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return &TestContext{
		BaseURL:    strings.TrimRight(base, "/"),
		client:     &http.Client{Timeout: 10 * time.Second},
		identities: make(map[string]string),
		vars:       make(map[string]string),
		runID:      fmt.Sprintf("%d", time.Now().UnixNano()),
		clientIP:   scenarioIP(scenarioSeq.Add(1)),
	}
}

// scenarioIP gives each scenario its own client address so logins in one
// scenario never spend another's rate limit budget.
func scenarioIP(n int64) string {
	return fmt.Sprintf("10.%d.%d.%d", time.Now().Unix()%250+1, (n/250)%250, n%250+1)
}

// Credentials returns the provisioned login for a role. The server is seeded
// with `qualifyctl users create` before the suite runs.
func (tc *TestContext) Credentials(role string) (string, string) {
	key := strings.ToUpper(role)
	email := os.Getenv("E2E_" + key + "_EMAIL")
	if email == "" {
		email = role + "@e2e.qualify.test"
	}
	password := os.Getenv("E2E_" + key + "_PASSWORD")
	if password == "" {
		password = "e2e " + role + " password"
	}
	return email, password
}

// RunID makes codes unique across runs against a persistent database.
func (tc *TestContext) RunID() string {
	return tc.runID
}

func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.Do(http.MethodPost, path, body, nil)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.Do(http.MethodGet, path, nil, headers)
}

// Do sends a request as the current identity, if any.
func (tc *TestContext) Do(method, path string, body interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", tc.clientIP)
	if token := tc.identities[tc.current]; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeaders = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

// SetIdentity stores a bearer token under name and makes it current.
func (tc *TestContext) SetIdentity(name, token string) {
	tc.identities[name] = token
	tc.current = name
}

// Act switches the current identity. An unknown name sends no token.
func (tc *TestContext) Act(name string) {
	tc.current = name
}

func (tc *TestContext) Remember(key, value string) {
	tc.vars[key] = value
}

func (tc *TestContext) Recall(key string) string {
	return tc.vars[key]
}

func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.lastHeaders == nil {
		return ""
	}
	return tc.lastHeaders.Get(name)
}

// GetResponseField resolves a dotted path such as "record.status" in the
// last JSON response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var cur interface{}
	if err := json.Unmarshal(tc.lastBody, &cur); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		if cur, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %q not found in response: %s", field, tc.lastBody)
		}
	}
	return cur, nil
}

func (tc *TestContext) ResponseContains(field string) bool {
	_, err := tc.GetResponseField(field)
	return err == nil
}
