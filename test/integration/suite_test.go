//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
)

// testContext holds state shared across step definitions within a scenario.
type testContext struct {
	baseURL      string
	browsers     map[string]*http.Client
	current      string
	response     *http.Response
	responseBody []byte
}

func newTestContext(baseURL string) *testContext {
	return &testContext{baseURL: baseURL}
}

// reset forgets every browser and response between scenarios.
func (tc *testContext) reset() {
	tc.browsers = map[string]*http.Client{}
	tc.current = "default"
	tc.response = nil
	tc.responseBody = nil
}

func (tc *testContext) browser() *http.Client {
	client, ok := tc.browsers[tc.current]
	if !ok {
		client = newBrowser()
		tc.browsers[tc.current] = client
	}

	return client
}

// initializeScenario registers step definitions for each scenario.
func initializeScenario(baseURL string) func(*godog.ScenarioContext) {
	return func(ctx *godog.ScenarioContext) {
		tc := newTestContext(baseURL)

		ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
			tc.reset()
			return ctx, nil
		})

		ctx.Step(`^the service is running$`, tc.theServiceIsRunning)
		ctx.Step(`^I use the browser "([^"]*)"$`, tc.iUseTheBrowser)
		ctx.Step(`^I request (GET|POST) "([^"]*)"$`, tc.iRequest)
		ctx.Step(`^I request POST "([^"]*)" with body:$`, tc.iRequestPOSTWithBody)
		ctx.Step(`^I request a transition "([^"]*)"$`, tc.iRequestATransition)
		ctx.Step(`^I wait for the session to settle$`, tc.iWaitForTheSessionToSettle)
		ctx.Step(`^the response status should be (\d+)$`, tc.theResponseStatusShouldBe)
		ctx.Step(`^the response should contain "([^"]*)"$`, tc.theResponseShouldContain)
		ctx.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, tc.theJSONFieldShouldBe)
	}
}

func (tc *testContext) theServiceIsRunning() error {
	if err := tc.do(http.MethodGet, "/-/live", ""); err != nil {
		return fmt.Errorf("service is not running at %s: %w", tc.baseURL, err)
	}

	return tc.theResponseStatusShouldBe(http.StatusOK)
}

func (tc *testContext) iUseTheBrowser(name string) error {
	tc.current = name
	return nil
}

func (tc *testContext) iRequest(method, path string) error {
	return tc.do(method, path, "")
}

func (tc *testContext) iRequestPOSTWithBody(path string, body *godog.DocString) error {
	return tc.do(http.MethodPost, path, body.Content)
}

func (tc *testContext) iRequestATransition(direction string) error {
	body, err := json.Marshal(map[string]string{"direction": direction})
	if err != nil {
		return err
	}

	return tc.do(http.MethodPost, "/api/v1/session/transitions", string(body))
}

func (tc *testContext) iWaitForTheSessionToSettle() error {
	if err := tc.do(http.MethodGet, "/api/v1/session?wait=true", ""); err != nil {
		return err
	}

	return tc.theResponseStatusShouldBe(http.StatusOK)
}

func (tc *testContext) do(method, path, body string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, tc.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.browser().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	tc.response = resp

	tc.responseBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	return nil
}

func (tc *testContext) theResponseStatusShouldBe(expectedCode int) error {
	if tc.response == nil {
		return errors.New("no response received")
	}

	if tc.response.StatusCode != expectedCode {
		return fmt.Errorf("expected status %d, got %d. Body: %s",
			expectedCode, tc.response.StatusCode, string(tc.responseBody))
	}

	return nil
}

func (tc *testContext) theResponseShouldContain(text string) error {
	if tc.responseBody == nil {
		return errors.New("no response body")
	}

	if body := string(tc.responseBody); !strings.Contains(body, text) {
		return fmt.Errorf("response body does not contain %q.\nBody: %s", text, body)
	}

	return nil
}

// theJSONFieldShouldBe compares a dotted path into the JSON body against
// the formatted value, so "error.code" or "loggedIn" both work.
func (tc *testContext) theJSONFieldShouldBe(path, want string) error {
	var value any
	if err := json.Unmarshal(tc.responseBody, &value); err != nil {
		return fmt.Errorf("response is not JSON: %w. Body: %s", err, string(tc.responseBody))
	}

	for part := range strings.SplitSeq(path, ".") {
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%q is not an object in %s", part, string(tc.responseBody))
		}

		if value, ok = obj[part]; !ok {
			return fmt.Errorf("field %q missing in %s", path, string(tc.responseBody))
		}
	}

	if got := fmt.Sprint(value); got != want {
		return fmt.Errorf("field %q is %q, want %q", path, got, want)
	}

	return nil
}

// TestFeatures runs the GoDog BDD suite against BASE_URL, or against an
// in-process server when BASE_URL is unset.
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = startServer(t, loadConfig(t, nil)).URL
	}

	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario(baseURL),
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../features"},
			TestingT: t,
			Tags:     os.Getenv("GODOG_TAGS"),
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
