package main_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/fruitytales/questsite/internal/core/domain/subscriber"
	"github.com/fruitytales/questsite/internal/funnel"
)

// ServerIntegrationSuite runs against a live server. It is skipped unless
// TEST_SERVER_URL points at one or START_TEST_SERVER=true lets the suite
// start cmd/server itself (DATABASE_URL must then be set).
type ServerIntegrationSuite struct {
	suite.Suite
	serverCmd    *exec.Cmd
	serverCancel func()
	client       *http.Client
	baseURL      string
}

func (s *ServerIntegrationSuite) SetupSuite() {
	s.client = &http.Client{Timeout: 5 * time.Second}

	if base := os.Getenv("TEST_SERVER_URL"); base != "" {
		s.baseURL = strings.TrimRight(base, "/")
		return
	}
	if os.Getenv("START_TEST_SERVER") != "true" {
		s.T().Skip("set TEST_SERVER_URL or START_TEST_SERVER=true to run server integration tests")
	}
	if os.Getenv("DATABASE_URL") == "" && os.Getenv("DB_PASSWORD") == "" {
		s.T().Fatal("START_TEST_SERVER=true but neither DATABASE_URL nor DB_PASSWORD is set")
	}

	cmd, cancel, err := startServerProcess()
	if err != nil {
		s.T().Fatalf("failed to start server subprocess: %v", err)
	}
	s.serverCmd = cmd
	s.serverCancel = cancel

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	s.baseURL = "http://localhost:" + port

	timeoutSecs := 60
	if v := os.Getenv("TEST_SERVER_STARTUP_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeoutSecs = n
		}
	}
	if ok := waitForServerHealthy(s.client, s.baseURL, timeoutSecs); !ok {
		_ = cmd.Process.Kill()
		s.T().Fatal("server did not become healthy in time")
	}
}

// startServerProcess runs cmd/server from the module root so the default
// MIGRATIONS_PATH resolves.
func startServerProcess() (*exec.Cmd, func(), error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	repoRoot := filepath.Join(wd, "..", "..")
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/server")
	cmd.Dir = repoRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, nil, err
	}
	return cmd, cancel, nil
}

func waitForServerHealthy(client *http.Client, baseURL string, timeoutSecs int) bool {
	fmt.Fprintf(os.Stdout, "Waiting up to %ds for test server to become healthy...\n", timeoutSecs)
	deadline := time.Now().Add(time.Duration(timeoutSecs) * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return false
}

func (s *ServerIntegrationSuite) TearDownSuite() {
	if s.serverCmd == nil || s.serverCmd.Process == nil {
		return
	}
	_ = s.serverCmd.Process.Signal(os.Interrupt)

	done := make(chan struct{})
	go func() {
		_ = s.serverCmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		s.serverCancel()
	}
}

func (s *ServerIntegrationSuite) TestHealthCheck() {
	resp, err := s.client.Get(s.baseURL + "/health")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&health))
	s.Equal("healthy", health["status"])
}

func (s *ServerIntegrationSuite) TestSubscribeLifecycle() {
	client := funnel.NewHTTPIntakeClient(s.baseURL, s.client)
	ctx := context.Background()

	_, err := client.Subscribe(ctx, &subscriber.SubscribeRequest{Email: "not-an-email"})
	s.ErrorIs(err, subscriber.ErrInvalidEmail)

	req := &subscriber.SubscribeRequest{
		Email:  fmt.Sprintf("it-%s@example.com", uuid.NewString()),
		Source: subscriber.SourceDemoPage,
		Tags:   []string{subscriber.TagDemoEarlyAccess},
	}
	res, err := client.Subscribe(ctx, req)
	s.Require().NoError(err)
	s.Equal(subscriber.SuccessMessage, res.Message)

	_, err = client.Subscribe(ctx, req)
	s.ErrorIs(err, subscriber.ErrDuplicateEmail)
}

func (s *ServerIntegrationSuite) TestQuestFunnel() {
	c := funnel.NewController(funnel.NewHTTPIntakeClient(s.baseURL, s.client), funnel.Options{})
	_, err := c.CompleteStep(funnel.StepSteam)
	s.Require().NoError(err)
	_, err = c.CompleteStep(funnel.StepKickstarter)
	s.Require().NoError(err)
	c.SetEmailDraft(fmt.Sprintf("quest-%s@example.com", uuid.NewString()))

	st, err := c.SubmitEmail(context.Background())
	s.Require().NoError(err)
	s.Equal(funnel.StepComplete, st.CurrentStep)
	s.Equal("3/3 complete", st.ProgressLabel())
}

func TestServerIntegrationSuite(t *testing.T) {
	suite.Run(t, new(ServerIntegrationSuite))
}
