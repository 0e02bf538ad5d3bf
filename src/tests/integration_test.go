package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/team-pulse/availability-service/src/internal/auth"
)

type Team struct {
	TeamID            string       `json:"team_id"`
	TeamName          string       `json:"team_name"`
	SprintLengthWeeks int          `json:"sprint_length_weeks"`
	Members           []TeamMember `json:"members"`
}

type TeamMember struct {
	MemberID   string `json:"member_id"`
	MemberName string `json:"member_name"`
	IsCritical bool   `json:"is_critical"`
}

type Sprint struct {
	TeamID    string `json:"team_id"`
	Number    int    `json:"sprint_number"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type TeamReport struct {
	TeamID          string  `json:"team_id"`
	CountedMembers  int     `json:"counted_members"`
	CompleteMembers int     `json:"complete_members"`
	PotentialHours  float64 `json:"potential_hours"`
	SubmittedHours  float64 `json:"submitted_hours"`
	CompletionPct   float64 `json:"completion_pct"`
}

type Alert struct {
	Type     string `json:"type"`
	MemberID string `json:"member_id"`
}

type IntegrationTestSuite struct {
	suite.Suite
	baseURL      string
	client       *http.Client
	managerToken string
	memberToken  string
}

func (suite *IntegrationTestSuite) SetupSuite() {
	suite.baseURL = "http://localhost:8080"
	suite.client = &http.Client{Timeout: 10 * time.Second}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-only-secret"
	}
	tokens := auth.NewTokens(secret)
	var err error
	suite.managerToken, err = tokens.Mint("it-manager", auth.RoleManager, time.Hour)
	if err != nil {
		suite.T().Fatalf("mint manager token: %v", err)
	}
	suite.memberToken, err = tokens.Mint("it-member", auth.RoleMember, time.Hour)
	if err != nil {
		suite.T().Fatalf("mint member token: %v", err)
	}

	suite.waitForService()
}

func (suite *IntegrationTestSuite) waitForService() {
	for i := 0; i < 30; i++ {
		resp, err := http.Get(suite.baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			fmt.Println("✅ Service is ready!")
			return
		}
		fmt.Printf("⏳ Waiting for service... (attempt %d/30)\n", i+1)
		time.Sleep(1 * time.Second)
	}
	suite.T().Fatal("❌ Service failed to start within 30 seconds")
}

func (suite *IntegrationTestSuite) TestFullFlow() {
	t := suite.T()

	teamName := fmt.Sprintf("test-team-%d", time.Now().Unix())
	createReq := map[string]any{
		"team_name":           teamName,
		"sprint_length_weeks": 2,
		"members": []map[string]any{
			{"member_name": "Test User 1"},
			{"member_name": "Test User 2", "is_critical": true},
			{"member_name": "Test User 3"},
		},
	}

	resp, err := suite.doRequest("POST", "/team/add", createReq, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "Should create team successfully")

	var createResp struct {
		Team Team `json:"team"`
	}
	err = json.NewDecoder(resp.Body).Decode(&createResp)
	assert.NoError(t, err)
	assert.NotEmpty(t, createResp.Team.TeamID)
	assert.Len(t, createResp.Team.Members, 3, "Team should have 3 members")
	fmt.Println("✅ Team created successfully")

	teamID := createResp.Team.TeamID

	resp, err = suite.doRequest("GET", "/team/get?team_id="+teamID, nil, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "Should get team successfully")

	var gotTeam Team
	err = json.NewDecoder(resp.Body).Decode(&gotTeam)
	assert.NoError(t, err)
	assert.Equal(t, teamName, gotTeam.TeamName)
	assert.Len(t, gotTeam.Members, 3)
	fmt.Println("✅ Team retrieved successfully")

	// Submit a full week for member 1: Sunday through Thursday of the
	// current week.
	memberID := gotTeam.Members[0].MemberID
	weekStart := currentWeekStart()
	for i := 0; i < 5; i++ {
		day := weekStart.AddDate(0, 0, i).Format(time.DateOnly)
		resp, err = suite.doRequest("POST", "/schedule/update", map[string]any{
			"member_id": memberID,
			"date":      day,
			"value":     "1",
		}, suite.memberToken)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "Should accept schedule entry for "+day)
	}
	fmt.Println("✅ Schedule submitted for full week")

	resp, err = suite.doRequest("GET",
		fmt.Sprintf("/schedule/get?member_id=%s&from=%s&to=%s",
			memberID,
			weekStart.Format(time.DateOnly),
			weekStart.AddDate(0, 0, 6).Format(time.DateOnly)),
		nil, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var scheduleResp struct {
		Entries []map[string]any `json:"entries"`
	}
	err = json.NewDecoder(resp.Body).Decode(&scheduleResp)
	assert.NoError(t, err)
	assert.Len(t, scheduleResp.Entries, 5, "Should return the 5 submitted entries")
	fmt.Println("✅ Schedule retrieved successfully")

	resp, err = suite.doRequest("GET", "/analytics/team?team_id="+teamID, nil, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var report TeamReport
	err = json.NewDecoder(resp.Body).Decode(&report)
	assert.NoError(t, err)
	assert.Equal(t, 3, report.CountedMembers)
	assert.Equal(t, 1, report.CompleteMembers, "Only member 1 submitted a full week")
	assert.InDelta(t, 105.0, report.PotentialHours, 0.01, "3 members x 5 days x 7h")
	assert.InDelta(t, 35.0, report.SubmittedHours, 0.01)
	fmt.Println("✅ Team analytics computed correctly")

	resp, err = suite.doRequest("GET", "/sprint/current?team_id="+teamID, nil, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var sprintResp struct {
		Sprint Sprint `json:"sprint"`
	}
	err = json.NewDecoder(resp.Body).Decode(&sprintResp)
	assert.NoError(t, err)
	assert.Equal(t, 1, sprintResp.Sprint.Number, "A fresh team is in its first sprint")
	fmt.Println("✅ Current sprint derived successfully")

	resp, err = suite.doRequest("GET", "/alerts?team_id="+teamID, nil, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var alertsResp struct {
		Alerts []Alert `json:"alerts"`
	}
	err = json.NewDecoder(resp.Body).Decode(&alertsResp)
	assert.NoError(t, err)
	missing := 0
	for _, a := range alertsResp.Alerts {
		if a.Type == "missing_submission" {
			missing++
		}
	}
	assert.Equal(t, 2, missing, "Members 2 and 3 have not submitted")
	fmt.Println("✅ Alerts flag the two missing submissions")
}

func (suite *IntegrationTestSuite) TestSprintReconfiguration() {
	t := suite.T()

	teamName := fmt.Sprintf("sprint-team-%d", time.Now().Unix())
	resp, err := suite.doRequest("POST", "/team/add", map[string]any{
		"team_name":           teamName,
		"sprint_length_weeks": 1,
		"members":             []map[string]any{{"member_name": "Solo"}},
	}, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var createResp struct {
		Team Team `json:"team"`
	}
	err = json.NewDecoder(resp.Body).Decode(&createResp)
	assert.NoError(t, err)
	teamID := createResp.Team.TeamID

	// Re-anchor sprints six weeks back with 2-week sprints: today must
	// land in sprint 4.
	ref := currentWeekStart().AddDate(0, 0, -42).Format(time.DateOnly)
	resp, err = suite.doRequest("POST", "/sprint/create", map[string]any{
		"team_id":      teamID,
		"start_date":   ref,
		"length_weeks": 2,
	}, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var sprintResp struct {
		Sprint Sprint `json:"sprint"`
	}
	err = json.NewDecoder(resp.Body).Decode(&sprintResp)
	assert.NoError(t, err)
	assert.Equal(t, 4, sprintResp.Sprint.Number, "6 weeks elapsed in 2-week sprints")
	fmt.Println("✅ Sprint reconfiguration re-derived boundaries")

	resp, err = suite.doRequest("GET", "/sprint/history?team_id="+teamID, nil, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	fmt.Println("✅ Sprint history retrieved")
}

func (suite *IntegrationTestSuite) TestErrorScenarios() {
	t := suite.T()

	resp, err := suite.doRequest("GET", "/team/get?team_id=non-existent-team-123456", nil, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "Should return 404 for non-existent team")
	fmt.Println("✅ Correctly handled non-existent team")

	teamName := fmt.Sprintf("duplicate-team-%d", time.Now().Unix())
	team := map[string]any{
		"team_name":           teamName,
		"sprint_length_weeks": 2,
		"members":             []map[string]any{{"member_name": "Dup User"}},
	}

	resp, err = suite.doRequest("POST", "/team/add", team, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "First team creation should succeed")

	var createResp struct {
		Team Team `json:"team"`
	}
	err = json.NewDecoder(resp.Body).Decode(&createResp)
	assert.NoError(t, err)

	resp, err = suite.doRequest("POST", "/team/add", team, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "Second team creation should conflict")
	fmt.Println("✅ Correctly handled duplicate team creation")

	resp, err = suite.doRequest("POST", "/schedule/update", map[string]any{
		"member_id": createResp.Team.Members[0].MemberID,
		"date":      time.Now().UTC().Format(time.DateOnly),
		"value":     "2",
	}, suite.memberToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "Unknown day value should be rejected")
	fmt.Println("✅ Correctly rejected unknown day value")

	resp, err = suite.doRequest("POST", "/team/add", map[string]any{
		"team_name":           "bad-length-team",
		"sprint_length_weeks": 7,
		"members":             []map[string]any{{"member_name": "X"}},
	}, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "Sprint length outside 1-4 should be rejected")
	fmt.Println("✅ Correctly rejected bad sprint length")
}

func (suite *IntegrationTestSuite) TestAuthScenarios() {
	t := suite.T()

	team := map[string]any{
		"team_name":           "auth-team",
		"sprint_length_weeks": 2,
		"members":             []map[string]any{{"member_name": "X"}},
	}

	resp, err := suite.doRequest("POST", "/team/add", team, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "Missing token should be rejected")

	resp, err = suite.doRequest("POST", "/team/add", team, "not-a-real-token")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "Garbage token should be rejected")

	resp, err = suite.doRequest("POST", "/team/add", team, suite.memberToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "Member token should not create teams")
	fmt.Println("✅ Auth scenarios handled correctly")
}

// currentWeekStart returns the Sunday that opens the current week, UTC.
func currentWeekStart() time.Time {
	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func (suite *IntegrationTestSuite) doRequest(method, path string, body interface{}, token string) (*http.Response, error) {
	var req *http.Request
	var err error

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req, err = http.NewRequest(method, suite.baseURL+path, bytes.NewBuffer(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, suite.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return suite.client.Do(req)
}

func TestIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}
