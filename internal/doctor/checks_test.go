package doctor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status   CheckStatus
		expected string
	}{
		{StatusPass, "pass"},
		{StatusWarn, "warn"},
		{StatusFail, "fail"},
		{CheckStatus(99), "unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.status.String())
		})
	}
}

// mockCheck is a test implementation of Check.
type mockCheck struct {
	name     string
	category string
	result   CheckResult
}

func (m *mockCheck) Name() string                    { return m.name }
func (m *mockCheck) Category() string                { return m.category }
func (m *mockCheck) Run(context.Context) CheckResult { return m.result }

func TestRunAll_FillsNameAndCategory(t *testing.T) {
	checks := []Check{
		&mockCheck{name: "check1", category: "TEST", result: CheckResult{Status: StatusPass, Message: "OK"}},
		&mockCheck{name: "check2", category: "TEST", result: CheckResult{Name: "custom", Status: StatusFail}},
	}

	results := RunAll(context.Background(), checks)
	require.Len(t, results, 2)
	assert.Equal(t, CheckResult{Name: "check1", Category: "TEST", Status: StatusPass, Message: "OK"}, results[0])
	assert.Equal(t, "custom", results[1].Name)
	assert.Equal(t, StatusFail, results[1].Status)
}

func TestRunAllParallel_KeepsOrder(t *testing.T) {
	var checks []Check
	for _, s := range []CheckStatus{StatusPass, StatusWarn, StatusFail, StatusPass} {
		checks = append(checks, &mockCheck{name: s.String(), category: "TEST", result: CheckResult{Status: s}})
	}

	results := RunAllParallel(context.Background(), checks)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, checks[i].Name(), r.Name)
	}
}

func TestSummary(t *testing.T) {
	pass := CheckResult{Status: StatusPass}
	warn := CheckResult{Status: StatusWarn}
	fail := CheckResult{Status: StatusFail}

	assert.Equal(t, "Everything looks good", Summary([]CheckResult{pass, pass}))
	assert.Equal(t, "1 issue found", Summary([]CheckResult{pass, warn}))
	assert.Equal(t, "2 issues found", Summary([]CheckResult{warn, fail}))

	assert.False(t, HasIssues([]CheckResult{pass}))
	assert.True(t, HasIssues([]CheckResult{pass, warn}))
	assert.False(t, HasFailures([]CheckResult{warn}))
	assert.True(t, HasFailures([]CheckResult{warn, fail}))

	counts := CountByStatus([]CheckResult{pass, warn, warn, fail})
	assert.Equal(t, map[CheckStatus]int{StatusPass: 1, StatusWarn: 2, StatusFail: 1}, counts)
}

func TestCheckResult_JSON(t *testing.T) {
	b, err := json.Marshal(CheckResult{Name: "tool_iostat", Category: "TOOLS", Status: StatusWarn, Message: "iostat not found (storage)"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"tool_iostat","category":"TOOLS","status":"warn","message":"iostat not found (storage)"}`, string(b))
}
