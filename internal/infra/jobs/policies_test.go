package jobs

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		name    string
		backoff Backoff
		attempt int
		want    time.Duration
	}{
		{"fixed first", Backoff{Kind: BackoffFixed, Base: 10 * time.Second}, 1, 10 * time.Second},
		{"fixed later", Backoff{Kind: BackoffFixed, Base: 10 * time.Second}, 4, 10 * time.Second},
		{"exp first", Backoff{Kind: BackoffExponential, Base: 2 * time.Second}, 1, 2 * time.Second},
		{"exp second", Backoff{Kind: BackoffExponential, Base: 2 * time.Second}, 2, 4 * time.Second},
		{"exp fourth", Backoff{Kind: BackoffExponential, Base: 2 * time.Second}, 4, 16 * time.Second},
		{"none", Backoff{Kind: BackoffNone}, 3, 0},
		{"attempt clamped to one", Backoff{Kind: BackoffExponential, Base: time.Second}, 0, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.backoff.Delay(tt.attempt))
		})
	}
}

func TestPolicyMaxRetry(t *testing.T) {
	assert.Equal(t, 2, Policy{MaxAttempts: 3}.MaxRetry())
	assert.Equal(t, 0, Policy{MaxAttempts: 1}.MaxRetry())
	assert.Equal(t, 0, Policy{MaxAttempts: 0}.MaxRetry())
}

func TestPolicyRegistry(t *testing.T) {
	tests := []struct {
		queue       string
		maxAttempts int
		kind        BackoffKind
		base        time.Duration
	}{
		{QueueReports, 3, BackoffExponential, 5 * time.Second},
		{QueueHealthScores, 3, BackoffExponential, 3 * time.Second},
		{QueueSLA, 2, BackoffFixed, 10 * time.Second},
		{QueueNotifications, 5, BackoffExponential, 2 * time.Second},
		{QueueSync, 5, BackoffExponential, time.Second},
		{QueueCleanup, 2, BackoffNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.queue, func(t *testing.T) {
			p, ok := PolicyForQueue(tt.queue)
			require.True(t, ok)
			assert.Equal(t, tt.maxAttempts, p.MaxAttempts)
			assert.Equal(t, tt.kind, p.Backoff.Kind)
			assert.Equal(t, tt.base, p.Backoff.Base)
			assert.Positive(t, p.Timeout)
			assert.Positive(t, p.Weight)
		})
	}

	_, ok := PolicyForQueue("bogus")
	assert.False(t, ok)
}

func TestEveryTaskTypeHasPolicy(t *testing.T) {
	types := []string{
		TypeReportGenerate,
		TypeHealthScoreRecalc,
		TypeSLASweep,
		TypeNotificationSend,
		TypeExternalSync,
		TypeCleanupRetention,
		TypeWorkflowRuleAction,
	}
	for _, taskType := range types {
		p, ok := PolicyForType(taskType)
		require.True(t, ok, "task type %s has no policy", taskType)
		assert.NotEmpty(t, p.Queue)
	}
}

func TestQueueWeightsCoverAllQueues(t *testing.T) {
	weights := QueueWeights()
	assert.Len(t, weights, 6)
	for queue, weight := range weights {
		assert.Positive(t, weight, "queue %s", queue)
	}
}

func TestRetryDelaySequence(t *testing.T) {
	// asynq hands RetryDelay the prior retry count, 0 on the first failure.
	tests := []struct {
		name     string
		taskType string
		retried  int
		want     time.Duration
	}{
		{"reports first retry", TypeReportGenerate, 0, 5 * time.Second},
		{"reports second retry", TypeReportGenerate, 1, 10 * time.Second},
		{"sla fixed first", TypeSLASweep, 0, 10 * time.Second},
		{"sync first", TypeExternalSync, 0, time.Second},
		{"sync fourth", TypeExternalSync, 3, 8 * time.Second},
		{"cleanup no backoff", TypeCleanupRetention, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := asynq.NewTask(tt.taskType, nil)
			assert.Equal(t, tt.want, RetryDelay(tt.retried, nil, task))
		})
	}

	// Unregistered task types fall back to asynq's default curve.
	unknown := asynq.NewTask("no-such-type", nil)
	assert.Positive(t, RetryDelay(0, nil, unknown))
}

func TestTaskCreatorsRejectInvalidPayloads(t *testing.T) {
	_, err := NewReportGenerateTask(ReportGeneratePayload{ReportID: "not-a-uuid", TenantSlug: "acme"})
	assert.Error(t, err)

	_, err = NewSLASweepTask(SLASweepPayload{TenantSlug: ""})
	assert.Error(t, err)

	_, err = NewNotificationSendTask(NotificationSendPayload{TenantSlug: "acme"}, 0)
	assert.Error(t, err)
}

func TestTaskCreatorsApplyQueuePolicy(t *testing.T) {
	task, err := NewSLASweepTask(SLASweepPayload{TenantSlug: "acme", AsOf: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, TypeSLASweep, task.Type())
}
