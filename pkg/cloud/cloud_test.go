package cloud

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/vibelab/pkg/types"
)

// TestErrorKinds verifies kind predicates and unwrapping
func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name      string
		err       error
		notFound  bool
		transient bool
	}{
		{"permanent", &Error{Kind: KindPermanent, Op: "x", Err: cause}, false, false},
		{"transient", &Error{Kind: KindTransient, Op: "x", Err: cause}, false, true},
		{"not found", &Error{Kind: KindNotFound, Op: "x", Err: cause}, true, false},
		{"wrapped", fmt.Errorf("outer: %w", &Error{Kind: KindNotFound, Op: "x", Err: cause}), true, false},
		{"plain", cause, false, false},
		{"nil", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.transient, IsTransient(tt.err))
		})
	}
}

// TestClassifyContextErrors verifies cancellation maps to transient
func TestClassifyContextErrors(t *testing.T) {
	assert.True(t, IsTransient(classify("op", context.DeadlineExceeded)))
	assert.True(t, IsTransient(classify("op", context.Canceled)))
	assert.NoError(t, classify("op", nil))
}

// TestRulePriorityStable verifies deterministic in-range priorities
func TestRulePriorityStable(t *testing.T) {
	p := rulePriority("vibe-ct-ABCDE")
	assert.Equal(t, p, rulePriority("vibe-ct-ABCDE"))
	assert.GreaterOrEqual(t, p, int32(1000))
	assert.Less(t, p, int32(48000))
	assert.NotEqual(t, p, rulePriority("vibe-ct-ABCDF"))
}

// TestRetagImage covers registry paths with ports and missing tags
func TestRetagImage(t *testing.T) {
	tests := []struct {
		image    string
		tag      string
		expected string
	}{
		{"repo/app:latest", "vibe", "repo/app:vibe"},
		{"repo/app", "vibe", "repo/app:vibe"},
		{"registry.example.com:5000/app:old", "cline", "registry.example.com:5000/app:cline"},
		{"registry.example.com:5000/app", "cline", "registry.example.com:5000/app:cline"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, retagImage(tt.image, tt.tag), tt.image)
	}
}

// TestFakeTaskLifecycle drives run, describe, stop through the fake
func TestFakeTaskLifecycle(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	arn, err := f.RunTask(ctx, types.FamilyContinue, "vibe-ct-AAAAA")
	require.NoError(t, err)
	assert.Contains(t, arn, "task/vibelab/")

	status, err := f.DescribeTask(ctx, arn)
	require.NoError(t, err)
	assert.Equal(t, "PROVISIONING", status.Status)
	assert.Empty(t, status.PublicIP)

	f.SetTaskStatus(arn, "RUNNING")
	f.SetPublicIP(arn, "203.0.113.7", "10.0.0.7")
	status, err = f.DescribeTask(ctx, arn)
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", status.Status)
	assert.Equal(t, "203.0.113.7", status.PublicIP)

	require.NoError(t, f.StopTask(ctx, arn))
	status, err = f.DescribeTask(ctx, arn)
	require.NoError(t, err)
	assert.Equal(t, "STOPPED", status.Status)

	_, err = f.DescribeTask(ctx, "arn:aws:ecs:us-test-1:000000000000:task/vibelab/ghost")
	assert.True(t, IsNotFound(err))
}

// TestFakeAttachIdempotent verifies attach and detach round trips
func TestFakeAttachIdempotent(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	first, err := f.AttachWorkspace(ctx, "vibe-vb-AAAAA", "203.0.113.7", 8080)
	require.NoError(t, err)
	assert.Equal(t, "/vibe-vb-AAAAA", first.PathPrefix)

	second, err := f.AttachWorkspace(ctx, "vibe-vb-AAAAA", "203.0.113.7", 8080)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, f.DetachWorkspace(ctx, "vibe-vb-AAAAA"))
	require.NoError(t, f.DetachWorkspace(ctx, "vibe-vb-AAAAA"))
}

// TestFakeInjectedErrors verifies FailWith and call counting
func TestFakeInjectedErrors(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	boom := &Error{Kind: KindTransient, Op: "run task", Err: errors.New("throttled")}

	f.FailWith("RunTask", boom)
	_, err := f.RunTask(ctx, types.FamilyVibe, "vibe-vb-AAAAA")
	assert.ErrorIs(t, err, boom)

	f.FailWith("RunTask", nil)
	_, err = f.RunTask(ctx, types.FamilyVibe, "vibe-vb-AAAAA")
	assert.NoError(t, err)
	assert.Equal(t, 2, f.Calls("RunTask"))
}

// TestFakeListRunningTasks verifies orphan listing excludes stopped tasks
func TestFakeListRunningTasks(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	orphan := f.StartDirect(types.FamilyContinue)
	owned, err := f.RunTask(ctx, types.FamilyContinue, "vibe-ct-AAAAA")
	require.NoError(t, err)
	require.NoError(t, f.StopTask(ctx, owned))

	tasks, err := f.ListRunningTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, orphan, tasks[0].TaskARN)
	assert.NotEmpty(t, tasks[0].TaskID)
}

// TestFakeEdgeHandlesStable verifies the LB and CDN are singletons
func TestFakeEdgeHandlesStable(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	lb1, err := f.EnsureLoadBalancer(ctx)
	require.NoError(t, err)
	lb2, err := f.EnsureLoadBalancer(ctx)
	require.NoError(t, err)
	assert.Equal(t, lb1, lb2)

	d1, err := f.EnsureCDN(ctx, lb1.DNSName)
	require.NoError(t, err)
	d2, err := f.EnsureCDN(ctx, lb1.DNSName)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}
