package cloud

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/vibelab/pkg/types"
)

// Fake is an in-memory Capability for tests: deterministic handles,
// per-operation call counters, and injectable errors. Task state does not
// advance on its own; tests drive it with SetTaskStatus / SetPublicIP.
type Fake struct {
	mu sync.Mutex

	seq         int
	tasks       map[string]*fakeTask
	attachments map[string]*Attachment
	lb          *LoadBalancer
	dist        *Distribution
	repos       map[string]string

	calls map[string]int
	errs  map[string]error
}

type fakeTask struct {
	status    string
	publicIP  string
	privateIP string
	family    types.ImageFamily
	startedBy string
	startedAt time.Time
}

// NewFake returns an empty fake cloud.
func NewFake() *Fake {
	return &Fake{
		tasks:       make(map[string]*fakeTask),
		attachments: make(map[string]*Attachment),
		repos:       make(map[string]string),
		calls:       make(map[string]int),
		errs:        make(map[string]error),
	}
}

// FailWith makes every subsequent call of op return err. A nil err clears
// the injection. Op names match the Capability method names.
func (f *Fake) FailWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Fake) enter(op string) error {
	f.calls[op]++
	return f.errs[op]
}

// SetTaskStatus overrides the cloud-reported status of a task.
func (f *Fake) SetTaskStatus(taskARN, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[taskARN]; ok {
		t.status = status
	}
}

// SetPublicIP assigns addresses to a task, as the cloud does once the
// network interface comes up.
func (f *Fake) SetPublicIP(taskARN, publicIP, privateIP string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[taskARN]; ok {
		t.publicIP = publicIP
		t.privateIP = privateIP
	}
}

// StartDirect starts a task outside the orchestrator, as a human with
// cloud console access would. Used to stage orphans.
func (f *Fake) StartDirect(family types.ImageFamily) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startTask(family, "")
}

func (f *Fake) startTask(family types.ImageFamily, startedBy string) string {
	f.seq++
	arn := fmt.Sprintf("arn:aws:ecs:us-test-1:000000000000:task/vibelab/task-%04d", f.seq)
	f.tasks[arn] = &fakeTask{
		status:    "PROVISIONING",
		family:    family,
		startedBy: startedBy,
		startedAt: time.Now(),
	}
	return arn
}

func (f *Fake) RunTask(_ context.Context, family types.ImageFamily, workspaceID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("RunTask"); err != nil {
		return "", err
	}
	return f.startTask(family, workspaceID), nil
}

func (f *Fake) StopTask(_ context.Context, taskARN string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("StopTask"); err != nil {
		return err
	}
	if t, ok := f.tasks[taskARN]; ok {
		t.status = "STOPPED"
		t.publicIP = ""
	}
	return nil
}

func (f *Fake) DescribeTask(_ context.Context, taskARN string) (*TaskStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DescribeTask"); err != nil {
		return nil, err
	}
	t, ok := f.tasks[taskARN]
	if !ok {
		return nil, notFound("describe task", "task")
	}
	started := t.startedAt
	return &TaskStatus{
		Status:         t.status,
		PublicIP:       t.publicIP,
		PrivateIP:      t.privateIP,
		StartedAt:      &started,
		TaskDefinition: "vibelab-workspace-" + string(t.family),
	}, nil
}

func (f *Fake) ListRunningTasks(_ context.Context) ([]RunningTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListRunningTasks"); err != nil {
		return nil, err
	}
	var out []RunningTask
	for arn, t := range f.tasks {
		if t.status == "STOPPED" {
			continue
		}
		started := t.startedAt
		out = append(out, RunningTask{
			TaskARN:        arn,
			TaskID:         taskIDFromARN(arn),
			Status:         t.status,
			StartedAt:      &started,
			TaskDefinition: "vibelab-workspace-" + string(t.family),
		})
	}
	return out, nil
}

func (f *Fake) EnsureLoadBalancer(_ context.Context) (*LoadBalancer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("EnsureLoadBalancer"); err != nil {
		return nil, err
	}
	if f.lb == nil {
		f.lb = &LoadBalancer{
			ARN:         "arn:aws:elasticloadbalancing:us-test-1:000000000000:loadbalancer/app/vibelab-edge/fake",
			DNSName:     "vibelab-edge.us-test-1.elb.example.com",
			ListenerARN: "arn:aws:elasticloadbalancing:us-test-1:000000000000:listener/app/vibelab-edge/fake/80",
		}
	}
	return &LoadBalancer{ARN: f.lb.ARN, DNSName: f.lb.DNSName, ListenerARN: f.lb.ListenerARN}, nil
}

func (f *Fake) AttachWorkspace(_ context.Context, workspaceID, targetIP string, targetPort int32) (*Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("AttachWorkspace"); err != nil {
		return nil, err
	}
	if att, ok := f.attachments[workspaceID]; ok {
		cp := *att
		return &cp, nil
	}
	att := &Attachment{
		TargetGroupARN: fmt.Sprintf("arn:aws:elasticloadbalancing:us-test-1:000000000000:targetgroup/%s/fake", workspaceID),
		RuleARN:        fmt.Sprintf("arn:aws:elasticloadbalancing:us-test-1:000000000000:listener-rule/app/vibelab-edge/fake/%d", rulePriority(workspaceID)),
		PathPrefix:     "/" + workspaceID,
	}
	f.attachments[workspaceID] = att
	cp := *att
	return &cp, nil
}

func (f *Fake) DetachWorkspace(_ context.Context, workspaceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DetachWorkspace"); err != nil {
		return err
	}
	delete(f.attachments, workspaceID)
	return nil
}

func (f *Fake) EnsureCDN(_ context.Context, originDNS string) (*Distribution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("EnsureCDN"); err != nil {
		return nil, err
	}
	if f.dist == nil {
		f.dist = &Distribution{ID: "EFAKE000000001", Domain: "d0000000000000.cloudfront.example.com"}
	}
	return &Distribution{ID: f.dist.ID, Domain: f.dist.Domain}, nil
}

func (f *Fake) EnsureRepository(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("EnsureRepository"); err != nil {
		return "", err
	}
	if uri, ok := f.repos[name]; ok {
		return uri, nil
	}
	uri := "000000000000.dkr.ecr.us-test-1.example.com/" + name
	f.repos[name] = uri
	return uri, nil
}

func (f *Fake) Identity(_ context.Context) (*Caller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Identity"); err != nil {
		return nil, err
	}
	return &Caller{AccountID: "000000000000", Region: "us-test-1"}, nil
}

var _ Capability = (*Fake)(nil)
