package framework

import (
	"context"
	"net/http/httptest"

	"github.com/cuemby/vibelab/pkg/api"
	"github.com/cuemby/vibelab/pkg/client"
	"github.com/cuemby/vibelab/pkg/cloud"
	"github.com/cuemby/vibelab/pkg/edge"
	"github.com/cuemby/vibelab/pkg/orchestrator"
	"github.com/cuemby/vibelab/pkg/storage"
)

// Env is one in-process control plane over the fake cloud: the full
// HTTP surface behind a real listener, driven through the public client.
type Env struct {
	Store  *storage.Store
	Cloud  *cloud.Fake
	Orch   *orchestrator.Orchestrator
	Client *client.Client
	URL    string
}

// NewEnv boots a control plane for one test and logs the client in as
// admin. Everything is cleaned up with the test.
func NewEnv(t TestingT) *Env {
	t.Helper()

	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	fake := cloud.NewFake()
	e := edge.New(fake, store)
	orch := orchestrator.New(store, fake, e)
	server := api.NewServer(store, orch, e, fake, "e2e")

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	c := client.New(ts.URL)
	if err := c.Login(context.Background(), storage.DefaultAdminPassword); err != nil {
		t.Fatalf("Admin login failed: %v", err)
	}

	return &Env{
		Store:  store,
		Cloud:  fake,
		Orch:   orch,
		Client: c,
		URL:    ts.URL,
	}
}

// MarkRunning moves a fake task to RUNNING with the given public IP, as
// the cloud would after provisioning.
func (e *Env) MarkRunning(taskARN, publicIP string) {
	e.Cloud.SetTaskStatus(taskARN, "RUNNING")
	e.Cloud.SetPublicIP(taskARN, publicIP, "10.0.0.10")
}
