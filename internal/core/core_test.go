package core

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"gopkg.in/yaml.v3"
)

// trackingModule records which lifecycle methods were invoked, in order.
type trackingModule struct {
	id      ModuleID
	calls   *[]string
	failAt  string
	started bool
}

func (m *trackingModule) ModuleInfo() ModuleInfo {
	return ModuleInfo{
		ID:  m.id,
		New: func() Module { return m },
	}
}

func (m *trackingModule) record(step string) error {
	*m.calls = append(*m.calls, string(m.id)+":"+step)
	if m.failAt == step {
		return errors.New("forced failure at " + step)
	}
	return nil
}

func (m *trackingModule) Configure(node *yaml.Node) error { return m.record("configure") }
func (m *trackingModule) Provision(_ *AppContext) error   { return m.record("provision") }
func (m *trackingModule) Validate() error                 { return m.record("validate") }
func (m *trackingModule) Start() error {
	m.started = true
	return m.record("start")
}
func (m *trackingModule) Stop(_ context.Context) error {
	m.started = false
	return m.record("stop")
}

func newTestContext() *AppContext {
	return NewAppContext(slog.Default(), "/tmp/data")
}

func TestModuleID_NamespaceAndName(t *testing.T) {
	t.Parallel()

	id := ModuleID("store.file")
	if got := id.Namespace(); got != "store" {
		t.Errorf("Namespace() = %q, want %q", got, "store")
	}
	if got := id.Name(); got != "file" {
		t.Errorf("Name() = %q, want %q", got, "file")
	}

	bare := ModuleID("store")
	if got := bare.Namespace(); got != "store" {
		t.Errorf("Namespace() = %q, want %q", got, "store")
	}
	if got := bare.Name(); got != "" {
		t.Errorf("Name() = %q, want empty", got)
	}
}

func TestLoadModule_LifecycleOrder(t *testing.T) {
	resetRegistry()
	t.Cleanup(resetRegistry)

	var calls []string
	RegisterModule(&trackingModule{id: "test.mod", calls: &calls})

	ctx := newTestContext().WithModuleConfigs(map[string]yaml.Node{
		"test.mod": {Kind: yaml.MappingNode},
	})

	if _, err := ctx.LoadModule("test.mod"); err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}

	want := []string{"test.mod:configure", "test.mod:provision", "test.mod:validate"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestLoadModule_Unknown(t *testing.T) {
	resetRegistry()
	t.Cleanup(resetRegistry)

	ctx := newTestContext()
	if _, err := ctx.LoadModule("does.not.exist"); err == nil {
		t.Fatal("expected error for unknown module")
	}
}

func TestApp_StartFailure_StopsStartedModules(t *testing.T) {
	resetRegistry()
	t.Cleanup(resetRegistry)

	var calls []string
	first := &trackingModule{id: "a.first", calls: &calls}
	second := &trackingModule{id: "b.second", calls: &calls, failAt: "start"}
	RegisterModule(first)
	RegisterModule(second)

	app := NewApp(newTestContext())
	if err := app.LoadModules([]string{"a.first", "b.second"}); err != nil {
		t.Fatalf("LoadModules failed: %v", err)
	}

	if err := app.Start(); err == nil {
		t.Fatal("expected start failure")
	}
	if first.started {
		t.Error("first module should have been stopped after second failed to start")
	}
}

func TestAppContext_ServiceRegistry(t *testing.T) {
	t.Parallel()

	ctx := newTestContext()
	ctx.RegisterService("runstore", 42)

	// Services registered on a module-scoped context are visible globally.
	child := ctx.ForModule("gateway.http")
	child.RegisterService("runner", "r")

	if v, ok := ctx.Service("runner"); !ok || v != "r" {
		t.Errorf("Service(runner) = %v, %v", v, ok)
	}
	if v, ok := child.Service("runstore"); !ok || v != 42 {
		t.Errorf("Service(runstore) = %v, %v", v, ok)
	}
	if _, ok := ctx.Service("missing"); ok {
		t.Error("missing service should not resolve")
	}
}

func TestRegisterModule_Duplicate(t *testing.T) {
	resetRegistry()
	t.Cleanup(resetRegistry)

	var calls []string
	RegisterModule(&trackingModule{id: "dup.mod", calls: &calls})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	RegisterModule(&trackingModule{id: "dup.mod", calls: &calls})
}
