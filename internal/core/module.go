// Package core provides the module system foundation for cronside.
// Components (run store, runner, scheduler, gateway, notifier) register
// themselves at init time and are wired together through an AppContext.
package core

import "strings"

// ModuleID identifies a module, namespaced with dots (e.g. "store.file",
// "gateway.http"). The part before the first dot is the namespace.
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	s := string(id)
	if i := strings.Index(s, "."); i >= 0 {
		return s[:i]
	}
	return s
}

// Name returns the part of the ID after the first dot.
func (id ModuleID) Name() string {
	s := string(id)
	if i := strings.Index(s, "."); i >= 0 {
		return s[i+1:]
	}
	return ""
}

// ModuleInfo describes a registered module: its ID and a constructor for
// fresh instances.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// Module is the minimal interface every module implements. Lifecycle
// behavior is opt-in via Configurable, Provisioner, Validator, Starter,
// and Stopper.
type Module interface {
	ModuleInfo() ModuleInfo
}
