package core

import (
	"fmt"
	"sort"
	"strings"
)

type actionKey struct {
	operation Operation
	name      string
}

// ActionRegistry maps (operation, name) to an action. It is built once and
// is read-only afterwards, so lookups need no locking.
type ActionRegistry struct {
	actions map[actionKey]Action
}

// NewActionRegistry registers every action under each operation it
// implements. Two actions claiming the same key fail the whole build.
func NewActionRegistry(actions ...Action) (*ActionRegistry, error) {
	registry := &ActionRegistry{actions: make(map[actionKey]Action, len(actions))}
	for _, action := range actions {
		if action == nil {
			return nil, fmt.Errorf("core: action is nil")
		}
		name := strings.TrimSpace(action.Name())
		if name == "" {
			return nil, fmt.Errorf("core: action name is required")
		}
		operations := actionOperations(action)
		if len(operations) == 0 {
			return nil, fmt.Errorf("core: action %q implements neither auth nor sign", name)
		}
		for _, operation := range operations {
			key := actionKey{operation: operation, name: name}
			if _, exists := registry.actions[key]; exists {
				return nil, fmt.Errorf("core: an action for %q under the name %q is already registered", operation, name)
			}
			registry.actions[key] = action
		}
	}
	return registry, nil
}

func actionOperations(action Action) []Operation {
	operations := make([]Operation, 0, 2)
	if _, ok := action.(AuthAction); ok {
		operations = append(operations, OperationAuth)
	}
	if _, ok := action.(SignAction); ok {
		operations = append(operations, OperationSign)
	}
	return operations
}

func (r *ActionRegistry) Get(operation Operation, name string) (Action, bool) {
	if r == nil {
		return nil, false
	}
	action, ok := r.actions[actionKey{operation: operation, name: strings.TrimSpace(name)}]
	return action, ok
}

func (r *ActionRegistry) Auth(name string) (AuthAction, bool) {
	action, ok := r.Get(OperationAuth, name)
	if !ok {
		return nil, false
	}
	authAction, ok := action.(AuthAction)
	return authAction, ok
}

func (r *ActionRegistry) Sign(name string) (SignAction, bool) {
	action, ok := r.Get(OperationSign, name)
	if !ok {
		return nil, false
	}
	signAction, ok := action.(SignAction)
	return signAction, ok
}

// Keys lists the registered keys as "operation:name", sorted.
func (r *ActionRegistry) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.actions))
	for key := range r.actions {
		keys = append(keys, string(key.operation)+":"+key.name)
	}
	sort.Strings(keys)
	return keys
}
