package domain

// Context is the read view handed to computed fields, custom predicates and handlers
// at visit time. It is rebuilt by the host for every visit; nothing here is cached.
type Context struct {
	// ModuleID is the module owning the current dialogue or task.
	ModuleID string

	// InteractableID is set when the dialogue belongs to an interactable.
	InteractableID string

	// Progress is the profile's progress document. It may be nil for stateless previews.
	Progress *Progress

	// Vars holds host-supplied values (player name, locale, ...).
	Vars map[string]any
}

// Module returns the progress of the context's module. It never returns nil.
func (c *Context) Module() *ModuleProgress {
	return c.ModuleOf("")
}

// ModuleOf returns the progress of any module, or an empty view if it was never entered.
// An empty id refers to the context's module.
func (c *Context) ModuleOf(moduleID string) *ModuleProgress {
	if c == nil {
		return &ModuleProgress{ModuleID: moduleID}
	}
	if moduleID == "" {
		moduleID = c.ModuleID
	}
	if c.Progress == nil {
		return &ModuleProgress{ModuleID: moduleID}
	}
	if m, ok := c.Progress.Modules[moduleID]; ok && m != nil {
		return m
	}
	return &ModuleProgress{ModuleID: moduleID}
}

// Var returns a host variable.
func (c *Context) Var(key string) (any, bool) {
	if c == nil || c.Vars == nil {
		return nil, false
	}
	v, ok := c.Vars[key]
	return v, ok
}
