package trigger

// MapVariables projects an event context into process variables.
// Without mappings it emits the default set: entityId, workspaceId, triggeredBy and
// triggerType. With mappings, outputs whose source resolves to undefined are omitted.
func MapVariables(mappings VariableMappings, ctx EventContext) map[string]any {
	vars := make(map[string]any)
	if len(mappings) == 0 {
		setIfPresent(vars, CtxEntityID, ctx[CtxEntityID])
		setIfPresent(vars, CtxWorkspaceID, ctx[CtxWorkspaceID])
		actor := ctx[CtxUserID]
		if !truthy(actor) {
			actor = ctx[CtxCreatedByID]
		}
		setIfPresent(vars, CtxTriggeredBy, actor)
		setIfPresent(vars, CtxTriggerType, ctx[CtxTriggerType])
		return vars
	}
	for name, source := range mappings {
		if v, ok := ResolvePath(source, ctx); ok {
			vars[name] = v
		}
	}
	return vars
}

func setIfPresent(vars map[string]any, key string, v any) {
	if v != nil {
		vars[key] = v
	}
}
