package engine

// buildContext seeds an execution's variable namespace from the workflow's
// defaults and the trigger/input payloads.
func buildContext(workflowInfo map[string]any, variables, triggerData, inputData map[string]any) map[string]any {
	ctx := map[string]any{
		"workflow": workflowInfo,
		"trigger":  copyValue(triggerData),
		"input":    copyValue(inputData),
	}

	for key, value := range variables {
		ctx[key] = copyValue(value)
	}

	return ctx
}

// copyMap deep-copies a context map so parallel branches cannot observe each
// other's writes.
func copyMap(src map[string]any) map[string]any {
	if src == nil {
		return map[string]any{}
	}

	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = copyValue(value)
	}

	return dst
}

func copyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return copyMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = copyValue(item)
		}

		return out
	default:
		return v
	}
}

// mergeContext overlays src onto dst, last writer wins.
func mergeContext(dst, src map[string]any) {
	for key, value := range src {
		dst[key] = value
	}
}
