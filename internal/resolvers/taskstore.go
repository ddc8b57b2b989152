package resolvers

import (
	"fmt"

	"convoassist/internal/contracts"
	"convoassist/internal/llmgateway"
	"convoassist/internal/planner"
)

const taskStoreSchemaJSON = `{
  "type": "object",
  "required": ["operation"],
  "properties": {
    "operation": {"type": "string", "enum": ["create", "createMultiple", "update", "delete", "deleteAll", "get"]},
    "text": {"type": "string"},
    "dueDate": {"type": "string"},
    "reminder": {"type": "string"},
    "tasks": {"type": "array"}
  }
}`

// defaultReminderTime is the clock time the deterministic fallback puts
// on every recurring reminder ("daily@09:00"); the fallback does not
// read a clock time from the message.
const defaultReminderTime = "09:00"

// NewTaskStore builds the taskStore capability Resolver.
// taskCompleteMeansDelete preserves the legacy behavior (spec.md §9
// open question) where marking a reminder "complete" is implemented as
// deleting it outright; made configurable rather than hardcoded.
func NewTaskStore(gateway llmgateway.Gateway, model string, temperature float64, maxTokens int, taskCompleteMeansDelete bool) Resolver {
	_ = contracts.RegisterSchema("resolver.taskStore", taskStoreSchemaJSON)
	return &llmResolver{
		capability: "taskStore",
		actions:    []string{"create", "createMultiple", "update", "delete", "deleteAll", "get"},
		entityType: "task",
		entityOps:  map[string]bool{"update": true, "delete": true, "deleteAll": true},
		schema:     "resolver.taskStore",
		systemPrompt: "You translate a reminder/task plan step into a structured operation. " +
			"Respond with JSON: {operation, text?, dueDate?, reminder?, tasks?}. A list of same-kind " +
			"items becomes one createMultiple call with a tasks array, not several steps. Normalize " +
			"recurrence phrasing (daily/weekly/monthly/nudge) to a short canonical reminder string.",
		gateway:     gateway,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		fallback:    taskStoreFallback(taskCompleteMeansDelete),
	}
}

func taskStoreFallback(taskCompleteMeansDelete bool) fallbackFunc {
	return func(step planner.PlanStep, rctx ResolveContext) ResolverOutput {
		message := step.Constraints.RawMessage
		verb, _ := classifyCRUDVerb(message)
		style := classifyReminderStyle(message)

		operation := verb
		switch verb {
		case "complete":
			if taskCompleteMeansDelete {
				operation = "delete"
			} else {
				operation = "update"
			}
		case "create":
			operation = "create"
		}

		args := map[string]any{
			"operation": operation,
			"text":      message,
			"reminder":  canonicalReminder(style),
		}
		resultType := TypeExecute
		if operation == "update" || operation == "delete" {
			resultType = TypeNeedsEntityResolution
		}
		return ResolverOutput{Type: resultType, Args: args}
	}
}

func canonicalReminder(style reminderStyle) string {
	switch style {
	case reminderRecurring:
		return fmt.Sprintf("daily@%s", defaultReminderTime)
	case reminderNudge:
		return "nudge"
	default:
		return "0 minutes"
	}
}
