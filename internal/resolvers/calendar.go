package resolvers

import (
	"convoassist/internal/contracts"
	"convoassist/internal/llmgateway"
	"convoassist/internal/planner"
)

const calendarSchemaJSON = `{
  "type": "object",
  "required": ["operation"],
  "properties": {
    "operation": {"type": "string", "enum": ["create", "get", "delete", "update", "deleteByWindow", "updateByWindow"]},
    "summary": {"type": "string"},
    "description": {"type": "string"},
    "start": {"type": "string"},
    "end": {"type": "string"},
    "timeMin": {"type": "string"},
    "timeMax": {"type": "string"},
    "excludeSummaries": {"type": "array", "items": {"type": "string"}},
    "recurringSeriesIntent": {"type": "boolean"}
  }
}`

// NewCalendar builds the calendar capability Resolver.
func NewCalendar(gateway llmgateway.Gateway, model string, temperature float64, maxTokens int) Resolver {
	_ = contracts.RegisterSchema("resolver.calendar", calendarSchemaJSON)
	return &llmResolver{
		capability: "calendar",
		actions:    []string{"create", "get", "delete", "update", "deleteByWindow", "updateByWindow", "list events"},
		entityType: "calendarEvent",
		entityOps:  map[string]bool{"delete": true, "update": true, "deleteByWindow": true, "updateByWindow": true},
		schema:     "resolver.calendar",
		systemPrompt: "You translate a calendar plan step into a structured operation. " +
			"Respond with JSON: {operation, summary?, description?, start?, end?, timeMin?, timeMax?, " +
			"excludeSummaries?, recurringSeriesIntent?}. Never invent an event id — if the user refers " +
			"to an event by description, leave identification to entity resolution.",
		gateway:     gateway,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		fallback:    calendarFallback,
	}
}

func calendarFallback(step planner.PlanStep, rctx ResolveContext) ResolverOutput {
	op := "get"
	switch step.ActionHint {
	case "create":
		op = "create"
	case "delete":
		op = "deleteByWindow"
	case "update":
		op = "updateByWindow"
	}
	resultType := TypeNeedsEntityResolution
	if op == "create" || op == "get" {
		resultType = TypeExecute
	}
	return ResolverOutput{
		Type: resultType,
		Args: map[string]any{
			"operation": op,
			"summary":   step.Constraints.RawMessage,
		},
	}
}
