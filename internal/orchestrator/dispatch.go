package orchestrator

import (
	"fmt"
	"time"

	"convoassist/internal/executors"
	"convoassist/internal/timectx"
)

// dispatch sends a fully-resolved operation to the domain executor and
// returns the uniform Result the step-execution loop records on
// PipelineState.PerStepResults. Executing the actual external side
// effect is the executor's job; dispatch only translates the
// resolver/entity-resolver args shape into the executor's typed calls.
func dispatch(domain string, args map[string]any, resolvedIDs []string, isRecurring bool, seriesID string, now timectx.TimeContext, execs ExecutorSet) executors.Result {
	switch domain {
	case "calendar":
		return dispatchCalendar(execs.Calendar, args, resolvedIDs, isRecurring, seriesID, now)
	case "taskStore", "task":
		return dispatchTaskStore(execs.TaskStore, args, resolvedIDs, now)
	case "email", "emailDraft":
		return dispatchEmail(execs.Email, args, resolvedIDs)
	case "memory", "memoryNote":
		return dispatchMemory(execs.Memory, args, resolvedIDs, now)
	default:
		return executors.Result{Success: false, Error: fmt.Sprintf("orchestrator: no executor for domain %q", domain)}
	}
}

func errResult(err error) executors.Result {
	if err == nil {
		return executors.Result{Success: true}
	}
	return executors.Result{Success: false, Error: err.Error()}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringSlice(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func parseTimeOr(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return fallback
}

// singleID returns args["id"], falling back to the first resolved id.
func singleID(args map[string]any, resolvedIDs []string) string {
	if id := asString(args["id"]); id != "" {
		return id
	}
	if len(resolvedIDs) > 0 {
		return resolvedIDs[0]
	}
	return ""
}

func idsOrSelf(resolvedIDs []string, id string) []string {
	if len(resolvedIDs) > 0 {
		return resolvedIDs
	}
	if id == "" {
		return nil
	}
	return []string{id}
}

func dispatchCalendar(exec executors.CalendarExecutor, args map[string]any, resolvedIDs []string, isRecurring bool, seriesID string, now timectx.TimeContext) executors.Result {
	op := asString(args["operation"])
	switch op {
	case "create":
		event := calendarEventFromArgs(args, now)
		created, err := exec.Create(event)
		if err != nil {
			return errResult(err)
		}
		return executors.Result{Success: true, Data: created}

	case "get":
		min, max := now.Now.AddDate(0, 0, -7), now.Now.AddDate(0, 0, 30)
		if v := asString(args["timeMin"]); v != "" {
			min = parseTimeOr(v, min)
		}
		if v := asString(args["timeMax"]); v != "" {
			max = parseTimeOr(v, max)
		}
		events, err := exec.List(executors.Filter{TimeMin: min, TimeMax: max})
		if err != nil {
			return errResult(err)
		}
		return executors.Result{Success: true, Data: events}

	case "delete", "deleteByWindow":
		if isRecurring && seriesID != "" {
			n, err := exec.DeleteSeries(seriesID)
			if err != nil {
				return errResult(err)
			}
			return executors.Result{Success: true, Data: n}
		}
		id := singleID(args, resolvedIDs)
		ids := idsOrSelf(resolvedIDs, id)
		if len(ids) == 0 {
			return executors.Result{Success: false, Error: "orchestrator: no event id to delete"}
		}
		deleted := 0
		for _, eventID := range ids {
			if err := exec.Delete(eventID); err != nil {
				return errResult(err)
			}
			deleted++
		}
		return executors.Result{Success: true, Data: deleted}

	case "update", "updateByWindow":
		id := singleID(args, resolvedIDs)
		ids := idsOrSelf(resolvedIDs, id)
		if len(ids) == 0 {
			return executors.Result{Success: false, Error: "orchestrator: no event id to update"}
		}
		updated := make([]executors.CalendarEvent, 0, len(ids))
		for _, eventID := range ids {
			event := calendarEventFromArgs(args, now)
			result, err := exec.Update(eventID, event)
			if err != nil {
				return errResult(err)
			}
			updated = append(updated, result)
		}
		return executors.Result{Success: true, Data: updated}

	default:
		return executors.Result{Success: false, Error: fmt.Sprintf("orchestrator: unknown calendar operation %q", op)}
	}
}

func calendarEventFromArgs(args map[string]any, now timectx.TimeContext) executors.CalendarEvent {
	start := parseTimeOr(asString(args["start"]), now.Now)
	end := parseTimeOr(asString(args["end"]), start.Add(time.Hour))
	return executors.CalendarEvent{
		Summary:     asString(args["summary"]),
		Description: asString(args["description"]),
		Start:       start,
		End:         end,
	}
}

func dispatchTaskStore(exec executors.TaskStoreExecutor, args map[string]any, resolvedIDs []string, now timectx.TimeContext) executors.Result {
	op := asString(args["operation"])
	switch op {
	case "create":
		task := taskFromArgs(args, now)
		created, err := exec.Create(task)
		if err != nil {
			return errResult(err)
		}
		return executors.Result{Success: true, Data: created}

	case "createMultiple":
		rawTasks, _ := args["tasks"].([]any)
		created := make([]executors.Task, 0, len(rawTasks))
		for _, raw := range rawTasks {
			taskArgs, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			task := taskFromArgs(taskArgs, now)
			out, err := exec.Create(task)
			if err != nil {
				return errResult(err)
			}
			created = append(created, out)
		}
		return executors.Result{Success: true, Data: created}

	case "get":
		tasks, err := exec.List(executors.Filter{})
		if err != nil {
			return errResult(err)
		}
		return executors.Result{Success: true, Data: tasks}

	case "delete":
		id := singleID(args, resolvedIDs)
		if id == "" {
			return executors.Result{Success: false, Error: "orchestrator: no task id to delete"}
		}
		if err := exec.Delete(id); err != nil {
			return errResult(err)
		}
		return executors.Result{Success: true}

	case "deleteAll":
		ids := idsOrSelf(resolvedIDs, "")
		deleted := 0
		for _, id := range ids {
			if err := exec.Delete(id); err != nil {
				return errResult(err)
			}
			deleted++
		}
		return executors.Result{Success: true, Data: deleted}

	case "update":
		id := singleID(args, resolvedIDs)
		if id == "" {
			return executors.Result{Success: false, Error: "orchestrator: no task id to update"}
		}
		task := taskFromArgs(args, now)
		updated, err := exec.Update(id, task)
		if err != nil {
			return errResult(err)
		}
		return executors.Result{Success: true, Data: updated}

	default:
		return executors.Result{Success: false, Error: fmt.Sprintf("orchestrator: unknown taskStore operation %q", op)}
	}
}

func taskFromArgs(args map[string]any, now timectx.TimeContext) executors.Task {
	return executors.Task{
		Text:     asString(args["text"]),
		DueDate:  parseTimeOr(asString(args["dueDate"]), now.Now),
		Reminder: asString(args["reminder"]),
	}
}

func dispatchEmail(exec executors.EmailExecutor, args map[string]any, resolvedIDs []string) executors.Result {
	op := asString(args["operation"])
	switch op {
	case "create":
		draft := executors.EmailDraft{
			To:      asStringSlice(args["to"]),
			Subject: asString(args["subject"]),
			Body:    asString(args["body"]),
		}
		created, err := exec.Create(draft)
		if err != nil {
			return errResult(err)
		}
		return executors.Result{Success: true, Data: created}

	case "send":
		id := singleID(args, resolvedIDs)
		if id == "" {
			return executors.Result{Success: false, Error: "orchestrator: no draft id to send"}
		}
		if err := exec.Send(id); err != nil {
			return errResult(err)
		}
		return executors.Result{Success: true}

	default:
		return executors.Result{Success: false, Error: fmt.Sprintf("orchestrator: unknown email operation %q", op)}
	}
}

func dispatchMemory(exec executors.MemoryExecutor, args map[string]any, resolvedIDs []string, now timectx.TimeContext) executors.Result {
	op := asString(args["operation"])
	switch op {
	case "create":
		note := executors.MemoryNote{
			Text:      asString(args["text"]),
			CreatedAt: now.Now,
			Tags:      asStringSlice(args["tags"]),
		}
		created, err := exec.Create(note)
		if err != nil {
			return errResult(err)
		}
		return executors.Result{Success: true, Data: created}

	case "get":
		notes, err := exec.List(executors.Filter{})
		if err != nil {
			return errResult(err)
		}
		return executors.Result{Success: true, Data: notes}

	case "delete":
		id := singleID(args, resolvedIDs)
		if id == "" {
			return executors.Result{Success: false, Error: "orchestrator: no note id to delete"}
		}
		if err := exec.Delete(id); err != nil {
			return errResult(err)
		}
		return executors.Result{Success: true}

	default:
		return executors.Result{Success: false, Error: fmt.Sprintf("orchestrator: unknown memory operation %q", op)}
	}
}
