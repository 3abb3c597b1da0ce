// Package reason implements the bounded multi-round reasoning loop and its
// domain objects: the deep plan, reasoning steps, and the terminal result.
package reason

import "strings"

// Plan is the decomposition produced by the planning stage. It is created
// once per run and read-only afterward.
type Plan struct {
	Objective       string   `json:"objective"`
	Constraints     []string `json:"constraints,omitempty"`
	Subtasks        []string `json:"subtasks,omitempty"`
	SuccessCriteria []string `json:"success_criteria,omitempty"`
}

// Empty reports whether the plan carries no objective and no subtasks.
func (p Plan) Empty() bool {
	return strings.TrimSpace(p.Objective) == "" && len(p.Subtasks) == 0
}

// FallbackPlan returns the degenerate single-subtask plan used when planning
// fails or the question is empty.
func FallbackPlan(question string) Plan {
	objective := strings.TrimSpace(question)
	if objective == "" {
		objective = "answer the question"
	}
	return Plan{
		Objective:       objective,
		Subtasks:        []string{"answer the question directly"},
		SuccessCriteria: []string{"the answer addresses the question"},
	}
}

// ParsePlan reads the structured-section planning reply:
//
//	OBJECTIVE: <one sentence>
//	CONSTRAINTS:
//	- ...
//	SUBTASKS:
//	- ...
//	SUCCESS:
//	- ...
//
// Unknown lines are ignored. A reply without an objective yields the fallback
// plan for the given question.
func ParsePlan(raw, question string) Plan {
	var plan Plan
	section := ""
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "OBJECTIVE:"):
			plan.Objective = strings.TrimSpace(line[len("OBJECTIVE:"):])
			section = ""
		case strings.HasPrefix(upper, "CONSTRAINTS:"):
			section = "constraints"
		case strings.HasPrefix(upper, "SUBTASKS:"):
			section = "subtasks"
		case strings.HasPrefix(upper, "SUCCESS:"):
			section = "success"
		case strings.HasPrefix(line, "-"):
			item := strings.TrimSpace(strings.TrimPrefix(line, "-"))
			if item == "" {
				continue
			}
			switch section {
			case "constraints":
				plan.Constraints = append(plan.Constraints, item)
			case "subtasks":
				plan.Subtasks = append(plan.Subtasks, item)
			case "success":
				plan.SuccessCriteria = append(plan.SuccessCriteria, item)
			}
		}
	}
	if plan.Empty() {
		return FallbackPlan(question)
	}
	return plan
}
