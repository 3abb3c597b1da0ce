package reason

import "testing"

func TestParsePlan_FullReply(t *testing.T) {
	t.Parallel()

	raw := `OBJECTIVE: Explain why the sky is blue.
CONSTRAINTS:
- stay within visible-light physics
SUBTASKS:
- describe Rayleigh scattering
- relate wavelength to scattering strength
SUCCESS:
- the mechanism is named`
	plan := ParsePlan(raw, "why is the sky blue?")

	if plan.Objective != "Explain why the sky is blue." {
		t.Fatalf("objective = %q", plan.Objective)
	}
	if len(plan.Constraints) != 1 {
		t.Fatalf("constraints = %v", plan.Constraints)
	}
	if len(plan.Subtasks) != 2 || plan.Subtasks[1] != "relate wavelength to scattering strength" {
		t.Fatalf("subtasks = %v", plan.Subtasks)
	}
	if len(plan.SuccessCriteria) != 1 {
		t.Fatalf("success criteria = %v", plan.SuccessCriteria)
	}
}

func TestParsePlan_GarbageYieldsFallback(t *testing.T) {
	t.Parallel()

	plan := ParsePlan("I cannot help with that.", "what is entropy?")
	if plan.Empty() {
		t.Fatal("fallback plan must not be empty")
	}
	if plan.Objective != "what is entropy?" {
		t.Fatalf("objective = %q", plan.Objective)
	}
	if len(plan.Subtasks) != 1 {
		t.Fatalf("subtasks = %v, want single fallback subtask", plan.Subtasks)
	}
}

func TestParsePlan_ItemsOutsideSectionsIgnored(t *testing.T) {
	t.Parallel()

	raw := "- stray item\nOBJECTIVE: real objective\n- another stray"
	plan := ParsePlan(raw, "q")
	if plan.Objective != "real objective" {
		t.Fatalf("objective = %q", plan.Objective)
	}
	if len(plan.Subtasks) != 0 || len(plan.Constraints) != 0 {
		t.Fatalf("stray items must be dropped: %+v", plan)
	}
}

func TestFallbackPlan_EmptyQuestion(t *testing.T) {
	t.Parallel()

	plan := FallbackPlan("   ")
	if plan.Objective == "" {
		t.Fatal("fallback objective must not be empty")
	}
	if plan.Empty() {
		t.Fatal("fallback plan must not be empty")
	}
}

func TestPlanEmpty(t *testing.T) {
	t.Parallel()

	if !(Plan{}).Empty() {
		t.Fatal("zero plan must be empty")
	}
	if (Plan{Subtasks: []string{"t"}}).Empty() {
		t.Fatal("plan with subtasks must not be empty")
	}
	if (Plan{Objective: "o"}).Empty() {
		t.Fatal("plan with objective must not be empty")
	}
}
