package reason

import "testing"

func TestParseStep_FullReply(t *testing.T) {
	t.Parallel()

	raw := `HYPOTHESIS: The sky is blue due to Rayleigh scattering.
CONFIDENCE: 0.82
EVIDENCE:
- atmospheric optics survey
- doc-42`
	step := parseStep(2, raw)

	if step.Round != 2 {
		t.Fatalf("round = %d, want 2", step.Round)
	}
	if step.Hypothesis != "The sky is blue due to Rayleigh scattering." {
		t.Fatalf("hypothesis = %q", step.Hypothesis)
	}
	if step.Confidence != 0.82 {
		t.Fatalf("confidence = %v, want 0.82", step.Confidence)
	}
	if len(step.Evidence) != 2 || step.Evidence[1] != "doc-42" {
		t.Fatalf("evidence = %v", step.Evidence)
	}
	if step.Raw != raw {
		t.Fatal("raw reply must be preserved")
	}
}

func TestParseStep_LowercaseMarkers(t *testing.T) {
	t.Parallel()

	step := parseStep(1, "hypothesis: casing is flexible\nconfidence: 0.7")
	if step.Hypothesis != "casing is flexible" {
		t.Fatalf("hypothesis = %q", step.Hypothesis)
	}
	if step.Confidence != 0.7 {
		t.Fatalf("confidence = %v", step.Confidence)
	}
}

func TestParseStep_UnstructuredReplyFallsBackToFirstLine(t *testing.T) {
	t.Parallel()

	step := parseStep(1, "\n\nJust plain prose with no markers.\nSecond line.")
	if step.Hypothesis != "Just plain prose with no markers." {
		t.Fatalf("hypothesis = %q", step.Hypothesis)
	}
	if step.Confidence != defaultConfidence {
		t.Fatalf("confidence = %v, want default", step.Confidence)
	}
}

func TestParseStep_ConfidenceClampedAndDefaulted(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want float64
	}{
		{"HYPOTHESIS: h\nCONFIDENCE: 1.7", 1},
		{"HYPOTHESIS: h\nCONFIDENCE: -0.3", 0},
		{"HYPOTHESIS: h\nCONFIDENCE: very sure", defaultConfidence},
	}
	for _, tc := range cases {
		if got := parseStep(1, tc.raw).Confidence; got != tc.want {
			t.Fatalf("parseStep(%q).Confidence = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestParseStep_EvidenceStopsAtNextSection(t *testing.T) {
	t.Parallel()

	raw := `EVIDENCE:
- ref-1
HYPOTHESIS: after evidence
- not evidence`
	step := parseStep(1, raw)
	if len(step.Evidence) != 1 || step.Evidence[0] != "ref-1" {
		t.Fatalf("evidence = %v, want [ref-1]", step.Evidence)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	if got := summarize("  spread   over\nlines ", 100); got != "spread over lines" {
		t.Fatalf("summarize = %q", got)
	}
	long := summarize("abcdefghij", 4)
	if long != "abcd..." {
		t.Fatalf("summarize truncated = %q", long)
	}
}
