package main

import (
	"strings"
	"testing"

	"valuescout/models"
	"valuescout/services"
)

func TestRenderComparisonListsTopResults(t *testing.T) {
	result := services.ComparisonResult{
		Query: "nike air max",
		Top: []models.ScoredCandidate{
			{CandidateListing: models.CandidateListing{Source: "Flipkart", Title: "Nike Air Max SC", Price: models.Float(4495), Link: "https://www.flipkart.com/p/1"}, Score: 21},
			{CandidateListing: models.CandidateListing{Source: "Amazon", Title: "Nike Air Max 90", Link: "https://www.amazon.in/dp/B000000001"}, Score: 19},
		},
	}

	out := renderComparison(result)
	for _, want := range []string{"Flipkart", "₹4495.00", "n/a", "https://www.amazon.in/dp/B000000001"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderComparisonEmpty(t *testing.T) {
	out := renderComparison(services.ComparisonResult{Query: "nothing"})
	if !strings.Contains(out, "No relevant listings found") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRenderSweep(t *testing.T) {
	run := models.NewSweepRun("manual")
	run.Checked = 4
	run.AlertsCreated = 2
	run.Complete()

	out := renderSweep(*run)
	if !strings.Contains(out, run.ID) || !strings.Contains(out, "completed") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("truncate long = %q", got)
	}
	if got := joinArgs([]string{" nike", "air", "max "}); got != "nike air max" {
		t.Errorf("joinArgs = %q", got)
	}
}
