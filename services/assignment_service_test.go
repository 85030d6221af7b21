package services

import (
	"fmt"
	"math/rand"
	"testing"
)

func countLoads(planned []assignmentPair) (map[string]int, map[int]int) {
	perReviewer := make(map[string]int)
	perTrabalho := make(map[int]int)
	for _, pair := range planned {
		perReviewer[pair.reviewerID]++
		perTrabalho[pair.trabalhoID]++
	}
	return perReviewer, perTrabalho
}

func TestPlanAssignmentsRespectsBothQuotas(t *testing.T) {
	// 2 reviewers, 3 trabalhos, max 2 per reviewer, max 1 per trabalho.
	// Every trabalho can hold one review and the reviewers can absorb four,
	// so exactly 3 assignments are achievable.
	reviewers := []string{"R1", "R2"}
	trabalhos := []int{1, 2, 3}
	rng := rand.New(rand.NewSource(7))

	planned := planAssignments(reviewers, trabalhos, nil, nil, nil, 2, 1, rng)

	if len(planned) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(planned))
	}

	perReviewer, perTrabalho := countLoads(planned)
	for reviewerID, load := range perReviewer {
		if load > 2 {
			t.Fatalf("reviewer %s exceeded quota: %d", reviewerID, load)
		}
	}
	for trabalhoID, load := range perTrabalho {
		if load > 1 {
			t.Fatalf("trabalho %d exceeded cap: %d", trabalhoID, load)
		}
	}
}

func TestPlanAssignmentsIsIdempotent(t *testing.T) {
	reviewers := []string{"R1", "R2", "R3"}
	trabalhos := []int{1, 2, 3, 4}

	first := planAssignments(reviewers, trabalhos, nil, nil, nil, 2, 2, rand.New(rand.NewSource(1)))
	if len(first) == 0 {
		t.Fatal("expected the first pass to create assignments")
	}

	existing := make(map[assignmentPair]bool, len(first))
	reviewerLoad, trabalhoLoad := countLoads(first)
	for _, pair := range first {
		existing[pair] = true
	}

	second := planAssignments(reviewers, trabalhos, existing, reviewerLoad, trabalhoLoad, 2, 2, rand.New(rand.NewSource(2)))
	if len(second) != 0 {
		t.Fatalf("expected idempotent re-run to plan nothing, got %d pairs", len(second))
	}
}

func TestPlanAssignmentsNeverDuplicatesExistingPair(t *testing.T) {
	reviewers := []string{"R1"}
	trabalhos := []int{1}
	existing := map[assignmentPair]bool{
		{trabalhoID: 1, reviewerID: "R1"}: true,
	}
	reviewerLoad := map[string]int{"R1": 1}
	trabalhoLoad := map[int]int{1: 1}

	planned := planAssignments(reviewers, trabalhos, existing, reviewerLoad, trabalhoLoad, 5, 5, rand.New(rand.NewSource(3)))
	if len(planned) != 0 {
		t.Fatalf("expected no new pairs, got %v", planned)
	}
}

func TestPlanAssignmentsExcludesTrabalhosAtCapUpFront(t *testing.T) {
	reviewers := []string{"R1", "R2"}
	trabalhos := []int{1, 2}
	trabalhoLoad := map[int]int{1: 2}

	planned := planAssignments(reviewers, trabalhos, nil, nil, trabalhoLoad, 1, 2, rand.New(rand.NewSource(4)))

	for _, pair := range planned {
		if pair.trabalhoID == 1 {
			t.Fatalf("trabalho 1 was already at cap, got pair %v", pair)
		}
	}
	if len(planned) != 2 {
		t.Fatalf("expected both reviewers on trabalho 2, got %v", planned)
	}
}

func TestPlanAssignmentsEmptyInputsPlanNothing(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	if planned := planAssignments(nil, []int{1, 2}, nil, nil, nil, 2, 2, rng); len(planned) != 0 {
		t.Fatalf("expected nothing for empty reviewers, got %v", planned)
	}
	if planned := planAssignments([]string{"R1"}, nil, nil, nil, nil, 2, 2, rng); len(planned) != 0 {
		t.Fatalf("expected nothing for empty pool, got %v", planned)
	}
	if planned := planAssignments([]string{"R1"}, []int{1}, nil, nil, nil, 0, 2, rng); len(planned) != 0 {
		t.Fatalf("expected nothing for zero reviewer quota, got %v", planned)
	}
	if planned := planAssignments([]string{"R1"}, []int{1}, nil, nil, nil, 2, 0, rng); len(planned) != 0 {
		t.Fatalf("expected nothing for zero trabalho cap, got %v", planned)
	}
}

func TestPlanAssignmentsPartialDistributionIsTerminal(t *testing.T) {
	// One trabalho cannot satisfy three reviewers wanting two each.
	reviewers := []string{"R1", "R2", "R3"}
	trabalhos := []int{1}

	planned := planAssignments(reviewers, trabalhos, nil, nil, nil, 2, 3, rand.New(rand.NewSource(6)))

	if len(planned) != 3 {
		t.Fatalf("expected the trabalho cap to bound the plan at 3, got %d", len(planned))
	}
	perReviewer, _ := countLoads(planned)
	for reviewerID, load := range perReviewer {
		if load != 1 {
			t.Fatalf("expected each reviewer to get exactly one, %s got %d", reviewerID, load)
		}
	}
}

func TestPlanAssignmentsBoundsHoldOnLargeInputs(t *testing.T) {
	reviewers := make([]string, 20)
	for i := range reviewers {
		reviewers[i] = fmt.Sprintf("R%02d", i)
	}
	trabalhos := make([]int, 30)
	for i := range trabalhos {
		trabalhos[i] = i + 1
	}

	planned := planAssignments(reviewers, trabalhos, nil, nil, nil, 5, 3, rand.New(rand.NewSource(42)))

	seen := make(map[assignmentPair]bool, len(planned))
	for _, pair := range planned {
		if seen[pair] {
			t.Fatalf("duplicate pair planned: %v", pair)
		}
		seen[pair] = true
	}

	perReviewer, perTrabalho := countLoads(planned)
	for reviewerID, load := range perReviewer {
		if load > 5 {
			t.Fatalf("reviewer %s exceeded quota: %d", reviewerID, load)
		}
	}
	for trabalhoID, load := range perTrabalho {
		if load > 3 {
			t.Fatalf("trabalho %d exceeded cap: %d", trabalhoID, load)
		}
	}

	// Both sides have slack for min(20*5, 30*3) = 90 pairs.
	if len(planned) != 90 {
		t.Fatalf("expected the reviewer quotas to be saturated at 90, got %d", len(planned))
	}
}
