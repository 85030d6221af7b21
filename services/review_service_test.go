package services

import (
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"
)

var reviewColumns = []string{
	"review_id", "trabalho_id", "reviewer_id", "assignment_id", "locator", "access_code",
	"scores", "note", "started_at", "finished_at", "duration_seconds", "create_at", "update_at",
}

func reviewRow(assignmentID driver.Value, startedAt, finishedAt driver.Value) []driver.Value {
	return []driver.Value{
		int64(1), int64(5), "RV2N9XK4", assignmentID, "LOC1", "SECRET",
		nil, nil, startedAt, finishedAt, nil, time.Now(), nil,
	}
}

func lockReviewStep(row []driver.Value) *sqlStep {
	return &sqlStep{
		kind:    opQuery,
		pattern: regexp.MustCompile("SELECT \\* FROM `reviews` WHERE locator = \\?.*FOR UPDATE"),
		args:    []driver.Value{"LOC1"},
		columns: reviewColumns,
		rows:    [][]driver.Value{row},
	}
}

func trabalhoStep(eventID int) *sqlStep {
	return &sqlStep{
		kind:    opQuery,
		pattern: regexp.MustCompile("SELECT \\* FROM `trabalhos` WHERE trabalho_id = \\?"),
		args:    []driver.Value{int64(5)},
		columns: []string{"trabalho_id", "event_id", "title", "status", "create_at", "update_at", "delete_at"},
		rows: [][]driver.Value{{
			int64(5), int64(eventID), "Estudo de caso", "in_review", time.Now(), nil, nil,
		}},
	}
}

func baremaStep(criteria driver.Value) *sqlStep {
	step := &sqlStep{
		kind:    opQuery,
		pattern: regexp.MustCompile("SELECT \\* FROM `baremas` WHERE event_id = \\?"),
		args:    []driver.Value{int64(2)},
		columns: []string{"barema_id", "event_id", "criteria", "create_at", "update_at"},
		rows:    [][]driver.Value{},
	}
	if criteria != nil {
		step.rows = [][]driver.Value{{int64(1), int64(2), criteria, time.Now(), nil}}
	}
	return step
}

func TestOpenTransitionsPendingToStarted(t *testing.T) {
	steps := []*sqlStep{
		lockReviewStep(reviewRow(nil, nil, nil)),
		{
			kind:    opExec,
			pattern: regexp.MustCompile("UPDATE `reviews` SET `started_at`=\\?,`update_at`=\\? WHERE review_id = \\?"),
			args:    []driver.Value{anyArg{}, anyArg{}, int64(1)},
			result:  scriptResult{rowsAffected: 1},
		},
	}

	db, state, cleanup := newScriptedDB(t, steps)
	defer cleanup()

	svc := &ReviewService{db: db, barema: NewBaremaService(db), audit: NewAuditSink()}
	review, err := svc.openTx(sessionWithoutTx(db), "LOC1", "SECRET")
	if err != nil {
		t.Fatalf("openTx returned error: %v", err)
	}
	if got := review.State(); got != "STARTED" {
		t.Fatalf("expected STARTED after first open, got %s", got)
	}
	if review.StartedAt == nil {
		t.Fatal("expected started_at to be recorded")
	}

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOpenAlreadyStartedIsReadOnly(t *testing.T) {
	startedAt := time.Now().Add(-10 * time.Minute)
	steps := []*sqlStep{
		lockReviewStep(reviewRow(nil, startedAt, nil)),
	}

	db, state, cleanup := newScriptedDB(t, steps)
	defer cleanup()

	svc := &ReviewService{db: db, barema: NewBaremaService(db), audit: NewAuditSink()}
	review, err := svc.openTx(sessionWithoutTx(db), "LOC1", "SECRET")
	if err != nil {
		t.Fatalf("openTx returned error: %v", err)
	}
	if got := review.State(); got != "STARTED" {
		t.Fatalf("expected STARTED, got %s", got)
	}
	if review.StartedAt == nil || !review.StartedAt.Equal(startedAt) {
		t.Fatalf("expected original started_at to be preserved, got %v", review.StartedAt)
	}

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOpenRejectsWrongAccessCodeWithoutWriting(t *testing.T) {
	steps := []*sqlStep{
		lockReviewStep(reviewRow(nil, nil, nil)),
	}

	db, state, cleanup := newScriptedDB(t, steps)
	defer cleanup()

	svc := &ReviewService{db: db, barema: NewBaremaService(db), audit: NewAuditSink()}
	if _, err := svc.openTx(sessionWithoutTx(db), "LOC1", "WRONG"); !errors.Is(err, ErrAccessCode) {
		t.Fatalf("expected ErrAccessCode, got %v", err)
	}

	// The script holds no exec steps, so a state change would have failed.
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubmitPersistsScoresAndCompletesAssignment(t *testing.T) {
	startedAt := time.Now().Add(-15 * time.Minute)
	steps := []*sqlStep{
		lockReviewStep(reviewRow(int64(9), startedAt, nil)),
		trabalhoStep(2),
		baremaStep([]byte(`{"clareza":{"min":0,"max":5},"metodo":{"min":0,"max":5}}`)),
		{
			kind:    opExec,
			pattern: regexp.MustCompile("UPDATE `reviews` SET `duration_seconds`=\\?,`finished_at`=\\?,`note`=\\?,`scores`=\\?,`update_at`=\\? WHERE review_id = \\?"),
			args:    []driver.Value{anyArg{}, anyArg{}, float64(7.5), anyArg{}, anyArg{}, int64(1)},
			result:  scriptResult{rowsAffected: 1},
		},
		{
			kind:    opExec,
			pattern: regexp.MustCompile("UPDATE `assignments` SET `completed`=\\?,`update_at`=\\? WHERE assignment_id = \\?"),
			args:    []driver.Value{true, anyArg{}, int64(9)},
			result:  scriptResult{rowsAffected: 1},
		},
		{
			kind:    opExec,
			pattern: regexp.MustCompile("INSERT INTO `audit_events`"),
			args:    []driver.Value{"review_submitted", nil, int64(5), "RV2N9XK4", nil, anyArg{}, anyArg{}},
			result:  scriptResult{lastInsertID: 1, rowsAffected: 1},
		},
	}

	db, state, cleanup := newScriptedDB(t, steps)
	defer cleanup()

	svc := &ReviewService{db: db, barema: NewBaremaService(db), audit: NewAuditSink()}
	raw := map[string]interface{}{"clareza": 4.5, "metodo": 3, "comentario": "bom"}
	review, err := svc.submitTx(sessionWithoutTx(db), "LOC1", "SECRET", raw)
	if err != nil {
		t.Fatalf("submitTx returned error: %v", err)
	}
	if got := review.State(); got != "FINISHED" {
		t.Fatalf("expected FINISHED, got %s", got)
	}
	if review.Note == nil || *review.Note != 7.5 {
		t.Fatalf("expected note 7.5, got %v", review.Note)
	}
	scores, err := review.ParseScores()
	if err != nil {
		t.Fatalf("stored scores should decode: %v", err)
	}
	if len(scores) != 2 || scores["clareza"] != 4.5 || scores["metodo"] != 3 {
		t.Fatalf("unexpected stored scores: %v", scores)
	}
	if review.DurationSeconds == nil || *review.DurationSeconds < 14*60 {
		t.Fatalf("expected duration to span the open, got %v", review.DurationSeconds)
	}

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubmitRejectsOutOfRangeScoreWithoutWriting(t *testing.T) {
	startedAt := time.Now().Add(-5 * time.Minute)
	steps := []*sqlStep{
		lockReviewStep(reviewRow(int64(9), startedAt, nil)),
		trabalhoStep(2),
		baremaStep([]byte(`{"clareza":{"min":0,"max":5}}`)),
	}

	db, state, cleanup := newScriptedDB(t, steps)
	defer cleanup()

	svc := &ReviewService{db: db, barema: NewBaremaService(db), audit: NewAuditSink()}
	_, err := svc.submitTx(sessionWithoutTx(db), "LOC1", "SECRET", map[string]interface{}{"clareza": 7})

	var violation *RangeViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected RangeViolationError, got %v", err)
	}
	if violation.Criterion != "clareza" || violation.Value != 7 || violation.Max != 5 {
		t.Fatalf("unexpected violation detail: %+v", violation)
	}

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubmitRejectsFinishedReview(t *testing.T) {
	finishedAt := time.Now().Add(-time.Hour)
	steps := []*sqlStep{
		lockReviewStep(reviewRow(int64(9), finishedAt, finishedAt)),
	}

	db, state, cleanup := newScriptedDB(t, steps)
	defer cleanup()

	svc := &ReviewService{db: db, barema: NewBaremaService(db), audit: NewAuditSink()}
	_, err := svc.submitTx(sessionWithoutTx(db), "LOC1", "SECRET", map[string]interface{}{"clareza": 4})
	if !errors.Is(err, ErrReviewFinished) {
		t.Fatalf("expected ErrReviewFinished, got %v", err)
	}

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubmitWithoutBaremaFallsBackToFreeform(t *testing.T) {
	steps := []*sqlStep{
		lockReviewStep(reviewRow(nil, nil, nil)),
		trabalhoStep(2),
		baremaStep(nil),
		{
			kind:    opExec,
			pattern: regexp.MustCompile("UPDATE `reviews` SET `duration_seconds`=\\?,`finished_at`=\\?,`note`=\\?,`scores`=\\?,`started_at`=\\?,`update_at`=\\? WHERE review_id = \\?"),
			args:    []driver.Value{int64(0), anyArg{}, float64(8), anyArg{}, anyArg{}, anyArg{}, int64(1)},
			result:  scriptResult{rowsAffected: 1},
		},
		{
			kind:    opExec,
			pattern: regexp.MustCompile("INSERT INTO `audit_events`"),
			args:    []driver.Value{"review_submitted", nil, int64(5), "RV2N9XK4", nil, anyArg{}, anyArg{}},
			result:  scriptResult{lastInsertID: 2, rowsAffected: 1},
		},
	}

	db, state, cleanup := newScriptedDB(t, steps)
	defer cleanup()

	svc := &ReviewService{db: db, barema: NewBaremaService(db), audit: NewAuditSink()}
	review, err := svc.submitTx(sessionWithoutTx(db), "LOC1", "SECRET", map[string]interface{}{"nota": "8"})
	if err != nil {
		t.Fatalf("submitTx returned error: %v", err)
	}
	if got := review.State(); got != "FINISHED" {
		t.Fatalf("expected FINISHED, got %s", got)
	}
	if review.Note == nil || *review.Note != 8 {
		t.Fatalf("expected note 8, got %v", review.Note)
	}

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
