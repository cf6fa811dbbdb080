package queue_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"clipscribe/internal/queue"
	"clipscribe/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewFile(ctx, "/videos/partida_final.mkv", "gaming")
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}
	if item.Title != "partida final" {
		t.Fatalf("unexpected inferred title: %q", item.Title)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.SourcePath != "/videos/partida_final.mkv" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
	if fetched.Profile != "gaming" {
		t.Fatalf("unexpected profile: %q", fetched.Profile)
	}

	found, err := store.FindBySourcePath(ctx, "/videos/partida_final.mkv")
	if err != nil {
		t.Fatalf("FindBySourcePath failed: %v", err)
	}
	if found == nil || found.ID != item.ID {
		t.Fatalf("expected to find inserted item, got %#v", found)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "queue.db")

	store, err := queue.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	if _, err := store.DB().Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump schema version: %v", err)
	}
	store.Close()

	if _, err := queue.OpenPath(dbPath); err == nil {
		t.Fatal("expected schema mismatch error")
	}
}

func TestUpdatePersistsFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewFile(t, store, "/videos/clip.mkv")

	item.Status = queue.StatusExtracted
	item.AudioFile = "/work/clip.wav"
	item.SpeechSpansJSON = `[{"start":0,"end":1.5}]`
	item.SetProgress("Extracting audio", "done", 100)
	item.NeedsReview = true
	item.ReviewReason = "low confidence"
	now := time.Now().UTC()
	item.LastHeartbeat = &now
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusExtracted {
		t.Fatalf("expected extracted, got %s", fetched.Status)
	}
	if fetched.AudioFile != "/work/clip.wav" {
		t.Fatalf("unexpected audio file: %q", fetched.AudioFile)
	}
	if fetched.SpeechSpansJSON == "" {
		t.Fatal("expected speech spans to persist")
	}
	if !fetched.NeedsReview || fetched.ReviewReason != "low confidence" {
		t.Fatalf("review flags not persisted: %#v", fetched)
	}
	if fetched.LastHeartbeat == nil {
		t.Fatal("expected heartbeat to persist")
	}
}

func TestNextForStatusesReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewFile(t, store, "/videos/a.mkv")
	testsupport.NewFile(t, store, "/videos/b.mkv")

	next, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending item, got %#v", next)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusCompleted)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for empty status, got %#v", none)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		initialStatus queue.Status
		expected      queue.Status
	}{
		{queue.StatusExtracting, queue.StatusPending},
		{queue.StatusDetecting, queue.StatusExtracted},
		{queue.StatusTranscribing, queue.StatusDetected},
		{queue.StatusCorrecting, queue.StatusTranscribed},
		{queue.StatusRendering, queue.StatusCorrected},
	}
	var ids []int64
	for i, tc := range cases {
		item := testsupport.NewFile(t, store, fmt.Sprintf("/videos/stuck-%d.mkv", i))
		item.Status = tc.initialStatus
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, item.ID)
	}

	reset, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if reset != int64(len(cases)) {
		t.Fatalf("expected %d items reset, got %d", len(cases), reset)
	}

	for i, tc := range cases {
		fetched, err := store.GetByID(ctx, ids[i])
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if fetched.Status != tc.expected {
			t.Fatalf("item %d: expected %s, got %s", i, tc.expected, fetched.Status)
		}
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()

	stale := testsupport.NewFile(t, store, "/videos/stale.mkv")
	stale.Status = queue.StatusTranscribing
	old := time.Now().UTC().Add(-time.Hour)
	stale.LastHeartbeat = &old
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fresh := testsupport.NewFile(t, store, "/videos/fresh.mkv")
	fresh.Status = queue.StatusTranscribing
	now := time.Now().UTC()
	fresh.LastHeartbeat = &now
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reclaimed, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected 1 reclaimed item, got %d", reclaimed)
	}

	fetched, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusDetected {
		t.Fatalf("expected rollback to detected, got %s", fetched.Status)
	}
	if fetched.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared")
	}

	untouched, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != queue.StatusTranscribing {
		t.Fatalf("fresh item should stay transcribing, got %s", untouched.Status)
	}
}

func TestUpdateHeartbeat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewFile(t, store, "/videos/beat.mkv")
	if err := store.UpdateHeartbeat(ctx, item.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.LastHeartbeat == nil {
		t.Fatal("expected heartbeat timestamp")
	}
	if time.Since(*fetched.LastHeartbeat) > time.Minute {
		t.Fatalf("heartbeat not recent: %v", fetched.LastHeartbeat)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewFile(t, store, "/videos/broken.mkv")
	item.SetFailed("whisper crashed")
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	retried, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected 1 retried item, got %d", retried)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusPending {
		t.Fatalf("expected pending after retry, got %s", fetched.Status)
	}
	if fetched.ErrorMessage != "" {
		t.Fatalf("expected error cleared, got %q", fetched.ErrorMessage)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	pending := testsupport.NewFile(t, store, "/videos/one.mkv")
	_ = pending

	working := testsupport.NewFile(t, store, "/videos/two.mkv")
	working.Status = queue.StatusDetecting
	if err := store.Update(ctx, working); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	done := testsupport.NewFile(t, store, "/videos/three.mkv")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	failed := testsupport.NewFile(t, store, "/videos/four.mkv")
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusPending] != 1 || stats[queue.StatusDetecting] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 4 || health.Pending != 1 || health.Processing != 1 || health.Completed != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}

func TestClearHelpers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	done := testsupport.NewFile(t, store, "/videos/done.mkv")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	failed := testsupport.NewFile(t, store, "/videos/failed.mkv")
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	testsupport.NewFile(t, store, "/videos/waiting.mkv")

	removedCompleted, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if removedCompleted != 1 {
		t.Fatalf("expected 1 completed removed, got %d", removedCompleted)
	}

	removedFailed, err := store.ClearFailed(ctx)
	if err != nil {
		t.Fatalf("ClearFailed failed: %v", err)
	}
	if removedFailed != 1 {
		t.Fatalf("expected 1 failed removed, got %d", removedFailed)
	}

	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 remaining item, got %d", len(remaining))
	}

	removedAll, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removedAll != 1 {
		t.Fatalf("expected 1 item cleared, got %d", removedAll)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewFile(ctx, "/videos/raid.mkv", "gaming")
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	// A daemon and a one-shot run each fetch the same pending item.
	daemonCopy, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	cliCopy, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	claimed, err := store.Claim(ctx, daemonCopy, queue.StatusExtracting, "daemon-token")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if !claimed {
		t.Fatal("first claim should succeed")
	}

	claimed, err = store.Claim(ctx, cliCopy, queue.StatusExtracting, "cli-token")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if claimed {
		t.Fatal("second claim against the stale status must lose")
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusExtracting || fetched.RunToken != "daemon-token" {
		t.Fatalf("winner's claim was overwritten: %#v", fetched)
	}
}

func TestUpdateRejectsStaleClaim(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewFile(ctx, "/videos/raid.mkv", "gaming")
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	firstWorker, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if claimed, err := store.Claim(ctx, firstWorker, queue.StatusExtracting, "first-token"); err != nil || !claimed {
		t.Fatalf("Claim failed: claimed=%v err=%v", claimed, err)
	}

	// The item goes stale, gets rolled back, and a second worker claims it.
	if _, err := store.ResetStuckProcessing(ctx); err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	secondWorker, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if claimed, err := store.Claim(ctx, secondWorker, queue.StatusExtracting, "second-token"); err != nil || !claimed {
		t.Fatalf("Claim failed: claimed=%v err=%v", claimed, err)
	}

	// The first worker finishes late; its write must be rejected.
	firstWorker.Status = queue.StatusExtracted
	firstWorker.AudioFile = "/tmp/stale.wav"
	firstWorker.RunToken = ""
	if err := store.Update(ctx, firstWorker); !errors.Is(err, queue.ErrStaleClaim) {
		t.Fatalf("expected ErrStaleClaim, got %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.RunToken != "second-token" || fetched.AudioFile != "" {
		t.Fatalf("stale worker overwrote the active claim: %#v", fetched)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Transcribing "); !ok || status != queue.StatusTranscribing {
		t.Fatalf("unexpected parse result: %v %v", status, ok)
	}
	if _, ok := queue.ParseStatus("bogus"); ok {
		t.Fatal("expected unknown status to fail")
	}
}
