package workflow_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"clipscribe/internal/config"
	"clipscribe/internal/queue"
	"clipscribe/internal/services"
	"clipscribe/internal/stage"
	"clipscribe/internal/testsupport"
	"clipscribe/internal/workflow"
)

type fakeHandler struct {
	name     string
	onExec   func(ctx context.Context, item *queue.Item) error
	executed atomic.Int64
}

func (f *fakeHandler) Prepare(ctx context.Context, item *queue.Item) error {
	item.SetProgress(f.name, f.name+" started", 0)
	return nil
}

func (f *fakeHandler) Execute(ctx context.Context, item *queue.Item) error {
	f.executed.Add(1)
	if f.onExec != nil {
		return f.onExec(ctx, item)
	}
	item.SetProgressComplete(f.name, f.name+" done")
	return nil
}

func (f *fakeHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(f.name)
}

func fakeStages() (workflow.StageSet, []*fakeHandler) {
	handlers := []*fakeHandler{
		{name: "extraction"},
		{name: "detection"},
		{name: "transcription"},
		{name: "correction"},
		{name: "rendering"},
	}
	set := workflow.StageSet{
		Extractor:   handlers[0],
		Detector:    handlers[1],
		Transcriber: handlers[2],
		Corrector:   handlers[3],
		Renderer:    handlers[4],
	}
	return set, handlers
}

func newManager(t *testing.T, cfg *config.Config, store *queue.Store, set workflow.StageSet) *workflow.Manager {
	t.Helper()
	return workflow.NewManager(cfg, store, nil, set)
}

func TestProcessItemRunsFullPipeline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewFile(t, store, "/videos/clip.mkv")

	set, handlers := fakeStages()
	manager := newManager(t, cfg, store, set)

	if err := manager.ProcessItem(context.Background(), item); err != nil {
		t.Fatalf("ProcessItem failed: %v", err)
	}

	final, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", final.Status, final.ErrorMessage)
	}
	for _, handler := range handlers {
		if handler.executed.Load() != 1 {
			t.Fatalf("handler %s executed %d times", handler.name, handler.executed.Load())
		}
	}
	if final.RunToken != "" {
		t.Fatalf("run token should be cleared, got %q", final.RunToken)
	}
}

func TestProcessItemSkipsItemClaimedElsewhere(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewFile(t, store, "/videos/clip.mkv")

	set, handlers := fakeStages()
	manager := newManager(t, cfg, store, set)

	// A rival process fetched the same pending item and claimed it first.
	rival, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	claimed, err := store.Claim(context.Background(), rival, queue.StatusExtracting, "rival-token")
	if err != nil || !claimed {
		t.Fatalf("rival claim failed: claimed=%v err=%v", claimed, err)
	}

	if err := manager.ProcessItem(context.Background(), item); err != nil {
		t.Fatalf("ProcessItem failed: %v", err)
	}

	for _, handler := range handlers {
		if handler.executed.Load() != 0 {
			t.Fatalf("handler %s ran on an item owned by another worker", handler.name)
		}
	}
	final, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.RunToken != "rival-token" || final.Status != queue.StatusExtracting {
		t.Fatalf("rival claim was disturbed: %#v", final)
	}
}

func TestStageFailureMarksItemFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewFile(t, store, "/videos/clip.mkv")

	set, _ := fakeStages()
	boom := services.Wrap(services.ErrExternalTool, "transcription", "run whisper", "Whisper crashed", errors.New("exit status 1"))
	set.Transcriber = &fakeHandler{name: "transcription", onExec: func(ctx context.Context, item *queue.Item) error {
		return boom
	}}
	manager := newManager(t, cfg, store, set)

	err := manager.ProcessItem(context.Background(), item)
	if err == nil {
		t.Fatal("expected stage error")
	}

	final, getErr := store.GetByID(context.Background(), item.ID)
	if getErr != nil {
		t.Fatalf("GetByID failed: %v", getErr)
	}
	if final.Status != queue.StatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if final.ErrorMessage == "" {
		t.Fatal("expected error message on failed item")
	}
	if final.NeedsReview {
		t.Fatal("retryable tool failure should not flag review")
	}
}

func TestNonRetryableFailureFlagsReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewFile(t, store, "/videos/clip.mkv")

	set, _ := fakeStages()
	set.Extractor = &fakeHandler{name: "extraction", onExec: func(ctx context.Context, item *queue.Item) error {
		return services.Wrap(services.ErrValidation, "extraction", "validate source", "Source has no audio", nil)
	}}
	manager := newManager(t, cfg, store, set)

	if err := manager.ProcessItem(context.Background(), item); err == nil {
		t.Fatal("expected stage error")
	}

	final, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !final.NeedsReview {
		t.Fatal("validation failure should flag the item for review")
	}
	if final.ReviewReason == "" {
		t.Fatal("expected a review reason")
	}
}

func TestStartProcessesQueuedItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewFile(t, store, "/videos/clip.mkv")

	set, _ := fakeStages()
	done := make(chan struct{})
	renderer := &fakeHandler{name: "rendering", onExec: func(ctx context.Context, item *queue.Item) error {
		item.SetProgressComplete("rendering", "rendering done")
		close(done)
		return nil
	}}
	set.Renderer = renderer
	manager := newManager(t, cfg, store, set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer manager.Stop()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for pipeline completion")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		final, err := store.GetByID(context.Background(), item.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if final.Status == queue.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("item never completed, status %s", final.Status)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestStartRejectsDoubleStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	set, _ := fakeStages()
	manager := newManager(t, cfg, store, set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer manager.Stop()

	if err := manager.Start(ctx); err == nil {
		t.Fatal("second Start should fail while running")
	}
}

func TestStatusReportsStageHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	set, _ := fakeStages()
	manager := newManager(t, cfg, store, set)

	summary := manager.Status(context.Background())
	if summary.Running {
		t.Fatal("manager should not be running")
	}
	if len(summary.StageHealth) != 5 {
		t.Fatalf("expected 5 stage health entries, got %d", len(summary.StageHealth))
	}
	if !summary.Healthy() {
		t.Fatal("all fake stages report healthy")
	}
}
