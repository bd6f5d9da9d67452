package content

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/personacast-backend/internal/providers/video"
	"github.com/angelmondragon/personacast-backend/pkg/db/models"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	"github.com/google/uuid"
)

type fakeVideoRepo struct {
	updates []VideoUpdate
	reject  bool
}

func (f *fakeVideoRepo) UpdateVideo(_ context.Context, _ uuid.UUID, _ enums.VideoStatus, update VideoUpdate) (bool, error) {
	if f.reject {
		return false, nil
	}
	f.updates = append(f.updates, update)
	return true, nil
}

type fakeDispatcher struct {
	status        video.TaskStatus
	lipSyncStatus video.TaskStatus
	lipSyncErr    error
	lipSyncCalls  []string
}

func (f *fakeDispatcher) Submit(context.Context, video.SubmitRequest) (string, error) {
	return "", nil
}

func (f *fakeDispatcher) Status(context.Context, string) (video.TaskStatus, error) {
	return f.status, nil
}

func (f *fakeDispatcher) LipSync(_ context.Context, taskID, audioURL string) (string, error) {
	f.lipSyncCalls = append(f.lipSyncCalls, taskID+"|"+audioURL)
	if f.lipSyncErr != nil {
		return "", f.lipSyncErr
	}
	return "lip-1", nil
}

func (f *fakeDispatcher) LipSyncStatus(context.Context, string) (video.TaskStatus, error) {
	return f.lipSyncStatus, nil
}

func ptr[T any](v T) *T { return &v }

func videoItem(status enums.VideoStatus) *models.ContentItem {
	return &models.ContentItem{
		ID:          uuid.New(),
		Platform:    enums.PlatformTikTok,
		VideoTaskID: ptr("task-1"),
		VideoStatus: ptr(status),
	}
}

func TestSyncCompletedWithoutAudio(t *testing.T) {
	repo := &fakeVideoRepo{}
	disp := &fakeDispatcher{status: video.TaskStatus{State: enums.VideoStatusCompleted, VideoURL: "https://v/1.mp4"}}
	syncer := NewVideoSyncer(repo, disp, nil)

	got, changed, err := syncer.Sync(context.Background(), videoItem(enums.VideoStatusPending))
	if err != nil || !changed {
		t.Fatalf("expected change, got changed=%v err=%v", changed, err)
	}
	if *got.VideoStatus != enums.VideoStatusCompleted || got.PublishableVideoURL() != "https://v/1.mp4" {
		t.Fatalf("unexpected item %+v", got)
	}
	if len(disp.lipSyncCalls) != 0 {
		t.Fatal("lip sync needs audio")
	}
}

func TestSyncCompletedWithAudioStartsLipSync(t *testing.T) {
	repo := &fakeVideoRepo{}
	disp := &fakeDispatcher{status: video.TaskStatus{State: enums.VideoStatusCompleted, VideoURL: "https://v/1.mp4"}}
	syncer := NewVideoSyncer(repo, disp, nil)
	item := videoItem(enums.VideoStatusProcessing)
	item.AudioURL = ptr("https://a/1.mp3")

	got, changed, err := syncer.Sync(context.Background(), item)
	if err != nil || !changed {
		t.Fatalf("expected change, got changed=%v err=%v", changed, err)
	}
	if *got.VideoStatus != enums.VideoStatusProcessing || *got.LipSyncTaskID != "lip-1" || *got.VideoURL != "https://v/1.mp4" {
		t.Fatalf("unexpected item %+v", got)
	}
	if got.FinalVideoURL != nil {
		t.Fatal("final video waits for lip sync")
	}
	if disp.lipSyncCalls[0] != "task-1|https://a/1.mp3" {
		t.Fatalf("unexpected lip sync call %v", disp.lipSyncCalls)
	}
}

func TestSyncLipSyncSubmitFailureFallsBack(t *testing.T) {
	disp := &fakeDispatcher{
		status:     video.TaskStatus{State: enums.VideoStatusCompleted, VideoURL: "https://v/1.mp4"},
		lipSyncErr: errors.New("unsupported face"),
	}
	syncer := NewVideoSyncer(&fakeVideoRepo{}, disp, nil)
	item := videoItem(enums.VideoStatusPending)
	item.AudioURL = ptr("https://a/1.mp3")

	got, _, err := syncer.Sync(context.Background(), item)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if *got.VideoStatus != enums.VideoStatusCompleted || *got.FinalVideoURL != "https://v/1.mp4" {
		t.Fatalf("expected raw render as final, got %+v", got)
	}
}

func TestSyncLipSyncOutcomes(t *testing.T) {
	item := videoItem(enums.VideoStatusProcessing)
	item.LipSyncTaskID = ptr("lip-1")
	item.VideoURL = ptr("https://v/raw.mp4")

	disp := &fakeDispatcher{lipSyncStatus: video.TaskStatus{State: enums.VideoStatusCompleted, VideoURL: "https://v/synced.mp4"}}
	got, _, err := NewVideoSyncer(&fakeVideoRepo{}, disp, nil).Sync(context.Background(), item)
	if err != nil || *got.FinalVideoURL != "https://v/synced.mp4" {
		t.Fatalf("expected synced render, got %+v err=%v", got, err)
	}

	disp = &fakeDispatcher{lipSyncStatus: video.TaskStatus{State: enums.VideoStatusFailed}}
	got, _, err = NewVideoSyncer(&fakeVideoRepo{}, disp, nil).Sync(context.Background(), item)
	if err != nil || *got.FinalVideoURL != "https://v/raw.mp4" || *got.VideoStatus != enums.VideoStatusCompleted {
		t.Fatalf("expected raw fallback, got %+v err=%v", got, err)
	}

	disp = &fakeDispatcher{lipSyncStatus: video.TaskStatus{State: enums.VideoStatusProcessing}}
	_, changed, err := NewVideoSyncer(&fakeVideoRepo{}, disp, nil).Sync(context.Background(), item)
	if err != nil || changed {
		t.Fatalf("still processing should not change, changed=%v err=%v", changed, err)
	}
}

func TestSyncFailedAndIdle(t *testing.T) {
	disp := &fakeDispatcher{status: video.TaskStatus{State: enums.VideoStatusFailed}}
	got, changed, _ := NewVideoSyncer(&fakeVideoRepo{}, disp, nil).Sync(context.Background(), videoItem(enums.VideoStatusPending))
	if !changed || *got.VideoStatus != enums.VideoStatusFailed {
		t.Fatalf("expected failed, got %+v", got)
	}

	repo := &fakeVideoRepo{}
	disp = &fakeDispatcher{status: video.TaskStatus{State: enums.VideoStatusPending}}
	_, changed, _ = NewVideoSyncer(repo, disp, nil).Sync(context.Background(), videoItem(enums.VideoStatusPending))
	if changed || len(repo.updates) != 0 {
		t.Fatal("pending job should not write")
	}

	done := videoItem(enums.VideoStatusCompleted)
	_, changed, _ = NewVideoSyncer(repo, disp, nil).Sync(context.Background(), done)
	if changed {
		t.Fatal("completed items are not polled")
	}
}

func TestSyncLostRaceReportsUnchanged(t *testing.T) {
	disp := &fakeDispatcher{status: video.TaskStatus{State: enums.VideoStatusFailed}}
	item := videoItem(enums.VideoStatusPending)
	got, changed, err := NewVideoSyncer(&fakeVideoRepo{reject: true}, disp, nil).Sync(context.Background(), item)
	if err != nil || changed || got != item {
		t.Fatalf("expected untouched item, changed=%v err=%v", changed, err)
	}
}
