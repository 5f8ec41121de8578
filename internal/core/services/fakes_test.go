package services

import (
	"context"
	"fmt"

	"github.com/cyberpaas/tenantdock/internal/core/domain"
)

// fakeRuntime is a hand-written ports.ContainerRuntime that records every
// call in order and fails on demand per operation.
type fakeRuntime struct {
	calls  []string
	failOn map[string]error

	images   map[string]bool
	statuses map[string]string // container -> runtime state; absent means unknown
	runSpecs []domain.ContainerSpec

	stats    *domain.RawStats
	statsErr error
	logs     []string
	logsErr  error
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		failOn:   map[string]error{},
		images:   map[string]bool{},
		statuses: map[string]string{},
	}
}

func (f *fakeRuntime) record(op, arg string) error {
	f.calls = append(f.calls, op+":"+arg)
	return f.failOn[op]
}

func (f *fakeRuntime) EnsureNetwork(_ context.Context, name, _ string) error {
	return f.record("EnsureNetwork", name)
}

func (f *fakeRuntime) EnsureVolume(_ context.Context, name string) error {
	return f.record("EnsureVolume", name)
}

func (f *fakeRuntime) RemoveContainerIfExists(_ context.Context, name string) error {
	return f.record("RemoveContainerIfExists", name)
}

func (f *fakeRuntime) RunContainer(_ context.Context, spec domain.ContainerSpec) (string, error) {
	if err := f.record("RunContainer", spec.Name); err != nil {
		return "", err
	}
	f.runSpecs = append(f.runSpecs, spec)
	f.statuses[spec.Name] = "running"
	return spec.Name, nil
}

func (f *fakeRuntime) ImageExists(_ context.Context, tag string) (bool, error) {
	if err := f.record("ImageExists", tag); err != nil {
		return false, err
	}
	return f.images[tag], nil
}

func (f *fakeRuntime) ContainerStatus(_ context.Context, id string) (string, error) {
	if err := f.record("ContainerStatus", id); err != nil {
		return "", err
	}
	state, ok := f.statuses[id]
	if !ok {
		return "", fmt.Errorf("container %s: %w", id, domain.ErrNotFound)
	}
	return state, nil
}

func (f *fakeRuntime) ContainerStats(_ context.Context, id string) (*domain.RawStats, error) {
	if err := f.record("ContainerStats", id); err != nil {
		return nil, err
	}
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	if f.stats == nil {
		return nil, fmt.Errorf("container %s: %w", id, domain.ErrNotFound)
	}
	return f.stats, nil
}

func (f *fakeRuntime) ContainerLogs(_ context.Context, id string, _ int) ([]string, error) {
	if err := f.record("ContainerLogs", id); err != nil {
		return nil, err
	}
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	return f.logs, nil
}

func (f *fakeRuntime) lifecycle(op, id string) error {
	if err := f.record(op, id); err != nil {
		return err
	}
	if _, ok := f.statuses[id]; !ok {
		return fmt.Errorf("container %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (f *fakeRuntime) StartContainer(_ context.Context, id string) error {
	return f.lifecycle("StartContainer", id)
}

func (f *fakeRuntime) StopContainer(_ context.Context, id string) error {
	return f.lifecycle("StopContainer", id)
}

func (f *fakeRuntime) RestartContainer(_ context.Context, id string) error {
	return f.lifecycle("RestartContainer", id)
}

func (f *fakeRuntime) RemoveContainer(_ context.Context, id string) error {
	if err := f.lifecycle("RemoveContainer", id); err != nil {
		return err
	}
	delete(f.statuses, id)
	return nil
}

// fakeRepo is a hand-written in-memory ports.RecordRepository.
type fakeRepo struct {
	records map[string]*domain.ContainerRecord
	updates []string
	deletes []string

	createErr error
	listErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: map[string]*domain.ContainerRecord{}}
}

// CreatePair replaces any rows left under the same container names by a
// prior provisioning cycle, like the transactional delete-then-insert the
// real repository performs.
func (r *fakeRepo) CreatePair(_ context.Context, app, db *domain.ContainerRecord) error {
	if r.createErr != nil {
		return r.createErr
	}
	delete(r.records, app.ContainerID)
	delete(r.records, db.ContainerID)
	r.records[app.ContainerID] = app
	r.records[db.ContainerID] = db
	return nil
}

func (r *fakeRepo) GetByContainerID(_ context.Context, containerID string) (*domain.ContainerRecord, error) {
	rec, ok := r.records[containerID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return rec, nil
}

func (r *fakeRepo) ListByUser(_ context.Context, userID int64) ([]domain.ContainerRecord, error) {
	var out []domain.ContainerRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	return out, r.listErr
}

func (r *fakeRepo) ListAll(_ context.Context) ([]domain.ContainerRecord, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.ContainerRecord
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, containerID string, status domain.Status) error {
	rec, ok := r.records[containerID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	rec.Status = status
	r.updates = append(r.updates, containerID+":"+string(status))
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, containerID string) error {
	if _, ok := r.records[containerID]; !ok {
		return domain.ErrRecordNotFound
	}
	delete(r.records, containerID)
	r.deletes = append(r.deletes, containerID)
	return nil
}

// fakeBuilder is a hand-written ports.ImageBuilder.
type fakeBuilder struct {
	built     []string
	repoBuilt []string
	buildErr  error
}

func (b *fakeBuilder) BuildImage(_ context.Context, _, _, tag string) (string, error) {
	if b.buildErr != nil {
		return "", b.buildErr
	}
	b.built = append(b.built, tag)
	return tag, nil
}

func (b *fakeBuilder) BuildFromRepo(_ context.Context, repoURL, _, tag string) (string, error) {
	if b.buildErr != nil {
		return "", b.buildErr
	}
	b.repoBuilt = append(b.repoBuilt, repoURL+"|"+tag)
	return tag, nil
}
