package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/telenexus-admin/Api/internal/model"
	"github.com/telenexus-admin/Api/internal/repo"
)

type fakeGateway struct {
	mu sync.Mutex

	state   string
	owner   string
	sendErr error

	stateCalls int
	sendCalls  int
	lastSendTo string
}

func (f *fakeGateway) QueryState(ctx context.Context, instanceName string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCalls++
	return f.state
}

func (f *fakeGateway) QueryOwnerNumber(ctx context.Context, instanceName string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owner
}

func (f *fakeGateway) SendText(ctx context.Context, instanceName, recipient, body string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	f.lastSendTo = recipient
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return map[string]any{"status": "PENDING"}, nil
}

type stateUpdate struct {
	ID     string
	Status model.InstanceStatus
	Phone  string
}

type fakeInstanceRepo struct {
	mu sync.Mutex

	instances map[string]model.Instance // by id
	updates   []stateUpdate
	updateErr error
}

var _ repo.InstanceRepository = (*fakeInstanceRepo)(nil)

func newFakeInstanceRepo(instances ...model.Instance) *fakeInstanceRepo {
	r := &fakeInstanceRepo{instances: make(map[string]model.Instance)}
	for _, inst := range instances {
		r.instances[inst.ID] = inst
	}
	return r
}

func (f *fakeInstanceRepo) Create(ctx context.Context, inst model.Instance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instances[inst.ID] = inst
	return nil
}

func (f *fakeInstanceRepo) GetByID(ctx context.Context, id, userID string) (model.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.instances[id]
	if !ok || inst.UserID != userID {
		return model.Instance{}, repo.ErrNotFound
	}
	return inst, nil
}

func (f *fakeInstanceRepo) GetByGatewayName(ctx context.Context, gatewayName string) (model.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inst := range f.instances {
		if inst.GatewayName != "" && inst.GatewayName == gatewayName {
			return inst, nil
		}
	}
	return model.Instance{}, repo.ErrNotFound
}

func (f *fakeInstanceRepo) ListByUser(ctx context.Context, userID string) ([]model.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Instance
	for _, inst := range f.instances {
		if inst.UserID == userID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (f *fakeInstanceRepo) UpdateState(ctx context.Context, id string, status model.InstanceStatus, phoneNumber string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, stateUpdate{ID: id, Status: status, Phone: phoneNumber})
	if inst, ok := f.instances[id]; ok {
		inst.Status = status
		inst.PhoneNumber = phoneNumber
		inst.UpdatedAt = updatedAt
		f.instances[id] = inst
	}
	return nil
}

func (f *fakeInstanceRepo) Delete(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.instances[id]
	if !ok || inst.UserID != userID {
		return repo.ErrNotFound
	}
	delete(f.instances, id)
	return nil
}

func (f *fakeInstanceRepo) CountByUser(ctx context.Context, userID string) (total, connected int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inst := range f.instances {
		if inst.UserID != userID {
			continue
		}
		total++
		if inst.Status == model.StatusConnected {
			connected++
		}
	}
	return total, connected, nil
}

type fakeMessageRepo struct {
	mu sync.Mutex

	created   []model.Message
	createErr error
}

var _ repo.MessageRepository = (*fakeMessageRepo)(nil)

func (f *fakeMessageRepo) Create(ctx context.Context, msg model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, msg)
	return nil
}

func (f *fakeMessageRepo) ListByInstance(ctx context.Context, instanceID string, limit, offset int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, m := range f.created {
		if m.InstanceID == instanceID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) CountByUser(ctx context.Context, userID string) (total, today int, err error) {
	return 0, 0, errors.New("not implemented")
}

type dispatchedEvent struct {
	InstanceID string
	Event      string
	Data       map[string]any
}

// fakeDispatcher records dispatches synchronously so tests can assert without
// waiting.
type fakeDispatcher struct {
	mu     sync.Mutex
	events []dispatchedEvent
}

func (f *fakeDispatcher) Dispatch(instanceID, event string, data map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, dispatchedEvent{InstanceID: instanceID, Event: event, Data: data})
}

func (f *fakeDispatcher) all() []dispatchedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dispatchedEvent(nil), f.events...)
}

type fakeDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeDeduper) FirstSeen(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}
