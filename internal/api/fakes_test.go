package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/telenexus-admin/Api/internal/model"
	"github.com/telenexus-admin/Api/internal/repo"
)

type fakeUserRepo struct {
	mu   sync.Mutex
	byID map[string]model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]model.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, u model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return repo.ErrDuplicateEmail
		}
	}
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repo.ErrNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repo.ErrNotFound
	}
	return u, nil
}

type fakeInstanceRepo struct {
	mu   sync.Mutex
	byID map[string]model.Instance
}

func newFakeInstanceRepo() *fakeInstanceRepo {
	return &fakeInstanceRepo{byID: map[string]model.Instance{}}
}

func (f *fakeInstanceRepo) Create(ctx context.Context, inst model.Instance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[inst.ID] = inst
	return nil
}

func (f *fakeInstanceRepo) GetByID(ctx context.Context, id, userID string) (model.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.byID[id]
	if !ok || inst.UserID != userID {
		return model.Instance{}, repo.ErrNotFound
	}
	return inst, nil
}

func (f *fakeInstanceRepo) GetByGatewayName(ctx context.Context, gatewayName string) (model.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inst := range f.byID {
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
	for _, inst := range f.byID {
		if inst.UserID == userID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (f *fakeInstanceRepo) UpdateState(ctx context.Context, id string, status model.InstanceStatus, phoneNumber string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	inst.Status = status
	inst.PhoneNumber = phoneNumber
	inst.UpdatedAt = updatedAt
	f.byID[id] = inst
	return nil
}

func (f *fakeInstanceRepo) Delete(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.byID[id]
	if !ok || inst.UserID != userID {
		return repo.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeInstanceRepo) CountByUser(ctx context.Context, userID string) (total, connected int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inst := range f.byID {
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
	mu       sync.Mutex
	messages []model.Message
}

func (f *fakeMessageRepo) Create(ctx context.Context, msg model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeMessageRepo) ListByInstance(ctx context.Context, instanceID string, limit, offset int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, m := range f.messages {
		if m.InstanceID == instanceID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) CountByUser(ctx context.Context, userID string) (total, today int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages), len(f.messages), nil
}

func (f *fakeMessageRepo) all() []model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

type fakeWebhookRepo struct {
	mu    sync.Mutex
	byID  map[string]model.Webhook
	owner map[string]string // webhook ID -> owning user ID
}

func newFakeWebhookRepo() *fakeWebhookRepo {
	return &fakeWebhookRepo{byID: map[string]model.Webhook{}, owner: map[string]string{}}
}

func (f *fakeWebhookRepo) add(wh model.Webhook, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[wh.ID] = wh
	f.owner[wh.ID] = userID
}

func (f *fakeWebhookRepo) Create(ctx context.Context, wh model.Webhook) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[wh.ID] = wh
	return nil
}

func (f *fakeWebhookRepo) GetByID(ctx context.Context, id, userID string) (model.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wh, ok := f.byID[id]
	if !ok {
		return model.Webhook{}, repo.ErrNotFound
	}
	if owner, tracked := f.owner[id]; tracked && owner != userID {
		return model.Webhook{}, repo.ErrNotFound
	}
	return wh, nil
}

func (f *fakeWebhookRepo) ListByInstance(ctx context.Context, instanceID string) ([]model.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Webhook
	for _, wh := range f.byID {
		if wh.InstanceID == instanceID {
			out = append(out, wh)
		}
	}
	return out, nil
}

func (f *fakeWebhookRepo) ListActiveByEvent(ctx context.Context, instanceID, event string) ([]model.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Webhook
	for _, wh := range f.byID {
		if wh.InstanceID != instanceID || !wh.IsActive {
			continue
		}
		for _, e := range wh.Events {
			if e == event {
				out = append(out, wh)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeWebhookRepo) Delete(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repo.ErrNotFound
	}
	if owner, tracked := f.owner[id]; tracked && owner != userID {
		return repo.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeWebhookRepo) MarkTriggered(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	wh, ok := f.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	wh.LastTriggered = &at
	f.byID[id] = wh
	return nil
}

func (f *fakeWebhookRepo) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, wh := range f.byID {
		if wh.IsActive {
			n++
		}
	}
	return n, nil
}

type fakeAPIKeyRepo struct {
	mu   sync.Mutex
	byID map[string]model.APIKey
}

func newFakeAPIKeyRepo() *fakeAPIKeyRepo {
	return &fakeAPIKeyRepo{byID: map[string]model.APIKey{}}
}

func (f *fakeAPIKeyRepo) Create(ctx context.Context, k model.APIKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[k.ID] = k
	return nil
}

func (f *fakeAPIKeyRepo) GetActiveByKey(ctx context.Context, key string) (model.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.byID {
		if k.Key == key && k.IsActive {
			return k, nil
		}
	}
	return model.APIKey{}, repo.ErrNotFound
}

func (f *fakeAPIKeyRepo) ListByUser(ctx context.Context, userID string) ([]model.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.APIKey
	for _, k := range f.byID {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeAPIKeyRepo) Deactivate(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.byID[id]
	if !ok || k.UserID != userID {
		return repo.ErrNotFound
	}
	k.IsActive = false
	f.byID[id] = k
	return nil
}

func (f *fakeAPIKeyRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	k.LastUsed = &at
	f.byID[id] = k
	return nil
}

func (f *fakeAPIKeyRepo) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.byID {
		if k.UserID == userID && k.IsActive {
			n++
		}
	}
	return n, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.ActivityLog
}

func (f *fakeAuditRepo) Create(ctx context.Context, entry model.ActivityLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, userID, instanceID string, limit int) ([]model.ActivityLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ActivityLog
	for _, e := range f.entries {
		if e.UserID != userID {
			continue
		}
		if instanceID != "" && e.InstanceID != instanceID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeAuditRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type sendCall struct {
	instanceName string
	recipient    string
	body         string
}

type fakeGateway struct {
	mu sync.Mutex

	state        string
	owner        string
	qr           string
	provisionErr error

	provisioned   []string
	deprovisioned []string
	disconnected  []string
	sends         []sendCall
	sendErr       error
}

func (f *fakeGateway) Provision(ctx context.Context, instanceName string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.provisionErr != nil {
		return nil, f.provisionErr
	}
	f.provisioned = append(f.provisioned, instanceName)
	return map[string]any{"instanceName": instanceName}, nil
}

func (f *fakeGateway) QueryState(ctx context.Context, instanceName string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == "" {
		return "closed"
	}
	return f.state
}

func (f *fakeGateway) QueryQR(ctx context.Context, instanceName string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.qr
}

func (f *fakeGateway) QueryOwnerNumber(ctx context.Context, instanceName string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owner
}

func (f *fakeGateway) SendText(ctx context.Context, instanceName, recipient, body string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sends = append(f.sends, sendCall{instanceName: instanceName, recipient: recipient, body: body})
	return map[string]any{"status": "PENDING"}, nil
}

func (f *fakeGateway) Deprovision(ctx context.Context, instanceName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deprovisioned = append(f.deprovisioned, instanceName)
	return true
}

func (f *fakeGateway) Disconnect(ctx context.Context, instanceName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, instanceName)
	return true
}

func (f *fakeGateway) setState(state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
}

type dispatchedEvent struct {
	instanceID string
	event      string
}

type fakeDispatcher struct {
	mu     sync.Mutex
	events []dispatchedEvent
}

func (f *fakeDispatcher) Dispatch(instanceID, event string, data map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, dispatchedEvent{instanceID: instanceID, event: event})
}

func (f *fakeDispatcher) all() []dispatchedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dispatchedEvent, len(f.events))
	copy(out, f.events)
	return out
}

type probeCall struct {
	url   string
	event string
}

type fakeProber struct {
	mu    sync.Mutex
	code  int
	err   error
	calls []probeCall
}

func (f *fakeProber) Deliver(ctx context.Context, url, event string, data any) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, probeCall{url: url, event: event})
	if f.err != nil {
		return f.code, f.err
	}
	if f.code == 0 {
		return 200, nil
	}
	return f.code, nil
}

var errGatewayDown = errors.New("gateway unreachable")
