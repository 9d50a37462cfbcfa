package application_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// --- Store fakes ---

// memCredentialStore is an in-memory CredentialStore with the same
// uniqueness rules as the SQLite schema.
type memCredentialStore struct {
	mu    sync.Mutex
	creds []model.Credential
	err   error
}

func (m *memCredentialStore) indexByKey(url, username string) int {
	return slices.IndexFunc(m.creds, func(c model.Credential) bool {
		return c.URL == url && c.Username == username
	})
}

func (m *memCredentialStore) indexByID(id string) int {
	return slices.IndexFunc(m.creds, func(c model.Credential) bool { return c.ID == id })
}

func (m *memCredentialStore) Upsert(_ context.Context, input model.CredentialInput, id string, now time.Time) (model.Credential, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.Credential{}, false, m.err
	}

	loginURL := input.LoginURL
	if loginURL == "" {
		loginURL = input.URL
	}

	if i := m.indexByKey(input.URL, input.Username); i >= 0 {
		m.creds[i].Password = input.Password
		m.creds[i].LoginURL = loginURL
		m.creds[i].UpdatedAt = &now
		return m.creds[i], false, nil
	}

	cred := model.Credential{
		ID: id, URL: input.URL, LoginURL: loginURL,
		Username: input.Username, Password: input.Password, CreatedAt: now,
	}
	m.creds = append(m.creds, cred)
	return cred, true, nil
}

func (m *memCredentialStore) ListAll(_ context.Context) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return slices.Clone(m.creds), nil
}

func (m *memCredentialStore) GetByID(_ context.Context, id string) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexByID(id); i >= 0 {
		c := m.creds[i]
		return &c, nil
	}
	return nil, nil
}

func (m *memCredentialStore) Update(_ context.Context, cred model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexByID(cred.ID)
	if i < 0 {
		return driven.ErrCredentialNotFound
	}
	if j := m.indexByKey(cred.URL, cred.Username); j >= 0 && j != i {
		return driven.ErrCredentialConflict
	}
	m.creds[i] = cred
	return nil
}

func (m *memCredentialStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexByID(id)
	if i < 0 {
		return driven.ErrCredentialNotFound
	}
	m.creds = slices.Delete(m.creds, i, i+1)
	return nil
}

func (m *memCredentialStore) Merge(_ context.Context, creds []model.Credential) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var inserted int
	for _, c := range creds {
		if m.indexByID(c.ID) >= 0 || m.indexByKey(c.URL, c.Username) >= 0 {
			continue
		}
		m.creds = append(m.creds, c)
		inserted++
	}
	return inserted, nil
}

func (m *memCredentialStore) ReplaceAll(_ context.Context, creds []model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = slices.Clone(creds)
	return nil
}

func (m *memCredentialStore) snapshot() []model.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.creds)
}

type memPendingStore struct {
	mu      sync.Mutex
	pending *model.PendingCredential
	stages  int
}

func (m *memPendingStore) Stage(_ context.Context, p model.PendingCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = &p
	m.stages++
	return nil
}

func (m *memPendingStore) Get(_ context.Context) (*model.PendingCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return nil, nil
	}
	p := *m.pending
	return &p, nil
}

func (m *memPendingStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
	return nil
}

func (m *memPendingStore) current() *model.PendingCredential {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return nil
	}
	p := *m.pending
	return &p
}

func (m *memPendingStore) stageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stages
}

type memSettingStore struct {
	values map[string]string
	err    error
}

func (m *memSettingStore) Get(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memSettingStore) Set(_ context.Context, key, value string) error {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

func (m *memSettingStore) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

// --- Messenger fakes ---

// failingMessenger fails every send as a broken channel would.
type failingMessenger struct{}

func (failingMessenger) Send(_ context.Context, msg model.Message) (model.Reply, error) {
	return model.Reply{}, fmt.Errorf("send %s: %w", msg.Action, errors.New("coordinator unreachable"))
}

// pingFailMessenger forwards everything except ping, which fails.
type pingFailMessenger struct {
	next driven.Messenger
}

func (m pingFailMessenger) Send(ctx context.Context, msg model.Message) (model.Reply, error) {
	if msg.Action == model.ActionPing {
		return model.Reply{}, errors.New("coordinator unreachable")
	}
	return m.next.Send(ctx, msg)
}

// --- Page fake ---

func visibleField(ref, tag, typ string, form, order int) model.FormField {
	return model.FormField{
		Ref: ref, Tag: tag, Type: typ,
		Display: "block", Visibility: "visible", Opacity: 1, Width: 120, Height: 24,
		Form: form, Order: order,
	}
}

func loginSnapshot(url, username, password string) model.FormSnapshot {
	user := visibleField("u", "input", "email", 0, 0)
	user.Name = "email"
	user.Value = username

	pass := visibleField("p", "input", "password", 0, 1)
	pass.Name = "password"
	pass.Value = password

	button := visibleField("b", "button", "submit", 0, 2)
	button.Text = "Sign in"

	return model.FormSnapshot{URL: url, Forms: 1, Fields: []model.FormField{user, pass, button}}
}

type fakePage struct {
	mu           sync.Mutex
	id           string
	snap         model.FormSnapshot
	values       map[string]string
	clicks       []string
	instrumented map[string][]model.AffordanceOption
	prompts      []model.Prompt
	dismissed    int
	toasts       []string
	navigated    []string
	detached     bool
	events       chan model.PageEvent
}

func newFakePage(id string, snap model.FormSnapshot) *fakePage {
	return &fakePage{
		id:           id,
		snap:         snap,
		values:       make(map[string]string),
		instrumented: make(map[string][]model.AffordanceOption),
		events:       make(chan model.PageEvent, 16),
	}
}

func (p *fakePage) ID() string { return p.id }

func (p *fakePage) URL(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap.URL, nil
}

func (p *fakePage) Snapshot(_ context.Context) (model.FormSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := p.snap
	snap.Fields = slices.Clone(p.snap.Fields)
	for i := range snap.Fields {
		if _, ok := p.instrumented[snap.Fields[i].Ref]; ok {
			snap.Fields[i].Enabled = true
		}
	}
	return snap, nil
}

func (p *fakePage) SetValue(_ context.Context, ref, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[ref] = value
	return nil
}

func (p *fakePage) Click(_ context.Context, ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, ref)
	return nil
}

func (p *fakePage) Instrument(_ context.Context, ref string, options []model.AffordanceOption) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.instrumented[ref]; ok {
		return false, nil
	}
	p.instrumented[ref] = options
	return true, nil
}

func (p *fakePage) ShowPrompt(_ context.Context, prompt model.Prompt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	return nil
}

func (p *fakePage) DismissPrompt(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dismissed++
	return nil
}

func (p *fakePage) Toast(_ context.Context, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toasts = append(p.toasts, message)
	return nil
}

func (p *fakePage) Events() <-chan model.PageEvent { return p.events }

func (p *fakePage) Detach() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detached = true
	return nil
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	p.navigated = append(p.navigated, url)
	p.snap.URL = url
	p.mu.Unlock()

	p.events <- model.PageEvent{Kind: model.PageEventLoad}
	return nil
}

func (p *fakePage) setSnapshot(snap model.FormSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = snap
}

func (p *fakePage) promptList() []model.Prompt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.prompts)
}

func (p *fakePage) toastList() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.toasts)
}

func (p *fakePage) value(ref string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[ref]
}

func (p *fakePage) clickList() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.clicks)
}

func (p *fakePage) instrumentedRefs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	refs := make([]string, 0, len(p.instrumented))
	for ref := range p.instrumented {
		refs = append(refs, ref)
	}
	slices.Sort(refs)
	return refs
}

func (p *fakePage) isDetached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detached
}

func (p *fakePage) dismissCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dismissed
}

// fakeBrowser serves a fixed set of tabs; the first is active.
type fakeBrowser struct {
	mu   sync.Mutex
	tabs []*fakePage
}

func (b *fakeBrowser) ActiveTab(_ context.Context) (driven.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.tabs) == 0 {
		return nil, errors.New("no tabs")
	}
	return b.tabs[0], nil
}

func (b *fakeBrowser) Tabs(_ context.Context) ([]driven.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tabs := make([]driven.Tab, 0, len(b.tabs))
	for _, t := range b.tabs {
		tabs = append(tabs, t)
	}
	return tabs, nil
}

func (b *fakeBrowser) Close() error { return nil }
