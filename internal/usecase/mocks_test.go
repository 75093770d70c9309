//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"social-boost-platform/internal/domain"
	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/adapter"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// -----------------------------
// In-memory repositories
// -----------------------------

type MockJobRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Job
	saveErr error
}

func NewMockJobRepo() *MockJobRepo {
	return &MockJobRepo{store: make(map[string]*model.Job)}
}

func (m *MockJobRepo) Save(ctx context.Context, qx any, j *model.Job) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.store[j.ID] = &cp
	return nil
}

func (m *MockJobRepo) FindByID(ctx context.Context, qx any, id string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *MockJobRepo) ConsumeSlot(ctx context.Context, qx any, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if j.Status != model.JobStatusActive || j.CompletedActions >= j.MaxActions {
		return nil, domain.ErrJobExhausted
	}
	j.CompletedActions++
	if j.CompletedActions >= j.MaxActions {
		j.Status = model.JobStatusExhausted
	}
	cp := *j
	return &cp, nil
}

func (m *MockJobRepo) ListUnrecovered(ctx context.Context, qx any, limit int) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Job
	for _, j := range m.store {
		if j.OnChainID == nil && len(out) < limit {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockJobRepo) SetOnChainID(ctx context.Context, qx any, id string, onChainID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok || j.OnChainID != nil {
		return domain.ErrNotFound
	}
	j.OnChainID = &onChainID
	return nil
}

func (m *MockJobRepo) Discard(ctx context.Context, qx any, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok || j.OnChainID != nil || j.CompletedActions != 0 {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

type MockPerformerRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Performer
}

func NewMockPerformerRepo() *MockPerformerRepo {
	return &MockPerformerRepo{store: make(map[string]*model.Performer)}
}

func (m *MockPerformerRepo) Save(ctx context.Context, qx any, p *model.Performer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockPerformerRepo) FindByID(ctx context.Context, qx any, id string) (*model.Performer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// MockCompletionRepo enforces the same (job, performer) uniqueness the real
// table does, so duplicate-reward tests exercise the actual guard.
type MockCompletionRepo struct {
	mu       sync.RWMutex
	store    map[string]*model.Completion
	SaveFunc func(ctx context.Context, qx any, c *model.Completion) error
	clearErr error
}

func NewMockCompletionRepo() *MockCompletionRepo {
	return &MockCompletionRepo{store: make(map[string]*model.Completion)}
}

func completionKey(jobID, performerID string) string {
	return jobID + "|" + performerID
}

func (m *MockCompletionRepo) Save(ctx context.Context, qx any, c *model.Completion) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, qx, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := completionKey(c.JobID, c.PerformerID)
	if _, exists := m.store[key]; exists {
		return domain.ErrDuplicateCompletion
	}
	cp := *c
	m.store[key] = &cp
	return nil
}

func (m *MockCompletionRepo) Find(ctx context.Context, qx any, jobID, performerID string) (*model.Completion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.store[completionKey(jobID, performerID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCompletionRepo) ListByPerformer(ctx context.Context, qx any, performerID string) ([]*model.Completion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Completion
	for _, c := range m.store {
		if c.PerformerID == performerID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockCompletionRepo) EarnedBalance(ctx context.Context, qx any, performerID string) (model.Amount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum model.Amount
	for _, c := range m.store {
		if c.PerformerID == performerID {
			sum += c.Reward
		}
	}
	return sum, nil
}

func (m *MockCompletionRepo) Clear(ctx context.Context, qx any, performerID string) (int, error) {
	if m.clearErr != nil {
		return 0, m.clearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key, c := range m.store {
		if c.PerformerID == performerID {
			delete(m.store, key)
			n++
		}
	}
	return n, nil
}

func (m *MockCompletionRepo) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

type MockSessionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.VerificationSession
}

func NewMockSessionRepo() *MockSessionRepo {
	return &MockSessionRepo{store: make(map[string]*model.VerificationSession)}
}

func (m *MockSessionRepo) Save(ctx context.Context, s *model.VerificationSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *MockSessionRepo) Find(ctx context.Context, id string) (*model.VerificationSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSessionRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

// backdate shifts a stored session's start time so tests can cross the dwell
// and window boundaries without sleeping.
func (m *MockSessionRepo) backdate(id string, by time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.store[id]; ok {
		s.StartedAt = s.StartedAt.Add(-by)
	}
}

func (m *MockSessionRepo) has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.store[id]
	return ok
}

type MockBalanceCache struct {
	mu    sync.RWMutex
	store map[string]model.Amount
}

func NewMockBalanceCache() *MockBalanceCache {
	return &MockBalanceCache{store: make(map[string]model.Amount)}
}

func (m *MockBalanceCache) Get(ctx context.Context, wallet string) (model.Amount, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[wallet]
	return a, ok, nil
}

func (m *MockBalanceCache) Set(ctx context.Context, wallet string, amount model.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[wallet] = amount
	return nil
}

func (m *MockBalanceCache) Add(ctx context.Context, wallet string, delta model.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.store[wallet]; ok {
		m.store[wallet] = a + delta
	}
	return nil
}

func (m *MockBalanceCache) Invalidate(ctx context.Context, wallet string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, wallet)
	return nil
}

// MockTxManager runs the callback without a real transaction, which is
// exactly what the repositories' nil-qx path expects.
type MockTxManager struct {
	FailWith error
}

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, qx any) error) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	return fn(ctx, nil)
}

// -----------------------------
// Adapters
// -----------------------------

// MockChain scripts the contract surface per test via Func fields; unset
// read funcs return zero values.
type MockChain struct {
	TokenBalanceFunc     func(ctx context.Context, wallet string) (*big.Int, error)
	NativeBalanceFunc    func(ctx context.Context, wallet string) (*big.Int, error)
	AllowanceFunc        func(ctx context.Context, owner string) (*big.Int, error)
	UserEarningsFunc     func(ctx context.Context, wallet string) (*big.Int, error)
	JobCompletedFunc     func(ctx context.Context, onChainJobID *big.Int, wallet string) (bool, error)
	ApproveFunc          func(ctx context.Context, signer adapter.TxSigner, amount *big.Int) (adapter.TxReceipt, error)
	CreateJobFunc        func(ctx context.Context, signer adapter.TxSigner, postRef string, action model.ActionKind, pricePerAction *big.Int, maxActions int64) (adapter.CreateJobResult, error)
	CompleteJobFunc      func(ctx context.Context, signer adapter.TxSigner, onChainJobID *big.Int, performer string) (adapter.TxReceipt, error)
	WithdrawEarningsFunc func(ctx context.Context, signer adapter.TxSigner) (adapter.WithdrawResult, error)
	JobIDFromTxFunc      func(ctx context.Context, txHash string) (*big.Int, error)
}

func (m *MockChain) TokenBalance(ctx context.Context, wallet string) (*big.Int, error) {
	if m.TokenBalanceFunc != nil {
		return m.TokenBalanceFunc(ctx, wallet)
	}
	return big.NewInt(0), nil
}

func (m *MockChain) NativeBalance(ctx context.Context, wallet string) (*big.Int, error) {
	if m.NativeBalanceFunc != nil {
		return m.NativeBalanceFunc(ctx, wallet)
	}
	return big.NewInt(0), nil
}

func (m *MockChain) Allowance(ctx context.Context, owner string) (*big.Int, error) {
	if m.AllowanceFunc != nil {
		return m.AllowanceFunc(ctx, owner)
	}
	return big.NewInt(0), nil
}

func (m *MockChain) UserEarnings(ctx context.Context, wallet string) (*big.Int, error) {
	if m.UserEarningsFunc != nil {
		return m.UserEarningsFunc(ctx, wallet)
	}
	return big.NewInt(0), nil
}

func (m *MockChain) JobCompleted(ctx context.Context, onChainJobID *big.Int, wallet string) (bool, error) {
	if m.JobCompletedFunc != nil {
		return m.JobCompletedFunc(ctx, onChainJobID, wallet)
	}
	return false, nil
}

func (m *MockChain) Approve(ctx context.Context, signer adapter.TxSigner, amount *big.Int) (adapter.TxReceipt, error) {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, signer, amount)
	}
	return adapter.TxReceipt{TxHash: "0xapprove", Succeeded: true}, nil
}

func (m *MockChain) CreateJob(ctx context.Context, signer adapter.TxSigner, postRef string, action model.ActionKind, pricePerAction *big.Int, maxActions int64) (adapter.CreateJobResult, error) {
	if m.CreateJobFunc != nil {
		return m.CreateJobFunc(ctx, signer, postRef, action, pricePerAction, maxActions)
	}
	return adapter.CreateJobResult{
		Receipt:   adapter.TxReceipt{TxHash: "0xcreate", Succeeded: true},
		OnChainID: big.NewInt(1),
	}, nil
}

func (m *MockChain) CompleteJob(ctx context.Context, signer adapter.TxSigner, onChainJobID *big.Int, performer string) (adapter.TxReceipt, error) {
	if m.CompleteJobFunc != nil {
		return m.CompleteJobFunc(ctx, signer, onChainJobID, performer)
	}
	return adapter.TxReceipt{TxHash: "0xcomplete", Succeeded: true}, nil
}

func (m *MockChain) WithdrawEarnings(ctx context.Context, signer adapter.TxSigner) (adapter.WithdrawResult, error) {
	if m.WithdrawEarningsFunc != nil {
		return m.WithdrawEarningsFunc(ctx, signer)
	}
	return adapter.WithdrawResult{
		Receipt: adapter.TxReceipt{TxHash: "0xwithdraw", Succeeded: true},
	}, nil
}

func (m *MockChain) JobIDFromTx(ctx context.Context, txHash string) (*big.Int, error) {
	if m.JobIDFromTxFunc != nil {
		return m.JobIDFromTxFunc(ctx, txHash)
	}
	return nil, domain.ErrNotFound
}

// MockFetcher serves scripted counter snapshots per handle, consumed
// front-to-back; the last one repeats once the queue drains.
type MockFetcher struct {
	mu        sync.Mutex
	counters  map[string][]model.Counters
	fetchErr  error
	CheckFunc func(ctx context.Context, handle, postRef string, kind model.ActionKind) (bool, error)
	Fetches   int
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{counters: make(map[string][]model.Counters)}
}

func (m *MockFetcher) queue(handle string, snapshots ...model.Counters) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[handle] = append(m.counters[handle], snapshots...)
}

func (m *MockFetcher) failWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCounters(ctx context.Context, handle string) (model.Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetches++
	if m.fetchErr != nil {
		return model.Counters{}, m.fetchErr
	}
	q := m.counters[handle]
	if len(q) == 0 {
		return model.Counters{}, fmt.Errorf("no counters scripted for %q", handle)
	}
	c := q[0]
	if len(q) > 1 {
		m.counters[handle] = q[1:]
	}
	return c, nil
}

func (m *MockFetcher) CheckInteraction(ctx context.Context, handle, postRef string, kind model.ActionKind) (bool, error) {
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx, handle, postRef, kind)
	}
	return false, fmt.Errorf("no direct check scripted")
}

// MockSigner is a no-op signer carrying only an address.
type MockSigner struct {
	Addr string
}

func (m *MockSigner) Address() string { return m.Addr }

func (m *MockSigner) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return tx, nil
}

type MockSignerRegistry struct {
	Err error
}

func (m *MockSignerRegistry) SignerFor(ctx context.Context, wallet string) (adapter.TxSigner, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &MockSigner{Addr: wallet}, nil
}

type mockLimiter struct {
	allow bool
	err   error
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return m.allow, m.err
}
