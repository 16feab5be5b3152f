package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/repositories"
	"github.com/BradenHooton/warden/pkg/logger"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func discardAudit() *logger.AuditLogger {
	return logger.NewAuditLogger(discardLogger())
}

// ============================================================================
// Func-field mocks
// ============================================================================

// MockCredentialRepository implements CredentialRepository for testing
type MockCredentialRepository struct {
	GetByNameFunc          func(ctx context.Context, name string) (*models.Credential, error)
	GetByEmailFunc         func(ctx context.Context, email string) (*models.Credential, error)
	GetStatusFunc          func(ctx context.Context, name, email string) (models.CredentialStatus, error)
	CreateFunc             func(ctx context.Context, name, email, hash string) (*models.Credential, error)
	UpdateFunc             func(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	MarkDeletedByEmailFunc func(ctx context.Context, email string) (int64, error)
}

func (m *MockCredentialRepository) GetByName(ctx context.Context, name string) (*models.Credential, error) {
	if m.GetByNameFunc != nil {
		return m.GetByNameFunc(ctx, name)
	}
	return nil, nil
}

func (m *MockCredentialRepository) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *MockCredentialRepository) GetStatus(ctx context.Context, name, email string) (models.CredentialStatus, error) {
	if m.GetStatusFunc != nil {
		return m.GetStatusFunc(ctx, name, email)
	}
	return models.StatusNone, nil
}

func (m *MockCredentialRepository) Create(ctx context.Context, name, email, hash string) (*models.Credential, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, name, email, hash)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCredentialRepository) Update(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, cred)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCredentialRepository) MarkDeletedByEmail(ctx context.Context, email string) (int64, error) {
	if m.MarkDeletedByEmailFunc != nil {
		return m.MarkDeletedByEmailFunc(ctx, email)
	}
	return 0, nil
}

// MockHasher implements PasswordHasher with a reversible fake encoding.
type MockHasher struct {
	HashFunc   func(ctx context.Context, password string) (string, error)
	VerifyFunc func(ctx context.Context, password, encoded string) (bool, error)
}

func fakeHash(password string) string {
	return "hashed:" + password
}

func (m *MockHasher) Hash(ctx context.Context, password string) (string, error) {
	if m.HashFunc != nil {
		return m.HashFunc(ctx, password)
	}
	return fakeHash(password), nil
}

func (m *MockHasher) Verify(ctx context.Context, password, encoded string) (bool, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, password, encoded)
	}
	if !strings.HasPrefix(encoded, "hashed:") {
		return false, nil
	}
	return encoded == fakeHash(password), nil
}

// MockLockout implements Lockout and records the users it was asked to suspend.
type MockLockout struct {
	SuspendFunc   func(ctx context.Context, userID int64) (models.SuspendResult, error)
	SuspendedFunc func(cred *models.Credential) (bool, error)
	SuspendCalls  []int64
}

func (m *MockLockout) Suspend(ctx context.Context, userID int64) (models.SuspendResult, error) {
	m.SuspendCalls = append(m.SuspendCalls, userID)
	if m.SuspendFunc != nil {
		return m.SuspendFunc(ctx, userID)
	}
	return models.SuspendFlagged, nil
}

func (m *MockLockout) Suspended(cred *models.Credential) (bool, error) {
	if m.SuspendedFunc != nil {
		return m.SuspendedFunc(cred)
	}
	return false, nil
}

// MockTokenIssuer implements TokenIssuer
type MockTokenIssuer struct {
	IssueFunc func(cred *models.Credential) (string, error)
}

func (m *MockTokenIssuer) Issue(cred *models.Credential) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(cred)
	}
	return "token-for-" + cred.Email, nil
}

// MockPasswordResetRepository implements PasswordResetRepository
type MockPasswordResetRepository struct {
	CreateFunc   func(ctx context.Context, req *models.PasswordResetRequest) error
	GetByIDFunc  func(ctx context.Context, id string) (*models.PasswordResetRequest, error)
	RedeemFunc   func(ctx context.Context, userID int64, hash string) (*models.Credential, error)
	Created      []*models.PasswordResetRequest
	DeletedUsers []int64
}

func (m *MockPasswordResetRepository) Create(ctx context.Context, req *models.PasswordResetRequest) error {
	m.Created = append(m.Created, req)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return nil
}

func (m *MockPasswordResetRepository) GetByID(ctx context.Context, id string) (*models.PasswordResetRequest, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

// Redeem records userID as cleared only when RedeemFunc reports a live credential.
func (m *MockPasswordResetRepository) Redeem(ctx context.Context, userID int64, hash string) (*models.Credential, error) {
	if m.RedeemFunc == nil {
		return nil, nil
	}
	cred, err := m.RedeemFunc(ctx, userID, hash)
	if err == nil && cred != nil {
		m.DeletedUsers = append(m.DeletedUsers, userID)
	}
	return cred, err
}

// MockResetMailer implements ResetMailer and captures sent tickets. Delivery
// runs on its own goroutine, so read Sent after PasswordResetService.Wait.
type MockResetMailer struct {
	mu    sync.Mutex
	Err   error
	Block chan struct{}
	Sent  []*models.ResetTicket
}

func (m *MockResetMailer) SendPasswordReset(ctx context.Context, ticket *models.ResetTicket, expiresAt time.Time) error {
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, ticket)
	return m.Err
}

// ============================================================================
// In-memory stores
// ============================================================================

// memCredentialStore is an in-memory CredentialRepository honouring soft deletes.
type memCredentialStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Credential
	now    func() time.Time
}

func newMemCredentialStore(now func() time.Time) *memCredentialStore {
	return &memCredentialStore{rows: make(map[int64]*models.Credential), now: now}
}

func (s *memCredentialStore) find(match func(*models.Credential) bool) *models.Credential {
	for _, c := range s.rows {
		if c.DeletedAt == nil && match(c) {
			cp := *c
			return &cp
		}
	}
	return nil
}

func (s *memCredentialStore) GetByName(_ context.Context, name string) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(c *models.Credential) bool { return c.Name == name }), nil
}

func (s *memCredentialStore) GetByEmail(_ context.Context, email string) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(c *models.Credential) bool { return c.Email == email }), nil
}

func (s *memCredentialStore) GetStatus(_ context.Context, name, email string) (models.CredentialStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := models.StatusNone
	for _, c := range s.rows {
		if c.Name != name && c.Email != email {
			continue
		}
		if c.DeletedAt == nil {
			return models.StatusExists, nil
		}
		status = models.StatusDeleted
	}
	return status, nil
}

func (s *memCredentialStore) Create(_ context.Context, name, email, hash string) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(func(c *models.Credential) bool { return c.Name == name || c.Email == email }) != nil {
		return nil, models.ErrConflict
	}

	s.nextID++
	now := s.now()
	c := &models.Credential{ID: s.nextID, Name: name, Email: email, Hash: hash, CreatedAt: now, UpdatedAt: now}
	s.rows[c.ID] = c
	cp := *c
	return &cp, nil
}

func (s *memCredentialStore) Update(_ context.Context, cred *models.Credential) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.rows[cred.ID]
	if !ok || c.DeletedAt != nil {
		return nil, nil
	}
	clash := s.find(func(o *models.Credential) bool {
		return o.ID != cred.ID && (o.Name == cred.Name || o.Email == cred.Email)
	})
	if clash != nil {
		return nil, models.ErrConflict
	}

	c.Name, c.Email, c.Hash, c.UpdatedAt = cred.Name, cred.Email, cred.Hash, s.now()
	cp := *c
	return &cp, nil
}

func (s *memCredentialStore) UpdatePasswordHash(_ context.Context, userID int64, hash string) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.rows[userID]
	if !ok || c.DeletedAt != nil {
		return nil, nil
	}
	c.Hash, c.UpdatedAt = hash, s.now()
	cp := *c
	return &cp, nil
}

func (s *memCredentialStore) MarkDeletedByEmail(_ context.Context, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, c := range s.rows {
		if c.Email == email && c.DeletedAt == nil {
			at := s.now()
			c.DeletedAt = &at
			n++
		}
	}
	return n, nil
}

func (s *memCredentialStore) lock(userID int64, at time.Time) {
	if c, ok := s.rows[userID]; ok {
		c.LockedAt = &at
	}
}

// memLoginHistory is an in-memory LoginHistoryRepository. Transactions work
// on a copy that is only published when the callback succeeds.
type memLoginHistory struct {
	mu        sync.Mutex
	records   map[int64]*models.FailedLogin
	creds     *memCredentialStore
	failLock  bool
	txCommits int
}

func newMemLoginHistory(creds *memCredentialStore) *memLoginHistory {
	return &memLoginHistory{records: make(map[int64]*models.FailedLogin), creds: creds}
}

func (m *memLoginHistory) Log(ctx context.Context, userID int64, at time.Time) (*models.FailedLogin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{records: m.records}).Log(ctx, userID, at)
}

func (m *memLoginHistory) WithinTransaction(ctx context.Context, fn func(repositories.FailedLoginWriter) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := make(map[int64]*models.FailedLogin, len(m.records))
	for k, v := range m.records {
		cp := *v
		staged[k] = &cp
	}
	tx := &memTx{records: staged, locks: make(map[int64]time.Time), failLock: m.failLock}

	if err := fn(tx); err != nil {
		return err
	}

	m.records = tx.records
	if m.creds != nil {
		m.creds.mu.Lock()
		for id, at := range tx.locks {
			m.creds.lock(id, at)
		}
		m.creds.mu.Unlock()
	}
	m.txCommits++
	return nil
}

func (m *memLoginHistory) record(userID int64) *models.FailedLogin {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[userID]; ok {
		cp := *r
		return &cp
	}
	return nil
}

type memTx struct {
	records  map[int64]*models.FailedLogin
	locks    map[int64]time.Time
	failLock bool
}

func (t *memTx) Log(_ context.Context, userID int64, at time.Time) (*models.FailedLogin, error) {
	r, ok := t.records[userID]
	if !ok {
		r = &models.FailedLogin{UserID: userID, CreatedAt: at}
		t.records[userID] = r
	}
	r.Attempts++
	r.UpdatedAt = at
	cp := *r
	return &cp, nil
}

func (t *memTx) Clear(_ context.Context, userID int64) error {
	delete(t.records, userID)
	return nil
}

func (t *memTx) Lock(_ context.Context, userID int64, at time.Time) error {
	if t.failLock {
		return errors.New("lock write failed")
	}
	t.locks[userID] = at
	return nil
}

// testClock is a settable clock shared by services under test.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: testNow}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// failingLoginHistory fails every store call with err.
type failingLoginHistory struct {
	err error
}

func (f *failingLoginHistory) Log(context.Context, int64, time.Time) (*models.FailedLogin, error) {
	return nil, f.err
}

func (f *failingLoginHistory) WithinTransaction(context.Context, func(repositories.FailedLoginWriter) error) error {
	return f.err
}
