package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"leave-tracker/internal/model"
	pkgerrors "leave-tracker/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // key: user_id
	seq   int
	err   error // 非 nil 时所有方法返回该错误
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return pkgerrors.ErrDuplicateKey
		}
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("00000000-0000-0000-0000-%012d", m.seq)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) ExistsByRole(_ context.Context, role string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, u := range m.users {
		if u.Role == role {
			return true, nil
		}
	}
	return false, nil
}

// ── Mock LeaveRepository ──

// mockLeaveRepo 内存实现；Decide 与数据库一致，仅在 pending 时生效
type mockLeaveRepo struct {
	mu     sync.Mutex
	users  *mockUserRepo
	leaves map[string]*model.Leave
	seq    int
	err    error
	// staleDecide 为 true 时 Decide 总是未命中，模拟条件更新与读取之间状态不一致
	staleDecide bool
}

func newMockLeaveRepo(users *mockUserRepo) *mockLeaveRepo {
	return &mockLeaveRepo{users: users, leaves: make(map[string]*model.Leave)}
}

func (m *mockLeaveRepo) Create(_ context.Context, leave *model.Leave) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if leave.LeaveID == "" {
		m.seq++
		leave.LeaveID = fmt.Sprintf("10000000-0000-0000-0000-%012d", m.seq)
	}
	stored := *leave
	m.leaves[leave.LeaveID] = &stored
	return nil
}

// withOwner 返回副本并附带申请人，模拟 Joins("User")
func (m *mockLeaveRepo) withOwner(l *model.Leave) model.Leave {
	out := *l
	if u, ok := m.users.users[l.UserID]; ok {
		owner := *u
		out.User = &owner
	}
	return out
}

func (m *mockLeaveRepo) GetByID(_ context.Context, id string) (*model.Leave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	l, ok := m.leaves[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := m.withOwner(l)
	return &out, nil
}

func (m *mockLeaveRepo) sorted(keep func(*model.Leave) bool, limit int) []model.Leave {
	result := make([]model.Leave, 0)
	for _, l := range m.leaves {
		if keep(l) {
			result = append(result, m.withOwner(l))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].AppliedAt.Equal(result[j].AppliedAt) {
			return result[i].AppliedAt.After(result[j].AppliedAt)
		}
		return result[i].LeaveID > result[j].LeaveID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (m *mockLeaveRepo) ListByOwner(_ context.Context, userID string, limit int) ([]model.Leave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.sorted(func(l *model.Leave) bool { return l.UserID == userID }, limit), nil
}

func (m *mockLeaveRepo) ListAll(_ context.Context, status string, limit int) ([]model.Leave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.sorted(func(l *model.Leave) bool { return status == "" || l.Status == status }, limit), nil
}

func (m *mockLeaveRepo) CountByStatus(_ context.Context, userID string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	counts := make(map[string]int64)
	for _, l := range m.leaves {
		if userID == "" || l.UserID == userID {
			counts[l.Status]++
		}
	}
	return counts, nil
}

func (m *mockLeaveRepo) Decide(_ context.Context, id, status, comment string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	l, ok := m.leaves[id]
	if !ok || l.Status != model.LeaveStatusPending || m.staleDecide {
		return pkgerrors.ErrStatusConflict
	}
	l.Status = status
	l.AdminComments = &comment
	l.UpdatedAt = at
	return nil
}

// count 当前记录总数
func (m *mockLeaveRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leaves)
}

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{revoked: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.revoked[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[jti]
	return ok, nil
}
