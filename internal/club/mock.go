package club

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
)

// MockStore is an in-memory implementation of the ClubStore interface for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu      sync.Mutex
	members map[string]Member

	// Spies for method calls
	AddMemberFunc func(member Member) error
	SetRankFunc   func(memberID string, rank float64) error

	// Call records
	AddMemberCalls     []Member
	UpsertMembersCalls [][]Member
	SetRankCalls       []struct {
		MemberID string
		Rank     float64
	}
}

var _ ClubStore = (*MockStore)(nil)

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{members: make(map[string]Member)}
}

// Reset clears all call records and members.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = make(map[string]Member)
	m.AddMemberCalls = nil
	m.UpsertMembersCalls = nil
	m.SetRankCalls = nil
}

func (m *MockStore) AddMember(ctx context.Context, member Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddMemberCalls = append(m.AddMemberCalls, member)
	if m.AddMemberFunc != nil {
		return m.AddMemberFunc(member)
	}
	m.members[member.ID] = member
	return nil
}

func (m *MockStore) UpsertMembers(ctx context.Context, members []Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertMembersCalls = append(m.UpsertMembersCalls, members)
	for _, member := range members {
		m.members[member.ID] = member
	}
	return nil
}

func (m *MockStore) GetMember(ctx context.Context, memberID string) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[memberID]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", memberID, lifecycle.ErrNotFound)
	}
	return &member, nil
}

func (m *MockStore) GetMembers(ctx context.Context, memberIDs []string) ([]Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Member
	for _, id := range memberIDs {
		if member, ok := m.members[id]; ok {
			out = append(out, member)
		}
	}
	return out, nil
}

func (m *MockStore) GetAllMembers(ctx context.Context) ([]Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Member, 0, len(m.members))
	for _, member := range m.members {
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockStore) GetMembersSortedByRank(ctx context.Context) ([]Member, error) {
	out, _ := m.GetAllMembers(ctx)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank > out[j].Rank })
	return out, nil
}

func (m *MockStore) IsKnownMember(ctx context.Context, memberID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.members[memberID]
	return ok
}

func (m *MockStore) SetRank(ctx context.Context, memberID string, rank float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetRankCalls = append(m.SetRankCalls, struct {
		MemberID string
		Rank     float64
	}{memberID, rank})
	if m.SetRankFunc != nil {
		return m.SetRankFunc(memberID, rank)
	}
	member, ok := m.members[memberID]
	if !ok {
		return fmt.Errorf("member %s: %w", memberID, lifecycle.ErrNotFound)
	}
	member.Rank = rank
	m.members[memberID] = member
	return nil
}
