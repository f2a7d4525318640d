package club

import "context"

// ClubStore manages the club's members, the users that can take part in events.
type ClubStore interface {
	AddMember(ctx context.Context, member Member) error
	UpsertMembers(ctx context.Context, members []Member) error
	GetMember(ctx context.Context, memberID string) (*Member, error)
	GetMembers(ctx context.Context, memberIDs []string) ([]Member, error)
	GetAllMembers(ctx context.Context) ([]Member, error)
	GetMembersSortedByRank(ctx context.Context) ([]Member, error)
	IsKnownMember(ctx context.Context, memberID string) bool
	SetRank(ctx context.Context, memberID string, rank float64) error
}
