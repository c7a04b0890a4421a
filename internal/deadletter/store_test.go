package deadletter

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	_ "modernc.org/sqlite"

	"github.com/petrijr/taskhub/pkg/api"
)

// StoreSuite runs the same behavioural checks against every Store.
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
	ctx      context.Context
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore(s.T())
}

func letter(id string, kind api.WorkItemKind, instanceID string, at time.Time) *api.DeadLetter {
	return &api.DeadLetter{
		ID:         id,
		Kind:       kind,
		InstanceID: instanceID,
		TaskID:     7,
		Name:       "SayHello",
		Attempts:   3,
		Error:      "rpc error: code = Unavailable desc = sidecar gone",
		Payload:    []byte{0x0a, 0x03, 'a', 'b', 'c'},
		At:         at,
	}
}

func (s *StoreSuite) TestPutThenGet() {
	at := time.Unix(1_700_000_000, 123456789)
	s.Require().NoError(s.store.Put(s.ctx, letter("dl-1", api.WorkItemActivity, "inst-1", at)))

	got, err := s.store.Get(s.ctx, "dl-1")
	s.Require().NoError(err)
	s.Equal("dl-1", got.ID)
	s.Equal(api.WorkItemActivity, got.Kind)
	s.Equal("inst-1", got.InstanceID)
	s.Equal(int32(7), got.TaskID)
	s.Equal("SayHello", got.Name)
	s.Equal(3, got.Attempts)
	s.Equal("rpc error: code = Unavailable desc = sidecar gone", got.Error)
	s.Equal([]byte{0x0a, 0x03, 'a', 'b', 'c'}, got.Payload)
	s.True(at.Equal(got.At), "at = %v, want %v", got.At, at)
}

func (s *StoreSuite) TestGetUnknownID() {
	_, err := s.store.Get(s.ctx, "missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestListFiltersAndOrdersOldestFirst() {
	base := time.Unix(1_700_000_000, 0)
	s.Require().NoError(s.store.Put(s.ctx, letter("c", api.WorkItemActivity, "inst-1", base.Add(2*time.Second))))
	s.Require().NoError(s.store.Put(s.ctx, letter("a", api.WorkItemOrchestrator, "inst-1", base)))
	s.Require().NoError(s.store.Put(s.ctx, letter("b", api.WorkItemActivity, "inst-2", base.Add(time.Second))))

	all, err := s.store.List(s.ctx, Filter{})
	s.Require().NoError(err)
	s.Equal([]string{"a", "b", "c"}, ids(all))

	activities, err := s.store.List(s.ctx, Filter{Kind: api.WorkItemActivity})
	s.Require().NoError(err)
	s.Equal([]string{"b", "c"}, ids(activities))

	inst1, err := s.store.List(s.ctx, Filter{InstanceID: "inst-1"})
	s.Require().NoError(err)
	s.Equal([]string{"a", "c"}, ids(inst1))

	both, err := s.store.List(s.ctx, Filter{Kind: api.WorkItemActivity, InstanceID: "inst-1"})
	s.Require().NoError(err)
	s.Equal([]string{"c"}, ids(both))

	none, err := s.store.List(s.ctx, Filter{InstanceID: "nope"})
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *StoreSuite) TestDelete() {
	s.Require().NoError(s.store.Put(s.ctx, letter("dl-1", api.WorkItemOrchestrator, "inst-1", time.Now())))

	s.Require().NoError(s.store.Delete(s.ctx, "dl-1"))
	_, err := s.store.Get(s.ctx, "dl-1")
	s.ErrorIs(err, ErrNotFound)

	remaining, err := s.store.List(s.ctx, Filter{InstanceID: "inst-1"})
	s.Require().NoError(err)
	s.Empty(remaining)

	s.ErrorIs(s.store.Delete(s.ctx, "dl-1"), ErrNotFound)
}

func ids(dls []*api.DeadLetter) []string {
	out := make([]string, 0, len(dls))
	for _, dl := range dls {
		out = append(out, dl.ID)
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(*testing.T) Store { return NewMemoryStore() }})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		db, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			t.Fatalf("sql.Open failed: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })

		store, err := NewSQLiteStore(db)
		if err != nil {
			t.Fatalf("NewSQLiteStore failed: %v", err)
		}
		return store
	}})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	dl := letter("dl-1", api.WorkItemActivity, "inst-1", time.Now())
	if err := store.Put(ctx, dl); err != nil {
		t.Fatal(err)
	}
	dl.Name = "changed"

	got, err := store.Get(ctx, "dl-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "SayHello" {
		t.Fatalf("stored letter was mutated through the caller's pointer: %q", got.Name)
	}
}
