package leaderboard

import (
	"fmt"
	"testing"

	"github.com/kazeca/holyfit-sub000/core"
)

func TestSkipListBasic(t *testing.T) {
	s := NewSkipList()
	s.Update(core.UserID("a"), 10)
	s.Update(core.UserID("b"), 20)
	s.Update(core.UserID("c"), 15)
	top := s.TopN(3)
	if len(top) != 3 || top[0].User != core.UserID("b") || top[1].User != core.UserID("c") || top[2].User != core.UserID("a") {
		t.Fatalf("unexpected order: %#v", top)
	}
	s.Update(core.UserID("a"), 25)
	top = s.TopN(1)
	if top[0].User != core.UserID("a") {
		t.Fatalf("top should be a, got %#v", top)
	}
}

func TestSkipListTies(t *testing.T) {
	s := NewSkipList()
	s.Update(core.UserID("zoe"), 100)
	s.Update(core.UserID("amy"), 100)
	top := s.TopN(2)
	if top[0].User != core.UserID("amy") || top[1].User != core.UserID("zoe") {
		t.Fatalf("ties should order by user asc, got %#v", top)
	}
}

func TestSkipListRank(t *testing.T) {
	s := NewSkipList()
	s.Update(core.UserID("a"), 300)
	s.Update(core.UserID("b"), 200)
	s.Update(core.UserID("c"), 100)

	if r, ok := s.Rank(core.UserID("a")); !ok || r != 1 {
		t.Fatalf("want rank 1, got %d %v", r, ok)
	}
	if r, ok := s.Rank(core.UserID("c")); !ok || r != 3 {
		t.Fatalf("want rank 3, got %d %v", r, ok)
	}
	if _, ok := s.Rank(core.UserID("zz")); ok {
		t.Fatal("unknown user should not have a rank")
	}

	// overtaking moves rank
	s.Update(core.UserID("c"), 400)
	if r, _ := s.Rank(core.UserID("c")); r != 1 {
		t.Fatalf("want rank 1 after update, got %d", r)
	}
	if r, _ := s.Rank(core.UserID("a")); r != 2 {
		t.Fatalf("want rank 2 after being overtaken, got %d", r)
	}
}

func TestSkipListRemove(t *testing.T) {
	s := NewSkipList()
	s.Update(core.UserID("a"), 10)
	s.Update(core.UserID("b"), 20)
	s.Remove(core.UserID("b"))
	if _, ok := s.Get(core.UserID("b")); ok {
		t.Fatal("removed user still present")
	}
	top := s.TopN(10)
	if len(top) != 1 || top[0].User != core.UserID("a") {
		t.Fatalf("unexpected board after remove: %#v", top)
	}
}

func TestSkipListManyUsers(t *testing.T) {
	s := NewSkipList()
	const n = 500
	for i := 0; i < n; i++ {
		s.Update(core.UserID(fmt.Sprintf("user-%03d", i)), int64(i))
	}
	top := s.TopN(5)
	if len(top) != 5 || top[0].Score != n-1 {
		t.Fatalf("unexpected top: %#v", top)
	}
	for i := 1; i < len(top); i++ {
		if top[i].Score > top[i-1].Score {
			t.Fatalf("board out of order at %d: %#v", i, top)
		}
	}
	if r, _ := s.Rank(core.UserID("user-499")); r != 1 {
		t.Fatalf("want best rank 1, got %d", r)
	}
	if r, _ := s.Rank(core.UserID("user-000")); r != n {
		t.Fatalf("want worst rank %d, got %d", n, r)
	}
}
