package server

import (
	"fmt"
	"testing"

	"go.uber.org/mock/gomock"
	"pgregory.net/rapid"
)

func TestRegisterSendsInitAndAnnouncesPlayer(t *testing.T) {
	tw := newTestWorld(t)
	tw.mustRegister(t, "c-a", "uid-a", "abc", "shark")

	reg := tw.mustRegister(t, "c-b", "uid-b", "bob", "clownfish")
	if reg.Position != tw.cfg.SpawnPoint || reg.Direction != DirRight {
		t.Fatalf("expected default spawn, got %+v %s", reg.Position, reg.Direction)
	}
	if len(reg.Players) != 2 {
		t.Fatalf("expected 2 active players in snapshot, got %d", len(reg.Players))
	}
	if reg.Players["uid-a"].Nickname != "abc" {
		t.Errorf("unexpected snapshot entry: %+v", reg.Players["uid-a"])
	}

	inits := tw.out.ofType(MsgInit)
	if len(inits) != 2 || inits[1].to != "c-b" {
		t.Fatalf("expected init unicast to c-b, got %+v", inits)
	}

	joined := tw.out.ofType(MsgPlayerJoined)
	if len(joined) != 2 {
		t.Fatalf("expected 2 playerJoined frames, got %d", len(joined))
	}
	last := joined[1]
	if last.reaches("c-b") || !last.reaches("c-a") {
		t.Errorf("playerJoined must reach everyone except the registering connection")
	}
	if last.msg["id"] != "uid-b" || last.msg["character"] != "clownfish" {
		t.Errorf("unexpected playerJoined payload: %v", last.msg)
	}
}

func TestRegisterRejectsMissingIdentity(t *testing.T) {
	tw := newTestWorld(t)
	if _, err := tw.Register("c-1", "", "abc", "shark"); err != ErrInvalidIdentity {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}
	if len(tw.out.frames) != 0 {
		t.Fatalf("expected no frames, got %d", len(tw.out.frames))
	}
}

func TestReconnectWithSameProfilePreservesPosition(t *testing.T) {
	tw := newTestWorld(t)
	tw.mustRegister(t, "c-old", "uid-a", "abc", "shark")
	if err := tw.UpdatePosition("c-old", Vec2{X: 120, Y: 140}, DirLeft); err != nil {
		t.Fatalf("update position: %v", err)
	}

	reg := tw.mustRegister(t, "c-new", "uid-a", "abc", "shark")
	if reg.Position != (Vec2{X: 120, Y: 140}) {
		t.Errorf("expected position preserved, got %+v", reg.Position)
	}
	if reg.Direction != DirLeft {
		t.Errorf("expected direction preserved, got %s", reg.Direction)
	}

	closed := tw.out.closedConns()
	if len(closed) != 1 || closed[0] != "c-old" {
		t.Fatalf("expected old connection closed, got %v", closed)
	}

	p, _ := tw.Player("uid-a")
	if p.Conn != "c-new" {
		t.Errorf("expected c-new to be active, got %q", p.Conn)
	}
	if _, ok := tw.conns["c-old"]; ok {
		t.Errorf("old connection still in active index")
	}
}

func TestReconnectWithChangedProfileResetsPosition(t *testing.T) {
	cases := []struct {
		name      string
		nickname  string
		character string
	}{
		{name: "nickname", nickname: "xyz", character: "shark"},
		{name: "character", nickname: "abc", character: "pufferfish"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tw := newTestWorld(t)
			tw.mustRegister(t, "c-old", "uid-a", "abc", "shark")
			_ = tw.UpdatePosition("c-old", Vec2{X: 120, Y: 140}, DirLeft)

			reg := tw.mustRegister(t, "c-new", "uid-a", tc.nickname, tc.character)
			if reg.Position != tw.cfg.SpawnPoint || reg.Direction != tw.cfg.SpawnDirection {
				t.Fatalf("expected reset to spawn, got %+v %s", reg.Position, reg.Direction)
			}
		})
	}
}

func TestReconnectComparesSanitizedNickname(t *testing.T) {
	tw := newTestWorld(t)
	tw.mustRegister(t, "c-old", "uid-a", "darn", "shark")
	_ = tw.UpdatePosition("c-old", Vec2{X: 10, Y: 20}, DirLeft)

	reg := tw.mustRegister(t, "c-new", "uid-a", "darn", "shark")
	if reg.Position != (Vec2{X: 10, Y: 20}) {
		t.Fatalf("expected position preserved for identical nickname, got %+v", reg.Position)
	}
	if reg.Players["uid-a"].Nickname != "****" {
		t.Errorf("expected sanitized nickname, got %q", reg.Players["uid-a"].Nickname)
	}
}

func TestRegisterSanitizesNicknameThroughSanitizer(t *testing.T) {
	ctrl := gomock.NewController(t)
	san := NewMockSanitizer(ctrl)
	san.EXPECT().Clean("rude").Return("****")

	tw := newTestWorld(t)
	tw.sanitizer = san
	reg := tw.mustRegister(t, "c-1", "uid-1", "rude", "shark")
	if got := reg.Players["uid-1"].Nickname; got != "****" {
		t.Fatalf("expected sanitized nickname, got %q", got)
	}
}

func TestRegisterSameConnectionTwiceDoesNotClose(t *testing.T) {
	tw := newTestWorld(t)
	tw.mustRegister(t, "c-1", "uid-a", "abc", "shark")
	tw.mustRegister(t, "c-1", "uid-a", "abc", "shark")
	if closed := tw.out.closedConns(); len(closed) != 0 {
		t.Fatalf("expected no closed connections, got %v", closed)
	}
}

func TestRegisterOnConnectionBoundToOtherIdentity(t *testing.T) {
	tw := newTestWorld(t)
	tw.mustRegister(t, "c-1", "uid-a", "abc", "shark")
	tw.mustRegister(t, "c-1", "uid-b", "bob", "shark")

	a, _ := tw.Player("uid-a")
	if a.Active() {
		t.Fatalf("expected uid-a to be stale after its connection switched identity")
	}
	left := tw.out.ofType(MsgPlayerLeft)
	if len(left) != 1 || left[0].msg["id"] != "uid-a" {
		t.Fatalf("expected playerLeft for uid-a, got %+v", left)
	}
	if players := tw.ActivePlayers(); len(players) != 1 {
		t.Fatalf("expected one active player, got %d", len(players))
	}
}

func TestUpdatePositionIgnoresUnboundConnection(t *testing.T) {
	tw := newTestWorld(t)
	if err := tw.UpdatePosition("ghost", Vec2{X: 1, Y: 1}, DirLeft); err != ErrNotRegistered {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if len(tw.out.frames) != 0 {
		t.Fatalf("expected no frames")
	}
}

func TestUpdatePositionBroadcastsToOthers(t *testing.T) {
	tw := newTestWorld(t)
	tw.mustRegister(t, "c-1", "uid-a", "abc", "shark")
	tw.out.reset()

	_ = tw.UpdatePosition("c-1", Vec2{X: 5, Y: 6}, DirLeft)
	moved := tw.out.ofType(MsgPlayerMoved)
	if len(moved) != 1 {
		t.Fatalf("expected one playerMoved, got %d", len(moved))
	}
	if moved[0].reaches("c-1") {
		t.Errorf("mover should not receive its own playerMoved")
	}
	if moved[0].msg["direction"] != "left" {
		t.Errorf("unexpected payload: %v", moved[0].msg)
	}
}

func TestDisconnectKeepsRecordAndAnnounces(t *testing.T) {
	tw := newTestWorld(t)
	tw.mustRegister(t, "c-1", "uid-a", "abc", "shark")
	_ = tw.UpdatePosition("c-1", Vec2{X: 7, Y: 8}, DirLeft)
	tw.out.reset()

	tw.HandleDisconnect("c-1")

	left := tw.out.ofType(MsgPlayerLeft)
	if len(left) != 1 || left[0].msg["id"] != "uid-a" {
		t.Fatalf("expected playerLeft for uid-a, got %+v", left)
	}
	p, ok := tw.Player("uid-a")
	if !ok || p.Active() {
		t.Fatalf("expected stale record to remain, got %+v ok=%v", p, ok)
	}
	if p.Position != (Vec2{X: 7, Y: 8}) {
		t.Errorf("expected position retained, got %+v", p.Position)
	}
	if len(tw.ActivePlayers()) != 0 {
		t.Errorf("expected no active players")
	}

	reg := tw.mustRegister(t, "c-2", "uid-a", "abc", "shark")
	if reg.Position != (Vec2{X: 7, Y: 8}) {
		t.Errorf("expected stale->active reconnect to keep position, got %+v", reg.Position)
	}
}

func TestDisconnectOfReplacedConnectionIsSilent(t *testing.T) {
	tw := newTestWorld(t)
	tw.mustRegister(t, "c-old", "uid-a", "abc", "shark")
	tw.mustRegister(t, "c-new", "uid-a", "abc", "shark")
	tw.out.reset()

	tw.HandleDisconnect("c-old")
	if left := tw.out.ofType(MsgPlayerLeft); len(left) != 0 {
		t.Fatalf("expected no playerLeft for a replaced connection, got %d", len(left))
	}
	p, _ := tw.Player("uid-a")
	if p.Conn != "c-new" {
		t.Fatalf("expected c-new to stay active, got %q", p.Conn)
	}
}

func TestRegisterSequenceLeavesSingleActiveConnection(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tw := newTestWorld(rt)
		n := rapid.IntRange(1, 20).Draw(rt, "registrations")
		var prev ConnID
		for i := 0; i < n; i++ {
			conn := ConnID(fmt.Sprintf("c-%d", rapid.IntRange(0, 5).Draw(rt, "conn")))
			tw.mustRegister(rt, conn, "uid-a", "abc", "shark")
			if prev != "" && prev != conn {
				closed := tw.out.closedConns()
				if len(closed) == 0 || closed[len(closed)-1] != prev {
					rt.Fatalf("expected %s to be closed after %s took over, closed=%v", prev, conn, closed)
				}
			}
			prev = conn
		}

		active := 0
		for c, id := range tw.conns {
			if id == "uid-a" {
				active++
				if c != prev {
					rt.Fatalf("expected %s active, found %s", prev, c)
				}
			}
		}
		if active != 1 {
			rt.Fatalf("expected exactly one active connection, got %d", active)
		}
	})
}
