package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRoom(t *testing.T) {
	data := []byte(`{
		"status": "WAITING",
		"gameType": "COLOR_MATCH",
		"players": {
			"host": {"name": "たろう", "alive": true, "selectedShopId": "J001"},
			"guest": {"name": "はなこ", "score": 120, "combo": 2, "alive": true}
		},
		"shopCandidates": [{"id": "J001", "name": "焼肉ホルモン青山"}]
	}`)

	room, err := DecodeRoom(data)
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, room.Status)
	assert.Equal(t, GameColorMatch, room.GameType)
	assert.Equal(t, "J001", room.Players[RoleHost].SelectedShopID)
	assert.Equal(t, 120, room.Players[RoleGuest].Score)
	require.Len(t, room.ShopCandidates, 1)
}

func TestDecodeRoomRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"unknown status", `{"status":"EXPLODED","gameType":"COLOR_MATCH","players":{"host":{"name":"a"}}}`},
		{"unknown game type", `{"status":"WAITING","gameType":"CHESS","players":{"host":{"name":"a"}}}`},
		{"no players", `{"status":"WAITING","gameType":"COLOR_MATCH","players":{}}`},
		{"unknown role", `{"status":"WAITING","gameType":"COLOR_MATCH","players":{"referee":{"name":"a"}}}`},
		{"nameless seat", `{"status":"WAITING","gameType":"COLOR_MATCH","players":{"host":{"name":""}}}`},
		{"no host seat", `{"status":"WAITING","gameType":"COLOR_MATCH","players":{"guest":{"name":"b"}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeRoom([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestRoomCloneIsDeep(t *testing.T) {
	room := NewRoom(GameColorMatch, &Player{Name: "たろう", Alive: true}, []Shop{{ID: "J001", Name: "A"}})

	cp := room.Clone()
	cp.Players[RoleHost].Score = 500
	cp.ShopCandidates[0].Name = "changed"
	cp.Players[RoleGuest] = &Player{Name: "intruder"}

	assert.Equal(t, 0, room.Players[RoleHost].Score)
	assert.Equal(t, "A", room.ShopCandidates[0].Name)
	assert.NotContains(t, room.Players, RoleGuest)
}

func TestRoleOpponent(t *testing.T) {
	assert.Equal(t, RoleGuest, RoleHost.Opponent())
	assert.Equal(t, RoleHost, RoleGuest.Opponent())
	assert.True(t, RoleHost.Valid())
	assert.False(t, Role("referee").Valid())
}

func TestPlayerApplyKeepsIdentity(t *testing.T) {
	p := Player{Name: "たろう", SelectedShopID: "J001", Alive: true}
	p.Apply(ScoreUpdate{Score: 350, Combo: 4, Clicks: 0, Alive: false})

	assert.Equal(t, "たろう", p.Name)
	assert.Equal(t, "J001", p.SelectedShopID)
	assert.Equal(t, 350, p.Score)
	assert.Equal(t, 4, p.Combo)
	assert.False(t, p.Alive)
}

func TestAppendShopCandidate(t *testing.T) {
	a := Shop{ID: "J001", Name: "A"}
	b := Shop{ID: "J002", Name: "B"}

	pool := AppendShopCandidate(nil, a)
	pool = AppendShopCandidate(pool, b)
	require.Len(t, pool, 2)

	pool = AppendShopCandidate(pool, a)
	assert.Len(t, pool, 2, "same shop id must not duplicate")
}
