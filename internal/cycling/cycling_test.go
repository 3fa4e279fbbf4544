package cycling

import (
	"reflect"
	"testing"
)

func playlist(layerID string, mode CycleMode, assets ...string) Playlist {
	return Playlist{
		ID:        "pl_" + layerID,
		LayerID:   layerID,
		AssetIDs:  assets,
		CycleMode: mode,
	}
}

func TestSequentialWraps(t *testing.T) {
	e := NewEngine()
	if err := e.SetPlaylist(playlist("layer1", Sequential, "a", "b", "c")); err != nil {
		t.Fatalf("set playlist: %v", err)
	}

	want := []string{"b", "c", "a", "b"}
	for i, expect := range want {
		got, ok := e.Next("layer1", 0)
		if !ok || got != expect {
			t.Fatalf("trigger %d: got (%s,%v) want %s", i, got, ok, expect)
		}
	}
}

func TestRandomIsDeterministicPerSeed(t *testing.T) {
	run := func() []int {
		e := NewEngine()
		_ = e.SetPlaylist(playlist("layer1", Random, "a", "b", "c", "d", "e"))
		out := make([]int, 0, 20)
		for i := 0; i < 20; i++ {
			e.Next("layer1", 0)
			out = append(out, e.CurrentIndex("layer1"))
		}
		return out
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("random sequence not reproducible:\n%v\n%v", first, second)
	}
	for i, idx := range first {
		if idx < 0 || idx >= 5 {
			t.Fatalf("trigger %d: index %d out of range", i, idx)
		}
	}
}

func TestVelocityMapped(t *testing.T) {
	e := NewEngine()
	_ = e.SetPlaylist(playlist("layer1", VelocityMapped, "a", "b", "c", "d"))

	cases := map[float64]int{
		0:    0,
		64:   2,
		127:  3,
		200:  3, // clamped
		-5:   0, // clamped
		31.0: 0,
	}
	for velocity, want := range cases {
		e.Next("layer1", velocity)
		if got := e.CurrentIndex("layer1"); got != want {
			t.Fatalf("velocity %f: index %d want %d", velocity, got, want)
		}
	}
}

func TestHistoryCapped(t *testing.T) {
	e := NewEngine()
	_ = e.SetPlaylist(playlist("layer1", Sequential, "a", "b"))

	for i := 0; i < 25; i++ {
		e.Next("layer1", 0)
	}
	if got := len(e.History("layer1")); got != 10 {
		t.Fatalf("history length %d want 10", got)
	}
}

func TestRemoveAssetRemapsIndex(t *testing.T) {
	e := NewEngine()
	_ = e.SetPlaylist(playlist("layer1", Sequential, "a", "b", "c", "d"))
	// advance to index 2 ("c")
	e.Next("layer1", 0)
	e.Next("layer1", 0)

	// removing before the current index shifts it down
	if !e.RemoveAsset("layer1", "a") {
		t.Fatalf("remove a failed")
	}
	if got := e.CurrentIndex("layer1"); got != 1 {
		t.Fatalf("index after removing earlier asset: %d want 1", got)
	}
	if cur, _ := e.Current("layer1"); cur != "c" {
		t.Fatalf("current asset drifted: %s want c", cur)
	}

	// removing the current entry points at the successor
	if !e.RemoveAsset("layer1", "c") {
		t.Fatalf("remove c failed")
	}
	if cur, _ := e.Current("layer1"); cur != "d" {
		t.Fatalf("current after removing current: %s want d", cur)
	}

	// removal at the tail clamps
	if !e.RemoveAsset("layer1", "d") {
		t.Fatalf("remove d failed")
	}
	if got := e.CurrentIndex("layer1"); got != 0 {
		t.Fatalf("index not clamped: %d", got)
	}
}

func TestMoveAssetTracksLogicalEntry(t *testing.T) {
	e := NewEngine()
	_ = e.SetPlaylist(playlist("layer1", Sequential, "a", "b", "c", "d"))
	e.Next("layer1", 0) // index 1, "b"

	if !e.MoveAsset("layer1", 1, 3) {
		t.Fatalf("move failed")
	}
	if cur, _ := e.Current("layer1"); cur != "b" {
		t.Fatalf("current asset lost after move: %s want b", cur)
	}
	if got := e.CurrentIndex("layer1"); got != 3 {
		t.Fatalf("index after move: %d want 3", got)
	}

	if e.MoveAsset("layer1", 0, 9) {
		t.Fatalf("expected out-of-range move rejection")
	}
}

func TestAddAssetPreservesCurrent(t *testing.T) {
	e := NewEngine()
	_ = e.SetPlaylist(playlist("layer1", Sequential, "a", "b"))
	e.Next("layer1", 0) // index 1, "b"

	if !e.AddAsset("layer1", "x", 0) {
		t.Fatalf("add failed")
	}
	if cur, _ := e.Current("layer1"); cur != "b" {
		t.Fatalf("current asset drifted after insert: %s", cur)
	}

	p, _ := e.Playlist("layer1")
	want := []string{"x", "a", "b"}
	if !reflect.DeepEqual(p.AssetIDs, want) {
		t.Fatalf("playlist order: %v want %v", p.AssetIDs, want)
	}
}

func TestEmptyPlaylistSkipped(t *testing.T) {
	e := NewEngine()
	_ = e.SetPlaylist(playlist("layer1", Sequential))

	if _, ok := e.Next("layer1", 0); ok {
		t.Fatalf("empty playlist produced an asset")
	}
	if _, ok := e.Next("ghost", 0); ok {
		t.Fatalf("missing playlist produced an asset")
	}
}

func TestRemoveLayerDestroysState(t *testing.T) {
	e := NewEngine()
	_ = e.SetPlaylist(playlist("layer1", Sequential, "a"))
	e.Next("layer1", 0)
	e.RemoveLayer("layer1")

	if _, ok := e.Playlist("layer1"); ok {
		t.Fatalf("playlist survived layer removal")
	}
	if got := e.History("layer1"); got != nil {
		t.Fatalf("history survived layer removal: %v", got)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	e := NewEngine()
	_ = e.SetPlaylist(playlist("layer1", Random, "a", "b", "c"))
	for i := 0; i < 5; i++ {
		e.Next("layer1", 0)
	}
	idx, hist, seed := e.CurrentIndex("layer1"), e.History("layer1"), e.Seed("layer1")

	e2 := NewEngine()
	_ = e2.SetPlaylist(playlist("layer1", Random, "a", "b", "c"))
	if !e2.Restore("layer1", idx, hist, seed) {
		t.Fatalf("restore failed")
	}

	for i := 0; i < 10; i++ {
		a, _ := e.Next("layer1", 0)
		b, _ := e2.Next("layer1", 0)
		if a != b {
			t.Fatalf("restored engine diverged at trigger %d: %s vs %s", i, a, b)
		}
	}
}

func TestShuffleIsDeterministicAndKeepsCurrent(t *testing.T) {
	run := func() ([]string, string) {
		e := NewEngine()
		_ = e.SetPlaylist(playlist("layer1", Sequential, "a", "b", "c", "d", "e"))
		e.Next("layer1", 0) // current = b
		if !e.Shuffle("layer1") {
			t.Fatalf("shuffle failed")
		}
		p, _ := e.Playlist("layer1")
		cur, _ := e.Current("layer1")
		return p.AssetIDs, cur
	}

	order1, cur1 := run()
	order2, cur2 := run()
	if !reflect.DeepEqual(order1, order2) {
		t.Fatalf("shuffle not deterministic: %v vs %v", order1, order2)
	}
	if cur1 != "b" || cur2 != "b" {
		t.Fatalf("current asset lost across shuffle: %s / %s", cur1, cur2)
	}

	if e := NewEngine(); e.Shuffle("missing") {
		t.Fatalf("shuffle on missing layer should fail")
	}
}
