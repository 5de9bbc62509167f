package browser

import (
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRegistry_AddAndGet(t *testing.T) {
	r := NewRegistry()
	page := &fakePage{url: "http://example.test/"}

	id, err := r.Add(page)
	require.NoError(t, err)

	got, err := r.Get(id)
	require.NoError(t, err)
	assert.Same(t, page, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestRegistry_EmptyHasNoCurrent(t *testing.T) {
	r := NewRegistry()

	_, err := r.Current()
	assert.ErrorIs(t, err, ErrNoActivePage)

	_, err = r.Remove("")
	assert.ErrorIs(t, err, ErrNoActivePage)

	_, err = r.Lookup("")
	assert.ErrorIs(t, err, ErrNoActivePage)
}

func TestRegistry_IdentifiersAreUnique(t *testing.T) {
	r := NewRegistry()
	ids := []PageID{"a", "a", "b"}
	r.newID = func() PageID {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first, err := r.Add(nil)
	require.NoError(t, err)
	second, err := r.Add(nil)
	require.NoError(t, err)

	assert.Equal(t, PageID("a"), first)
	assert.Equal(t, PageID("b"), second)
}

func TestRegistry_Limit(t *testing.T) {
	r := NewRegistry()
	r.SetLimit(1)

	_, err := r.Add(nil)
	require.NoError(t, err)
	assert.True(t, r.Full())

	_, err = r.Add(nil)
	assert.ErrorIs(t, err, ErrPageLimit)
	assert.Equal(t, 1, r.Len())

	r.SetLimit(0)
	assert.False(t, r.Full())
}

func TestRegistry_InfoOrder(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Add(&fakePage{url: "http://a.test/"})
	b, _ := r.Add(&fakePage{url: "http://b.test/"})
	require.NoError(t, r.SwitchTo(a))

	infos := r.Info()
	require.Len(t, infos, 2)
	assert.Equal(t, a, infos[0].ID)
	assert.True(t, infos[0].Current)
	assert.Equal(t, "http://a.test/", infos[0].URL)
	assert.Equal(t, b, infos[1].ID)
	assert.False(t, infos[1].Current)
	assert.Equal(t, []PageID{a, b}, r.IDs())
}

func TestRegistry_Drain(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Add(nil)
	_, _ = r.Add(nil)

	slots := r.drain()
	assert.Len(t, slots, 2)
	assert.Equal(t, 0, r.Len())

	_, err := r.Current()
	assert.ErrorIs(t, err, ErrNoActivePage)
}

func TestRegistry_LookupRacingRemove(t *testing.T) {
	for i := 0; i < 200; i++ {
		r := NewRegistry()
		id, err := r.Add(&fakePage{url: "http://example.test/"})
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Remove(id)
		}()

		info, err := r.Lookup(id)
		wg.Wait()

		// Either the page was still registered, and therefore current, or it is gone
		if err != nil {
			require.ErrorIs(t, err, ErrPageNotFound)
			continue
		}
		if !info.Current {
			t.Fatalf("Lookup(%s) reported a registered page as not current", id)
		}
	}
}

// TestRegistry_CurrentPointerProperty drives random add/switch/remove
// sequences against a simple model and checks that the current pointer
// always names a registered page (or is unset exactly when empty).
func TestRegistry_CurrentPointerProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := NewRegistry()
		var order []PageID
		var current PageID

		steps := rapid.IntRange(1, 60).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(rt, "action") {
			case 0:
				id, err := r.Add(nil)
				if err != nil {
					rt.Fatalf("add: %v", err)
				}
				order = append(order, id)
				current = id

			case 1:
				if len(order) == 0 {
					if err := r.SwitchTo("missing"); err == nil {
						rt.Fatalf("switch to unknown page succeeded")
					}
					continue
				}
				id := rapid.SampledFrom(order).Draw(rt, "switch")
				if err := r.SwitchTo(id); err != nil {
					rt.Fatalf("switch: %v", err)
				}
				current = id

			case 2:
				if len(order) == 0 {
					continue
				}
				id := rapid.SampledFrom(order).Draw(rt, "remove")
				if _, err := r.Remove(id); err != nil {
					rt.Fatalf("remove: %v", err)
				}
				order = slices.DeleteFunc(order, func(k PageID) bool { return k == id })
				if current == id {
					current = ""
					if len(order) > 0 {
						current = order[0]
					}
				}

			case 3:
				if _, err := r.Remove(""); err != nil {
					if len(order) != 0 {
						rt.Fatalf("remove current: %v", err)
					}
					continue
				}
				order = slices.DeleteFunc(order, func(k PageID) bool { return k == current })
				current = ""
				if len(order) > 0 {
					current = order[0]
				}
			}

			got, err := r.Current()
			if current == "" {
				if err == nil {
					rt.Fatalf("current = %s, want none", got)
				}
			} else if err != nil || got != current {
				rt.Fatalf("current = %q (%v), want %q", got, err, current)
			}
			if !slices.Equal(r.IDs(), order) {
				rt.Fatalf("ids = %v, want %v", r.IDs(), order)
			}
		}
	})
}
