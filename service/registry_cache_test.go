package service

import (
	"fmt"
	"sync"
	"testing"

	"myregistry/domain"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func app(name, host string, port int) domain.Application {
	return domain.Application{Name: name, Host: host, Port: port, State: domain.StateUp}
}

func TestRegistryCache_Empty(t *testing.T) {
	c := NewRegistryCache(log.NewNopLogger())

	assert.Empty(t, c.GetAll())
	assert.Empty(t, c.GetAllNames())
	assert.Empty(t, c.SummaryCounts())

	got := c.GetByName("unknown")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRegistryCache_UpsertRemove(t *testing.T) {
	c := NewRegistryCache(log.NewNopLogger())

	c.Upsert(app("svc-a", "10.0.0.1", 8081))
	c.Upsert(app("svc-a", "10.0.0.1", 8080))
	c.Upsert(app("svc-b", "10.0.0.2", 9000))

	assert.Equal(t, []string{"svc-a", "svc-b"}, c.GetAllNames())
	assert.Equal(t, map[string]int{"svc-a": 2, "svc-b": 1}, c.SummaryCounts())

	all := c.GetAll()
	assert.Len(t, all, 3)
	assert.Equal(t, len(all), cap(all), "sized by instances, not names")
	assert.Equal(t, []domain.Application{
		app("svc-a", "10.0.0.1", 8080),
		app("svc-a", "10.0.0.1", 8081),
	}, c.GetByName("svc-a"))

	t.Run("upsert replaces equal instance", func(t *testing.T) {
		updated := app("svc-a", "10.0.0.1", 8080)
		updated.State = domain.StateDown
		c.Upsert(updated)

		got := c.GetByName("svc-a")
		require.Len(t, got, 2)
		assert.Equal(t, domain.StateDown, got[0].State)
	})

	t.Run("remove last instance drops the name", func(t *testing.T) {
		c.Remove(app("svc-b", "10.0.0.2", 9000))
		assert.Equal(t, []string{"svc-a"}, c.GetAllNames())
		_, ok := c.SummaryCounts()["svc-b"]
		assert.False(t, ok)
	})

	t.Run("remove unknown is a no-op", func(t *testing.T) {
		c.Remove(app("svc-x", "h", 1))
		assert.Len(t, c.GetAll(), 2)
	})
}

func TestRegistryCache_Replace(t *testing.T) {
	c := NewRegistryCache(log.NewNopLogger())
	c.Upsert(app("old", "h", 1))

	dup := app("svc-a", "h1", 1)
	dup.State = domain.StateDown
	c.Replace([]domain.Application{
		app("svc-b", "h1", 1),
		app("svc-a", "h1", 1),
		dup,
		app("svc-a", "h0", 1),
	})

	assert.Equal(t, []domain.Application{
		app("svc-a", "h0", 1),
		dup,
		app("svc-b", "h1", 1),
	}, c.GetAll())
}

func TestRegistryCache_ReturnedSlicesAreCopies(t *testing.T) {
	c := NewRegistryCache(log.NewNopLogger())
	c.Upsert(app("svc-a", "h", 1))

	got := c.GetByName("svc-a")
	got[0].Host = "mutated"

	assert.Equal(t, "h", c.GetByName("svc-a")[0].Host)
}

func TestRegistryCache_OnChange(t *testing.T) {
	c := NewRegistryCache(log.NewNopLogger())

	var seen []map[string]int
	c.OnChange(func(counts map[string]int) { seen = append(seen, counts) })
	c.OnChange(func(map[string]int) { panic("observer failure") })

	c.Upsert(app("svc-a", "h", 1))
	c.Upsert(app("svc-a", "h", 2))
	c.Remove(app("svc-a", "h", 1))
	c.Remove(app("svc-a", "h", 2))

	assert.Equal(t, []map[string]int{
		{"svc-a": 1},
		{"svc-a": 2},
		{"svc-a": 1},
		{},
	}, seen)
}

func TestRegistryCache_ConcurrentReadWrite(t *testing.T) {
	c := NewRegistryCache(log.NewNopLogger())

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Upsert(app(fmt.Sprintf("svc-%d", w), "h", i+1))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				for name, n := range c.SummaryCounts() {
					assert.NotZero(t, n, name)
				}
				_ = c.GetAll()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, c.GetAll(), 400)
}
