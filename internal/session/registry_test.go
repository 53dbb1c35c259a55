package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_LockReturnsSameSession(t *testing.T) {
	r := NewRegistry(time.Hour)

	a, release := r.Lock("a")
	a.State.RunID = "run-1"
	a.Flash = []Notice{{Level: LevelSuccess, Text: "Knowledge base cleared"}}
	release()

	again, release := r.Lock("a")
	assert.Same(t, a, again)
	assert.Equal(t, []Notice{{Level: LevelSuccess, Text: "Knowledge base cleared"}}, again.TakeFlash())
	assert.Empty(t, again.TakeFlash())
	release()

	b, release := r.Lock("b")
	assert.NotSame(t, a, b)
	assert.Equal(t, 1000, b.State.FileUploaderKey)
	release()

	assert.Equal(t, 2, r.Len())
	r.Delete("a")
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_SerializesEventsPerSession(t *testing.T) {
	r := NewRegistry(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, release := r.Lock("shared")
			defer release()
			// unsynchronised read-modify-write, safe only under the session lock
			n := sess.State.URLScrapeKey
			time.Sleep(time.Microsecond)
			sess.State.URLScrapeKey = n + 1
		}()
	}
	wg.Wait()

	sess, release := r.Lock("shared")
	defer release()
	assert.Equal(t, 50, sess.State.URLScrapeKey)
}

func TestRegistry_ExpiresIdleSessions(t *testing.T) {
	r := NewRegistry(20 * time.Millisecond)
	_, release := r.Lock("idle")
	release()

	time.Sleep(40 * time.Millisecond)
	sess, release := r.Lock("idle")
	defer release()
	assert.Equal(t, 0, sess.State.URLScrapeKey)
	assert.Nil(t, sess.State.Assistant)
}
