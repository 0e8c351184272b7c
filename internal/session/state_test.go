package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportcenterhq/client-go/internal/models"
)

func TestStateSubscribeReceivesPublishes(t *testing.T) {
	state := NewState()
	ch, cancel := state.Subscribe()
	defer cancel()

	identity := &models.Identity{ID: 42, Username: "member42", Role: models.RoleMember}
	state.publish(Snapshot{User: identity, Role: identity.Role, LoggedIn: true})

	select {
	case snap := <-ch:
		assert.True(t, snap.LoggedIn)
		assert.Equal(t, models.RoleMember, snap.Role)
		assert.Equal(t, int64(42), snap.User.ID)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	current := state.Current()
	assert.True(t, current.LoggedIn)
	assert.Equal(t, identity, current.User)
}

func TestStateCancelClosesChannel(t *testing.T) {
	state := NewState()
	ch, cancel := state.Subscribe()

	cancel()
	_, open := <-ch
	assert.False(t, open)

	// Cancelling twice is harmless, and publishes keep working.
	cancel()
	state.publish(Snapshot{LoggedIn: true})
	assert.True(t, state.Current().LoggedIn)
}

func TestStatePublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	state := NewState()
	_, cancel := state.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			state.publish(Snapshot{Loading: i%2 == 0})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on an undrained subscriber")
	}
}

func TestStateMultipleSubscribers(t *testing.T) {
	state := NewState()
	first, cancelFirst := state.Subscribe()
	second, cancelSecond := state.Subscribe()
	defer cancelSecond()

	state.publish(Snapshot{LoggedIn: true})
	require.True(t, (<-first).LoggedIn)
	require.True(t, (<-second).LoggedIn)

	cancelFirst()
	state.publish(Snapshot{})
	snap := <-second
	assert.False(t, snap.LoggedIn)
}
