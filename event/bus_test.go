// file: event/bus_test.go

package event

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"staff-identity-api/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type recordingSubscriber struct {
	seen []Event
	err  error
}

func (r *recordingSubscriber) Handle(_ context.Context, ev Event) error {
	r.seen = append(r.seen, ev)
	return r.err
}

func TestBus_PublishAllDeliversInOrder(t *testing.T) {
	bus := NewBus()
	sub := &recordingSubscriber{}
	bus.Subscribe(sub)

	staffID := uuid.New()
	events := []Event{
		NewStaffAccountLocked(staffID, time.Now().Add(15*time.Minute)),
		NewStaffAccountDisabled(staffID),
		NewStaffPasswordReset(staffID),
		NewRefreshTokenTheftDetected(staffID, uuid.New(), "1.2.3.4"),
	}
	bus.PublishAll(context.Background(), events)

	assert.Len(t, sub.seen, 4)
	assert.IsType(t, StaffAccountLocked{}, sub.seen[0])
	assert.IsType(t, StaffAccountDisabled{}, sub.seen[1])
	assert.IsType(t, StaffPasswordReset{}, sub.seen[2])
	assert.IsType(t, RefreshTokenTheftDetected{}, sub.seen[3])
	for _, ev := range sub.seen {
		assert.Equal(t, staffID, ev.StaffID())
	}
}

func TestBus_SubscriberFailureDoesNotStopDelivery(t *testing.T) {
	bus := NewBus()
	failing := &recordingSubscriber{err: errors.New("handler down")}
	healthy := &recordingSubscriber{}
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	bus.Publish(context.Background(), NewStaffAccountDisabled(uuid.New()))

	assert.Len(t, failing.seen, 1)
	assert.Len(t, healthy.seen, 1)
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	// Must not panic.
	bus.Publish(context.Background(), NewStaffPasswordReset(uuid.New()))
}
