//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matricula/internal/audit"
	"matricula/pkg/domain"
	"matricula/pkg/testutil/containers"
)

func TestRedisBroadcast(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	sub := rc.Client.Subscribe(ctx, audit.Channel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err, "subscription handshake")

	broadcaster := audit.NewRedisBroadcaster(rc.Client)
	event := audit.NewEvent(audit.TypeUpload, domain.ApplicantNumber("2025100007"),
		domain.Actor{Name: "registrar@school.edu"}, "uploaded Form 138")
	event.At = time.Now().UTC()
	require.NoError(t, broadcaster.Broadcast(ctx, event))

	select {
	case msg := <-sub.Channel():
		var got audit.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		require.Equal(t, event.ID, got.ID)
		require.Equal(t, audit.TypeUpload, got.Type)
		require.Equal(t, "2025100007", got.ApplicantNumber)
	case <-time.After(5 * time.Second):
		t.Fatal("no message received on the audit channel")
	}
}
