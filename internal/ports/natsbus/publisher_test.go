package natsbus

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	natsgo "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishEnvelope(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	server := natsserver.RunServer(&opts)
	defer server.Shutdown()

	pub, err := Connect(server.ClientURL(), "poker.game")
	require.NoError(t, err)
	defer pub.Close()

	sub, err := natsgo.Connect(server.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *natsgo.Msg, 1)
	_, err = sub.ChanSubscribe("poker.game.table-1.*", msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	payload := map[string]interface{}{"seat": 1, "amount": 40}
	require.NoError(t, pub.Publish(context.Background(), "table-1", "bet_placed", payload))

	select {
	case msg := <-msgs:
		assert.Equal(t, "poker.game.table-1.bet_placed", msg.Subject)
		var env struct {
			GameID  string         `json:"gameId"`
			Kind    string         `json:"kind"`
			Payload map[string]int `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(msg.Data, &env))
		assert.Equal(t, "table-1", env.GameID)
		assert.Equal(t, "bet_placed", env.Kind)
		assert.Equal(t, 40, env.Payload["amount"])
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}
