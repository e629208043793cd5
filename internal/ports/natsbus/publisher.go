package natsbus

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	natsgo "github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"pokergame/internal/ports"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is the message body published for every game event.
type Envelope struct {
	GameID  string      `json:"gameId"`
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

// Publisher sends game events to "<prefix>.<gameID>.<kind>" subjects.
type Publisher struct {
	nc     *natsgo.Conn
	prefix string
}

// Connect dials the NATS server at url.
func Connect(url string, prefix string) (*Publisher, error) {
	nc, err := natsgo.Connect(url, natsgo.Name("pokergame"))
	if err != nil {
		return nil, errors.Wrapf(err, "connect to nats at %s", url)
	}
	return NewPublisher(nc, prefix), nil
}

func NewPublisher(nc *natsgo.Conn, prefix string) *Publisher {
	return &Publisher{nc: nc, prefix: prefix}
}

// Subject returns the subject used for an event.
func (p *Publisher) Subject(gameID string, kind string) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, gameID, kind)
}

func (p *Publisher) Publish(ctx context.Context, gameID string, kind string, payload interface{}) error {
	data, err := json.Marshal(Envelope{GameID: gameID, Kind: kind, Payload: payload})
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	if err := p.nc.Publish(p.Subject(gameID, kind), data); err != nil {
		return errors.Wrapf(err, "publish %s for game %s", kind, gameID)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}

var _ ports.EventPublisher = (*Publisher)(nil)
