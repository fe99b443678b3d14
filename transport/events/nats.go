// Package events publishes game events to NATS.
//
// Each event is JSON encoded and sent on the subject
// chopsticks.games.<session id>.<event type>, so subscribers can follow one
// game with chopsticks.games.<id>.> or everything with chopsticks.games.>.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/wricardo/chopsticks/game/service"
)

// DefaultSubjectPrefix is the root of every published subject
const DefaultSubjectPrefix = "chopsticks.games"

// Conn is the part of *nats.Conn the publisher needs
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher implements service.EventPublisher
type NATSPublisher struct {
	conn   Conn
	prefix string
	logger zerolog.Logger
}

// NewNATSPublisher publishes through an existing connection
func NewNATSPublisher(conn Conn, logger zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{
		conn:   conn,
		prefix: DefaultSubjectPrefix,
		logger: logger,
	}
}

// Connect dials the NATS server at url with reconnects enabled
func Connect(url string, logger zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("chopsticks"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return nc, nil
}

// Subject returns the subject an event is published on
func (p *NATSPublisher) Subject(ev service.GameEvent) string {
	return strings.Join([]string{p.prefix, subjectToken(ev.SessionID), subjectToken(ev.Type)}, ".")
}

// Publish sends one event
func (p *NATSPublisher) Publish(ctx context.Context, ev service.GameEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.Subject(ev)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	p.logger.Debug().Str("subject", subject).Msg("published game event")
	return nil
}

// subjectToken replaces characters NATS treats as separators or wildcards
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
