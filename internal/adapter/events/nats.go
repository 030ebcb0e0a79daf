// internal/adapter/events/nats.go

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"geotrend/internal/domain/geo"
	"geotrend/internal/domain/trend"
	"geotrend/internal/logging"
	"geotrend/internal/metrics"
)

// Ingestor is the ingestion contract bus events are fed into
type Ingestor interface {
	Ingest(ctx context.Context, itemID string, kind trend.EventKind, location geo.Location) error
}

// InteractionMessage is the wire format of an interaction on the bus
type InteractionMessage struct {
	ItemID string  `json:"item_id"`
	Kind   string  `json:"kind"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// Connect opens a NATS connection with reconnect logging
func Connect(url string, maxReconnects int, reconnectWait, timeout time.Duration) (*nats.Conn, error) {
	log := logging.Component("nats")

	options := []nats.Option{
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.Timeout(timeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSEventSource feeds interactions published on the bus into ingestion
type NATSEventSource struct {
	conn     *nats.Conn
	ingestor Ingestor
	subject  string
	timeout  time.Duration
	sub      *nats.Subscription
	log      zerolog.Logger
}

// NewNATSEventSource creates an event source listening on "<topic>.events"
func NewNATSEventSource(conn *nats.Conn, ingestor Ingestor, topic string, timeout time.Duration) *NATSEventSource {
	return &NATSEventSource{
		conn:     conn,
		ingestor: ingestor,
		subject:  fmt.Sprintf("%s.events", topic),
		timeout:  timeout,
		log:      logging.Component("event-source"),
	}
}

// Start subscribes to the interaction subject
func (s *NATSEventSource) Start() error {
	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		s.HandleMessage(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	s.sub = sub

	s.log.Info().Str("subject", s.subject).Msg("Listening for interaction events")
	return nil
}

// HandleMessage decodes one bus payload and ingests it.
// Undecodable payloads and out of range locations are dropped; ingestion errors are logged.
func (s *NATSEventSource) HandleMessage(data []byte) {
	var msg InteractionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		metrics.RecordMalformed("bus")
		s.log.Warn().Err(err).Msg("Dropping malformed interaction message")
		return
	}

	kind, err := trend.ParseEventKind(msg.Kind)
	if err != nil {
		s.log.Warn().Err(err).Str("item", msg.ItemID).Msg("Dropping interaction with unknown kind")
		return
	}

	location := geo.Location{Latitude: msg.Lat, Longitude: msg.Lon}
	if !location.Valid() {
		metrics.RecordMalformed("bus")
		s.log.Warn().Str("item", msg.ItemID).Str("location", location.String()).Msg("Dropping interaction with out of range location")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err = s.ingestor.Ingest(ctx, msg.ItemID, kind, location)
	if err != nil {
		s.log.Error().Err(err).Str("item", msg.ItemID).Msg("Error ingesting interaction")
	}
}

// Stop drains the subscription
func (s *NATSEventSource) Stop() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Drain()
}
