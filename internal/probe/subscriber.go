package probe

import (
	"NetProfiler/internal/config"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// FlowHandler processes a received flow.
type FlowHandler func(msg FlowMessage)

// Subscriber subscribes to a NATS subject and decodes published flows.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.NATSConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.URL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes to the subject and hands every decoded flow to handler.
func (s *Subscriber) Start(handler FlowHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(m *nats.Msg) {
		msg, err := DecodeFlow(m.Data)
		if err != nil {
			log.Printf("Error decoding flow message: %v", err)
			return
		}
		handler(msg)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for messages...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
