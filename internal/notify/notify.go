// Package notify publishes completed-build reports to NATS so downstream
// consumers (deploy triggers, dashboards) can react without polling.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// BuildReport is the published message body.
type BuildReport struct {
	Compiler   string            `json:"compiler"`
	BuildID    string            `json:"build_id"`
	Hash       string            `json:"hash"`
	Errors     []string          `json:"errors,omitempty"`
	DurationMS int64             `json:"duration_ms"`
	Assets     int               `json:"assets"`
	Meta       map[string]string `json:"meta,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Publisher delivers build reports.
type Publisher interface {
	Publish(report BuildReport) error
	Close() error
}

// NATSPublisher publishes reports on a fixed subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	log     *slog.Logger
}

// NewNATSPublisher connects to the given NATS URL.
func NewNATSPublisher(url, subject string, log *slog.Logger) (*NATSPublisher, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("build notifier connected", slog.String("url", url), slog.String("subject", subject))
	return &NATSPublisher{conn: conn, subject: subject, log: log}, nil
}

func (p *NATSPublisher) Publish(report BuildReport) error {
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal build report: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish build report: %w", err)
	}
	p.log.Debug("build report published",
		slog.String("build_id", report.BuildID),
		slog.String("hash", report.Hash))
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
