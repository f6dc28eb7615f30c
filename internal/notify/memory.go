package notify

import "sync"

// MemoryPublisher collects reports in memory. Used by tests and as a stand-in
// when no broker is configured.
type MemoryPublisher struct {
	mu      sync.Mutex
	reports []BuildReport
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(report BuildReport) error {
	p.mu.Lock()
	p.reports = append(p.reports, report)
	p.mu.Unlock()
	return nil
}

// Reports returns a snapshot of everything published so far.
func (p *MemoryPublisher) Reports() []BuildReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]BuildReport(nil), p.reports...)
}

func (p *MemoryPublisher) Close() error { return nil }
