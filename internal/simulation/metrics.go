package simulation

// Metrics tracks run-wide task outcomes.
// Rejected tasks count as sent and failed.
type Metrics struct {
	registry  *Registry
	sent      int
	failed    int
	completed int
	rejected  int
}

// NewMetrics creates a tracker reading CPU utilization from the registry
func NewMetrics(registry *Registry) *Metrics {
	return &Metrics{registry: registry}
}

// TaskSent counts a task handed to the orchestrator
func (m *Metrics) TaskSent() {
	m.sent++
}

// TaskRejected counts a task no node accepted
func (m *Metrics) TaskRejected() {
	m.rejected++
	m.failed++
}

// TaskFailed counts a task that missed its deadline
func (m *Metrics) TaskFailed() {
	m.failed++
}

// TaskCompleted counts a task finished in time
func (m *Metrics) TaskCompleted() {
	m.completed++
}

// FailureRate returns failed / sent, or 0 before any task was sent
func (m *Metrics) FailureRate() float64 {
	if m.sent == 0 {
		return 0
	}
	return float64(m.failed) / float64(m.sent)
}

func (m *Metrics) TasksSent() int { return m.sent }
func (m *Metrics) TasksFailed() int { return m.failed }
func (m *Metrics) TasksCompleted() int { return m.completed }
func (m *Metrics) TasksRejected() int { return m.rejected }

// CPUUtilization returns the average node utilization in percent
func (m *Metrics) CPUUtilization() float64 {
	return m.registry.CPUUtilization()
}
