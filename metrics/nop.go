package metrics

import (
	"time"
)

// NopMetrics is a no-op implementation of the Metrics interface.
// Use this when metrics collection is disabled.
type NopMetrics struct{}

// NewNopMetrics creates a new NopMetrics instance.
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// Block metrics (no-op)

func (m *NopMetrics) SetBlockHeight(height int64)                    {}
func (m *NopMetrics) IncBlocksVerified()                             {}
func (m *NopMetrics) IncBlocksValidated()                            {}
func (m *NopMetrics) IncBlocksRejected(reason string)                {}
func (m *NopMetrics) ObserveBlockApplyLatency(latency time.Duration) {}
func (m *NopMetrics) SetBlockSize(size int)                          {}

// Transaction metrics (no-op)

func (m *NopMetrics) IncTxsApplied(kind string)         {}
func (m *NopMetrics) IncTxsRejected(kind, cause string) {}

// Evaluation metrics (no-op)

func (m *NopMetrics) IncMethodsEvaluated()                     {}
func (m *NopMetrics) IncEvalFailures(kind string)              {}
func (m *NopMetrics) IncDeltasEmitted(count int)               {}
func (m *NopMetrics) ObserveEvalLatency(latency time.Duration) {}

// World metrics (no-op)

func (m *NopMetrics) SetWorldAccounts(count int)  {}
func (m *NopMetrics) SetWorldAssets(count int)    {}
func (m *NopMetrics) SetWorldContracts(count int) {}

// State store metrics (no-op)

func (m *NopMetrics) SetStateStoreVersion(version int64)                        {}
func (m *NopMetrics) IncStateStoreCommits()                                     {}
func (m *NopMetrics) ObserveStateStoreLatency(op string, latency time.Duration) {}

// Handler returns nil since there's nothing to serve.
func (m *NopMetrics) Handler() any {
	return nil
}
