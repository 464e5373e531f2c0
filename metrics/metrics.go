// Package metrics provides instrumentation for the validation core, with
// a Prometheus implementation and a no-op for tests and disabled nodes.
package metrics

import (
	"time"
)

// Metrics defines the interface for collecting validation metrics.
// All methods are designed to be thread-safe and non-blocking.
type Metrics interface {
	// Block metrics
	SetBlockHeight(height int64)
	IncBlocksVerified()
	IncBlocksValidated()
	IncBlocksRejected(reason string)
	ObserveBlockApplyLatency(latency time.Duration)
	SetBlockSize(size int)

	// Transaction metrics
	IncTxsApplied(kind string)
	IncTxsRejected(kind, cause string)

	// Evaluation metrics
	IncMethodsEvaluated()
	IncEvalFailures(kind string)
	IncDeltasEmitted(count int)
	ObserveEvalLatency(latency time.Duration)

	// World metrics
	SetWorldAccounts(count int)
	SetWorldAssets(count int)
	SetWorldContracts(count int)

	// State store metrics
	SetStateStoreVersion(version int64)
	IncStateStoreCommits()
	ObserveStateStoreLatency(op string, latency time.Duration)

	// HTTP handler (for serving metrics)
	Handler() any
}

// Block rejection reason labels.
const (
	ReasonBadOrigin    = "bad_origin"
	ReasonBadSigner    = "bad_signer"
	ReasonBadSignature = "bad_signature"
	ReasonInvalidTx    = "invalid_tx"
)

// State store operation labels.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpCommit = "commit"
)
