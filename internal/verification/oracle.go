// Package verification talks to the external document verification
// oracle. The oracle inspects an uploaded document and returns a
// verdict; it is the one genuinely slow dependency in the system, so
// callers run it out-of-line and never under a dealroom lock.
package verification

import (
	"context"
	"math/rand"
	"time"
)

// Verdict is the oracle's judgment of one document.
type Verdict struct {
	Status string                 `json:"status"` // verified or flagged
	Reason string                 `json:"reason,omitempty"`
	Extra  map[string]interface{} `json:"extra,omitempty"`
}

const (
	VerdictVerified = "verified"
	VerdictFlagged  = "flagged"
)

// Oracle resolves a document's verification status. Implementations
// must honor ctx cancellation; a caller treats timeout or error as a
// flagged result rather than leaving the document pending forever.
type Oracle interface {
	Verify(ctx context.Context, documentID, fileName string, sizeBytes int64) (*Verdict, error)
}

// SimulatedOracle stands in for the real verification provider. It
// sleeps for a bounded random latency and verifies most documents.
type SimulatedOracle struct {
	MinLatency time.Duration
	MaxLatency time.Duration
	// FlagRate is the fraction of documents flagged, in [0,1).
	FlagRate float64
}

func NewSimulatedOracle() *SimulatedOracle {
	return &SimulatedOracle{
		MinLatency: 200 * time.Millisecond,
		MaxLatency: 1500 * time.Millisecond,
		FlagRate:   0.1,
	}
}

func (o *SimulatedOracle) Verify(ctx context.Context, documentID, fileName string, sizeBytes int64) (*Verdict, error) {
	latency := o.MinLatency
	if o.MaxLatency > o.MinLatency {
		latency += time.Duration(rand.Int63n(int64(o.MaxLatency - o.MinLatency)))
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(latency):
	}

	if rand.Float64() < o.FlagRate {
		return &Verdict{
			Status: VerdictFlagged,
			Reason: "document failed automated checks",
		}, nil
	}

	return &Verdict{
		Status: VerdictVerified,
		Extra: map[string]interface{}{
			"document_id":  documentID,
			"file_name":    fileName,
			"size_bytes":   sizeBytes,
			"processed_at": time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}
