package pipeline

// State is a stage of one sitemap run.
type State string

const (
	StateIdle           State = "idle"
	StateWalking        State = "walking"
	StateEnrichingBatch State = "enriching_batch"
	StateFinalizing     State = "finalizing"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// IsTerminal returns true if no further transitions can happen.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// Progress is reported after each batch.
type Progress struct {
	Batch     int `json:"batch"` // 1-based
	Batches   int `json:"batches"`
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// Observer receives run events. Calls are made from the orchestrator's own
// goroutine, in order.
type Observer interface {
	StateChanged(from, to State)
	BatchDone(p Progress)
}

// ObserverFuncs adapts optional callbacks to Observer.
type ObserverFuncs struct {
	OnState func(from, to State)
	OnBatch func(p Progress)
}

// StateChanged implements Observer.
func (o ObserverFuncs) StateChanged(from, to State) {
	if o.OnState != nil {
		o.OnState(from, to)
	}
}

// BatchDone implements Observer.
func (o ObserverFuncs) BatchDone(p Progress) {
	if o.OnBatch != nil {
		o.OnBatch(p)
	}
}
