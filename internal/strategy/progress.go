package strategy

import "GEMSentinel/internal/model"

// Progress receives observational updates while an evaluation runs.
// Calls are serialised by the engine, implementations need no locking of their own.
type Progress interface {
	Status(inst model.Instrument, text string)
	Advance(completed, total int)
}

// NopProgress discards all updates.
type NopProgress struct{}

func (NopProgress) Status(model.Instrument, string) {}
func (NopProgress) Advance(int, int)                {}
