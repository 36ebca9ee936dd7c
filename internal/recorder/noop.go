package recorder

import "RafflePool/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordEntry(_ *model.EntryEvent) error             { return nil }
func (n *NoopRecorder) RecordDrawRequest(_ *model.DrawRequestEvent) error { return nil }
func (n *NoopRecorder) RecordSettlement(_ *model.SettlementEvent) error   { return nil }
func (n *NoopRecorder) Close() error                                      { return nil }
