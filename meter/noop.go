package meter

import "github.com/ineyio/aiguard"

// NoopMeter is a meter that does nothing.
type NoopMeter struct{}

var _ aiguard.Meter = (*NoopMeter)(nil)

func (m *NoopMeter) OnAdmit(aiguard.AdmitEvent) {}
func (m *NoopMeter) OnSpend(aiguard.SpendEvent) {}
