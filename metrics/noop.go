package metrics

// Noop is a Collector that discards everything
type Noop struct{}

var _ Collector = Noop{}

func (Noop) QueueLength(int)         {}
func (Noop) QueueOutcome(string)     {}
func (Noop) ConnectionOpened()       {}
func (Noop) ConnectionClosed(string) {}
func (Noop) ConnectionRejected()     {}
func (Noop) SubscriptionUpdated()    {}
func (Noop) MessageSent(string, int) {}
func (Noop) DeliveryRetried()        {}
func (Noop) DeliveryFailed()         {}
func (Noop) EncodingFailed(string)   {}
func (Noop) Overloaded()             {}
func (Noop) ProtocolError()          {}
func (Noop) StreamsInFlight(int64)   {}
func (Noop) HandlerPanicked()        {}
