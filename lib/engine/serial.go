package engine

// runSerial executes every transaction to completion on the scheduler
// goroutine before touching the next. The correctness baseline: any
// result the other schedulers produce must be explainable by some
// serial order, and this scheduler produces exactly the admission
// order.
func (p *TxnProcessor) runSerial() {
	for t := range p.requests.Recv() {
		p.execute(t)
		p.finalize(t)
		p.publish(t)
	}
}
