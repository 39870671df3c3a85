package sim

import "time"

// Recorder receives per-tick measurements from the controller.
// *observability.Collector satisfies it.
type Recorder interface {
	ObserveTick(links, failed int)
	RouterFailed(id int)
	RouterRecovered(id int)
	ObservePath(hops int, changed bool)
	ObserveNoPath()
	ObservePathComputation(d time.Duration)

	TransferStarted()
	TransferCompleted()
	TransferDiscarded(reason string)
	ObserveTransferStep(retransmissions, duplicates int)
	SetProgress(p float64)
}

type noopRecorder struct{}

func (noopRecorder) ObserveTick(int, int)                 {}
func (noopRecorder) RouterFailed(int)                     {}
func (noopRecorder) RouterRecovered(int)                  {}
func (noopRecorder) ObservePath(int, bool)                {}
func (noopRecorder) ObserveNoPath()                       {}
func (noopRecorder) ObservePathComputation(time.Duration) {}
func (noopRecorder) TransferStarted()                     {}
func (noopRecorder) TransferCompleted()                   {}
func (noopRecorder) TransferDiscarded(string)             {}
func (noopRecorder) ObserveTransferStep(int, int)         {}
func (noopRecorder) SetProgress(float64)                  {}
