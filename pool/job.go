package pool

// Job is a unit of work run exactly once on one of the pool's workers.
type Job func()

type messageKind uint8

const (
	workMessage messageKind = iota
	shutdownMessage
)

// message is what a worker claims from the shared queue: either a job to
// run or the signal to stop.
type message struct {
	kind messageKind
	job  Job
}

func work(j Job) message { return message{kind: workMessage, job: j} }

func shutdown() message { return message{kind: shutdownMessage} }
