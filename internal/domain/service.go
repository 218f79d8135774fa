package domain

// Worker is an isolated execution unit. It shares no memory with the queue:
// requests go in through Post, replies come out of Messages.
type Worker interface {
	Name() string

	// Post hands a request to the worker without waiting for it to run.
	Post(msg Message) error

	// Messages is closed once the worker has terminated.
	Messages() <-chan Message

	// Cancel aborts the request with the given id and every earlier one,
	// whether running or still queued. The worker stays alive.
	Cancel(id uint64)

	// Terminate stops the worker abruptly. Pending requests are dropped.
	Terminate()
}

// Spawner is the worker entry point: it creates a fresh worker that reports
// LOADING_DONE once it is ready for requests.
type Spawner interface {
	Spawn(name string) Worker
}
