//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Conn is one client connection speaking the line protocol.
// ReadLine blocks until a full line arrives and returns it without terminator.
// Close must make a pending ReadLine fail and must be safe to call more than once.
// WriteLine is not required to be safe for concurrent use, callers serialize it.
type Conn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}

// Dispatcher runs session loops with bounded concurrency.
type Dispatcher interface {
	Submit(task func()) error
	Stop()
	Wait(ctx context.Context) error
}

// Censor rewrites chat content before it is broadcast.
type Censor interface {
	Censor(content string) string
}
