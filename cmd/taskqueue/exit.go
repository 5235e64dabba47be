package main

import "taskqueue/internal/queue"

const (
	exitOK                 = 0
	exitFailure            = 1
	exitInvalidInput       = 2
	exitNotFound           = 3
	exitIllegalTransition  = 4
	exitStorageUnavailable = 5
)

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch queue.KindOf(err) {
	case "":
		return exitOK
	case queue.KindInvalidInput:
		return exitInvalidInput
	case queue.KindNotFound:
		return exitNotFound
	case queue.KindIllegalTransition:
		return exitIllegalTransition
	case queue.KindStorageUnavailable:
		return exitStorageUnavailable
	default:
		return exitFailure
	}
}
