package orchestration

import (
	"fmt"
	"reflect"
)

// isNilClient treats typed-nil clients as unconfigured.
func isNilClient(client any) bool {
	if client == nil {
		return true
	}

	v := reflect.ValueOf(client)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// panicSafe keeps a panicking collaborator from taking the process down
// with it.
func panicSafe(name string, run func()) func() {
	return func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error(fmt.Sprintf("%s worker panicked", name), "panic", recovered)
			}
		}()

		run()
	}
}

func cancelTimer(stop *stopFunc) {
	if *stop != nil {
		(*stop)()
		*stop = nil
	}
}
