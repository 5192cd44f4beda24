package helpers

import "reflect"

// StrPanic returns p, panicking with panicMessage when p is empty.
//
// Used by constructors and LoadConfig to fail fast on required strings (ZooKeeper root, config path).
func StrPanic(p string, panicMessage string) string {
	if p == "" {
		panic(panicMessage)
	}
	return p
}

// NilPanic returns v, panicking with panicMessage when v is nil. Typed nils (pointer, slice, map,
// chan, func, interface) count as nil.
//
// Called from every constructor that takes a required dependency (client, logger, time provider, cache).
func NilPanic[T any](v T, panicMessage string) T {
	if isNil(v) {
		panic(panicMessage)
	}
	return v
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
