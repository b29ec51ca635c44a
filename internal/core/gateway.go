package core

import (
	"fmt"
	"reflect"
)

// Bind returns a func of type F that delivers every call to s as an event for member on
// instance. It is the simplest way to put a mocked member in front of code under test:
// function-typed dependencies take the func directly, and hand-written mock types call it
// from their methods.
//
// Engine failures and Thrown producers panic inside the returned func.
func Bind[F any](s *Session, instance any, member *Member) F {
	funcType := reflect.TypeFor[F]()
	if funcType.Kind() != reflect.Func {
		panic(fmt.Sprintf("impmock: Bind needs a func type, got %v", funcType))
	}

	if funcType.NumIn() != len(member.Params) || funcType.NumOut() != len(member.Results) {
		panic(fmt.Sprintf("impmock: %v does not fit %v", funcType, member))
	}

	relayer := func(args []reflect.Value) []reflect.Value {
		values := s.Call(instance, member, unreflectValues(args)...)

		out := make([]reflect.Value, funcType.NumOut())
		for i := range out {
			out[i] = reflectValue(values[i], funcType.Out(i))
		}

		return out
	}

	// MakeFunc returns a value of exactly funcType, as documented.
	return reflect.MakeFunc(funcType, relayer).Interface().(F) //nolint:forcetypeassert
}

func reflectValue(value any, typ reflect.Type) reflect.Value {
	if value == nil {
		return reflect.Zero(typ)
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(typ) {
		return rv
	}

	return rv.Convert(typ)
}

// unreflectValues keeps nil interfaces, pointers, slices and maps as they were passed.
func unreflectValues(args []reflect.Value) []any {
	values := make([]any, len(args))
	for i, arg := range args {
		values[i] = arg.Interface()
	}

	return values
}
