package core

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// GenericDelegateName is the method name that stands in for any member, whatever its name.
const GenericDelegateName = "Delegate"

// Marked is implemented by delegate values that name their replacement methods explicitly.
// Without it, every exported method of the delegate except MockMethods is a candidate.
type Marked interface {
	MockMethods() []string
}

// unexported constants.
const (
	noFit fit = iota
	catchAllFit
	widenedFit
	exactFit
)

const markerMethod = "MockMethods"

// unexported variables.
var (
	invocationType = reflect.TypeFor[*Invocation]()
)

type candidate struct {
	name         string
	fn           reflect.Value
	wantsContext bool
	params       []reflect.Type
	quality      fit
}

// delegateMethod is the capability descriptor for a resolved delegate: the method to call and
// whether it takes the invocation context. It is resolved once, when the producer is attached.
type delegateMethod struct {
	name         string
	fn           reflect.Value
	wantsContext bool
	params       []reflect.Type
	results      []reflect.Type
}

func (d *delegateMethod) String() string {
	if d.name == "" {
		return d.fn.Type().String()
	}

	return d.name + strings.TrimPrefix(d.fn.Type().String(), "func")
}

// invoke calls the delegate with the live call. A panic inside the delegate reaches the
// caller untouched.
func (d *delegateMethod) invoke(inv *Invocation) []any {
	in := make([]reflect.Value, 0, len(d.params)+1)

	if d.wantsContext {
		in = append(in, reflect.ValueOf(inv))
	}

	for i, typ := range d.params {
		in = append(in, argValue(inv.args[i], typ))
	}

	var out []reflect.Value
	if d.fn.Type().IsVariadic() {
		out = d.fn.CallSlice(in)
	} else {
		out = d.fn.Call(in)
	}

	if len(out) == 0 {
		return defaultOutcome(inv.member, inv.instance).Values
	}

	values := make([]any, len(out))
	for i, value := range out {
		values[i] = resultValue(value, d.results[i])
	}

	return values
}

type fit int

func argValue(arg any, typ reflect.Type) reflect.Value {
	if arg == nil {
		return reflect.Zero(typ)
	}

	value := reflect.ValueOf(arg)
	if value.Type().AssignableTo(typ) {
		return value
	}

	return value.Convert(typ)
}

func candidatesOf(d any) ([]candidate, bool, error) {
	value := reflect.ValueOf(d)
	if !value.IsValid() {
		return nil, false, fmt.Errorf("%w: delegate is nil", ErrNoUsableDelegateMethod)
	}

	if value.Kind() == reflect.Func {
		if value.IsNil() {
			return nil, false, fmt.Errorf("%w: delegate func is nil", ErrNoUsableDelegateMethod)
		}

		return []candidate{{fn: value}}, true, nil
	}

	if marked, ok := d.(Marked); ok {
		names := marked.MockMethods()
		found := make([]candidate, 0, len(names))

		for _, name := range names {
			method := value.MethodByName(name)
			if !method.IsValid() {
				return nil, true, fmt.Errorf("%w: %T marks %q, which is not an exported method",
					ErrNoUsableDelegateMethod, d, name)
			}

			found = append(found, candidate{name: name, fn: method})
		}

		return found, true, nil
	}

	inherited := promotedMethods(value.Type())
	found := make([]candidate, 0, value.NumMethod())

	for i := range value.NumMethod() {
		name := value.Type().Method(i).Name
		if name == markerMethod || inherited[name] {
			continue
		}

		found = append(found, candidate{name: name, fn: value.Method(i)})
	}

	return found, false, nil
}

// classify works out how well a candidate's parameters fit the member.
func classify(member *Member, cand candidate) candidate {
	funcType := cand.fn.Type()
	params := make([]reflect.Type, 0, funcType.NumIn())

	for i := range funcType.NumIn() {
		params = append(params, funcType.In(i))
	}

	if len(params) > 0 && params[0] == invocationType {
		cand.wantsContext = true
		params = params[1:]
	}

	cand.params = params

	if !resultsFit(member, funcType) {
		cand.quality = noFit

		return cand
	}

	if len(params) == 0 {
		cand.quality = catchAllFit

		return cand
	}

	if len(params) != len(member.Params) {
		cand.quality = noFit

		return cand
	}

	cand.quality = exactFit

	for i, param := range params {
		cand.quality = min(cand.quality, paramFit(member.Params[i], param))
	}

	return cand
}

func intWidth(kind reflect.Kind) int {
	switch kind { //nolint:exhaustive // only integer kinds have a width here
	case reflect.Int8, reflect.Uint8:
		return 8
	case reflect.Int16, reflect.Uint16:
		return 16
	case reflect.Int32, reflect.Uint32:
		return 32
	default:
		return 64
	}
}

func isFloat(kind reflect.Kind) bool {
	return kind == reflect.Float32 || kind == reflect.Float64
}

func isNumeric(typ reflect.Type) bool {
	kind := typ.Kind()

	return isSigned(kind) || isUnsigned(kind) || isFloat(kind)
}

func isSigned(kind reflect.Kind) bool {
	switch kind { //nolint:exhaustive // signed integers only
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func isUnsigned(kind reflect.Kind) bool {
	switch kind { //nolint:exhaustive // unsigned integers only
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	default:
		return false
	}
}

func paramFit(declared, param reflect.Type) fit {
	switch {
	case declared == param:
		return exactFit
	case declared.AssignableTo(param), widens(declared, param):
		return widenedFit
	default:
		return noFit
	}
}

// pick applies the selection rules to usable candidates.
func pick(member *Member, usable []candidate, marked bool) (candidate, error) {
	if len(usable) == 1 {
		return usable[0], nil
	}

	if !marked {
		return candidate{}, fmt.Errorf("%w: %d candidate methods for %v and none marked: %s",
			ErrAmbiguousDelegateMethod, len(usable), member, candidateNames(usable))
	}

	named := slices.DeleteFunc(slices.Clone(usable), func(c candidate) bool {
		return c.name != member.Name
	})

	if len(named) == 0 {
		named = slices.DeleteFunc(slices.Clone(usable), func(c candidate) bool {
			return c.name != GenericDelegateName
		})
	}

	if len(named) == 0 {
		return candidate{}, fmt.Errorf("%w: %d unnamed candidates for %v: %s",
			ErrAmbiguousDelegateMethod, len(usable), member, candidateNames(usable))
	}

	best := slices.MaxFunc(named, func(a, b candidate) int { return int(a.quality) - int(b.quality) })

	top := slices.DeleteFunc(named, func(c candidate) bool { return c.quality != best.quality })
	if len(top) > 1 {
		return candidate{}, fmt.Errorf("%w: %d equally good methods for %v: %s",
			ErrAmbiguousDelegateMethod, len(top), member, candidateNames(top))
	}

	return best, nil
}

func candidateNames(cands []candidate) string {
	names := make([]string, len(cands))
	for i, cand := range cands {
		names[i] = cand.name
		if names[i] == "" {
			names[i] = cand.fn.Type().String()
		}
	}

	return strings.Join(names, ", ")
}

// promotedMethods lists method names a struct type gets from its embedded fields.
func promotedMethods(typ reflect.Type) map[string]bool {
	names := map[string]bool{}

	structType := typ
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	if structType.Kind() != reflect.Struct {
		return names
	}

	for i := range structType.NumField() {
		field := structType.Field(i)
		if !field.Anonymous {
			continue
		}

		for _, embedded := range []reflect.Type{field.Type, reflect.PointerTo(field.Type)} {
			for j := range embedded.NumMethod() {
				names[embedded.Method(j).Name] = true
			}
		}
	}

	return names
}

// resolveDelegate chooses the one method of d that replaces member.
func resolveDelegate(member *Member, d any) (*delegateMethod, error) {
	cands, marked, err := candidatesOf(d)
	if err != nil {
		return nil, err
	}

	usable := make([]candidate, 0, len(cands))

	for _, cand := range cands {
		cand = classify(member, cand)
		if cand.quality != noFit {
			usable = append(usable, cand)
		}
	}

	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: %T has no method fitting %v", ErrNoUsableDelegateMethod, d, member)
	}

	chosen, err := pick(member, usable, marked)
	if err != nil {
		return nil, err
	}

	if chosen.quality == catchAllFit {
		chosen.params = nil
	}

	funcType := chosen.fn.Type()
	results := make([]reflect.Type, funcType.NumOut())

	for i := range funcType.NumOut() {
		results[i] = member.Results[i]
	}

	return &delegateMethod{
		name:         chosen.name,
		fn:           chosen.fn,
		wantsContext: chosen.wantsContext,
		params:       chosen.params,
		results:      results,
	}, nil
}

func resultValue(value reflect.Value, typ reflect.Type) any {
	if value.Type() == typ || value.Type().AssignableTo(typ) {
		return value.Interface()
	}

	return value.Convert(typ).Interface()
}

// resultsFit accepts a delegate that returns nothing, or one value per member result,
// each assignable or losslessly widened to the member's type.
func resultsFit(member *Member, funcType reflect.Type) bool {
	if funcType.NumOut() == 0 {
		return true
	}

	if funcType.NumOut() != len(member.Results) {
		return false
	}

	for i := range funcType.NumOut() {
		out := funcType.Out(i)
		if !out.AssignableTo(member.Results[i]) && !widens(out, member.Results[i]) {
			return false
		}
	}

	return true
}

// widens reports whether a declared numeric parameter can be widened to param without loss.
func widens(declared, param reflect.Type) bool {
	from, to := declared.Kind(), param.Kind()

	switch {
	case isSigned(from) && isSigned(to):
		return intWidth(to) > intWidth(from) || (to == reflect.Int64 && from == reflect.Int)
	case isUnsigned(from) && isUnsigned(to):
		return intWidth(to) > intWidth(from) || (to == reflect.Uint64 && from == reflect.Uint)
	case isUnsigned(from) && isSigned(to):
		return intWidth(to) > intWidth(from)
	case (isSigned(from) || isUnsigned(from)) && to == reflect.Float64:
		return true
	case (isSigned(from) || isUnsigned(from)) && to == reflect.Float32:
		return intWidth(from) <= 16
	case from == reflect.Float32 && to == reflect.Float64:
		return true
	default:
		return false
	}
}
