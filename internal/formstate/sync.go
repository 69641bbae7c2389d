package formstate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/joseph-ayodele/proposal-builder/constants"
	"github.com/joseph-ayodele/proposal-builder/internal/common"
)

type defaulter interface {
	ApplyDefaults()
}

type fieldSpec struct {
	index    int
	name     string
	required bool
	ai       bool
	typ      reflect.Type
}

var specCache sync.Map // reflect.Type -> []fieldSpec

func specsFor(t reflect.Type) ([]fieldSpec, error) {
	if cached, ok := specCache.Load(t); ok {
		return cached.([]fieldSpec), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("form record %s is not a struct", t)
	}
	var specs []fieldSpec
	seen := map[string]bool{}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup("form")
		if !ok || tag == "-" || !sf.IsExported() {
			continue
		}
		parts := strings.Split(tag, ",")
		spec := fieldSpec{index: i, name: strings.TrimSpace(parts[0]), typ: sf.Type}
		for _, opt := range parts[1:] {
			switch strings.TrimSpace(opt) {
			case "required":
				spec.required = true
			case "ai":
				spec.ai = true
			}
		}
		if spec.name == "" || seen[spec.name] {
			return nil, fmt.Errorf("form record %s: empty or duplicate field name on %s", t, sf.Name)
		}
		seen[spec.name] = true
		specs = append(specs, spec)
	}
	specCache.Store(t, specs)
	return specs, nil
}

// Key is the store key of field on tab.
func Key(tab, field string) string {
	return tab + "." + field
}

// New returns a record with its defaults applied.
func New[T Record]() T {
	var rec T
	if d, ok := any(&rec).(defaulter); ok {
		d.ApplyDefaults()
	}
	return rec
}

// FromStore reads every declared field of T. Absent fields keep the
// record's default.
func FromStore[T Record](ctx context.Context, store Store) (T, error) {
	rec := New[T]()
	specs, err := specsFor(reflect.TypeOf(rec))
	if err != nil {
		return rec, err
	}
	v := reflect.ValueOf(&rec).Elem()
	for _, f := range specs {
		key := Key(rec.Tab(), f.name)
		raw, ok, err := store.Get(ctx, key)
		if err != nil {
			return rec, common.StorageError("read "+key, err)
		}
		if !ok {
			continue
		}
		ptr := reflect.New(f.typ)
		if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
			return rec, common.StorageError("decode "+key, err)
		}
		v.Field(f.index).Set(ptr.Elem())
	}
	return rec, nil
}

// Update applies fields to rec and writes the whole record back. Unknown
// names are logged and skipped; values are converted to the declared field
// type. On a conversion error nothing is written and rec is unchanged.
func Update[T Record](ctx context.Context, store Store, rec *T, fields map[string]any) (T, error) {
	return update(ctx, store, rec, fields, slog.Default())
}

func update[T Record](ctx context.Context, store Store, rec *T, fields map[string]any, logger *slog.Logger) (T, error) {
	specs, err := specsFor(reflect.TypeOf(*rec))
	if err != nil {
		return *rec, err
	}
	byName := make(map[string]fieldSpec, len(specs))
	for _, f := range specs {
		byName[f.name] = f
	}

	next := *rec
	v := reflect.ValueOf(&next).Elem()
	validator := common.NewValidator()
	for name, value := range fields {
		f, ok := byName[name]
		if !ok {
			logger.Warn("formstate.update.unknown_field", "tab", next.Tab(), "field", name)
			continue
		}
		cv, err := convert(value, f.typ)
		if err != nil {
			validator.Field(name, value, func(field string, value any) *common.ValidationError {
				return &common.ValidationError{Field: field, Value: value, Message: err.Error()}
			})
			continue
		}
		v.Field(f.index).Set(cv)
	}
	if err := common.ValidateAndReturnError(validator); err != nil {
		return *rec, err
	}

	values := make(map[string][]byte, len(specs))
	for _, f := range specs {
		b, err := json.Marshal(v.Field(f.index).Interface())
		if err != nil {
			return *rec, fmt.Errorf("%w: encode %s: %w", common.ErrInternal, f.name, err)
		}
		values[Key(next.Tab(), f.name)] = b
	}
	if err := store.SetMany(ctx, values); err != nil {
		return *rec, common.StorageError("write "+next.Tab(), err)
	}
	*rec = next
	return next, nil
}

// convert coerces an API value into typ. Strings accept any scalar; other
// types always go through a JSON round trip, even when the type already
// matches, so the record holds what FromStore will read back (float64
// numbers, no shared maps or slices).
func convert(value any, typ reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(typ), nil
	}
	if typ.Kind() == reflect.String {
		if rv := reflect.ValueOf(value); rv.Type() == typ {
			return rv, nil
		}
		switch value.(type) {
		case map[string]any, []any:
			return reflect.Value{}, fmt.Errorf("want a string, got %T", value)
		}
		return reflect.ValueOf(fmt.Sprint(value)).Convert(typ), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(typ)
	if err := json.Unmarshal(b, ptr.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("want %s: %w", typ, err)
	}
	return ptr.Elem(), nil
}

// TabState derives the tab's progress from its required and ai fields: no
// field set is empty; all required fields set is mandatory_complete, and
// ai_enhanced once an ai field is also set.
func TabState[T Record](rec T) constants.TabState {
	specs, err := specsFor(reflect.TypeOf(rec))
	if err != nil {
		return constants.TabStateEmpty
	}
	def := reflect.ValueOf(New[T]())
	v := reflect.ValueOf(rec)

	touched, requiredMissing, ai := false, false, false
	for _, f := range specs {
		fv := v.Field(f.index)
		set := filled(fv) && !reflect.DeepEqual(fv.Interface(), def.Field(f.index).Interface())
		if f.required && !filled(fv) {
			requiredMissing = true
		}
		if set {
			touched = true
			if f.ai {
				ai = true
			}
		}
	}
	switch {
	case !touched:
		return constants.TabStateEmpty
	case requiredMissing:
		return constants.TabStatePartiallyFilled
	case ai:
		return constants.TabStateAIEnhanced
	default:
		return constants.TabStateMandatoryComplete
	}
}

func filled(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) != ""
	case reflect.Map, reflect.Slice:
		return v.Len() > 0
	default:
		return !v.IsZero()
	}
}
