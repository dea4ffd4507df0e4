package conf

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/Copani/matRad/internal/errors"
)

// Migration is the outcome of merging a snapshot into the current schema.
type Migration struct {
	// Settings is the fresh instance with every matching snapshot value applied.
	Settings Settings

	// PersistedVersion is the snapshot's version, "" when it carried none.
	PersistedVersion string
	// VersionMismatch is set when PersistedVersion differs from the current version.
	VersionMismatch bool

	// Overwritten lists dotted field paths taken from the snapshot.
	Overwritten []string
	// Kept lists field paths that kept the fresh default, either because the
	// snapshot lacked them or held the same value.
	Kept []string
	// Ignored lists snapshot keys unknown to the current schema.
	Ignored []string
	// Invalid lists snapshot values that could not be converted to the
	// field's type; those fields keep the fresh default.
	Invalid []string
}

// Migrate reconciles snapshot against fresh, a fully defaulted Settings of
// the current schema. For every field of fresh the snapshot is searched by
// key, ignoring case: absent keys keep the default, present and different
// values overwrite it, and nested groups are walked field by field. The
// version is never taken from the snapshot, only compared. Unknown snapshot
// keys are reported in Ignored.
func Migrate(fresh Settings, snapshot Snapshot) (Migration, error) {
	m := Migration{Settings: fresh}
	if snapshot == nil {
		m.VersionMismatch = true
		return m, nil
	}

	// The version is consulted before the general merge and then dropped
	src := make(map[string]any, len(snapshot))
	for k, v := range snapshot {
		if strings.EqualFold(k, versionKey) {
			m.PersistedVersion = fmt.Sprint(v)
			continue
		}
		src[k] = v
	}
	m.VersionMismatch = m.PersistedVersion != fresh.Version

	root := reflect.ValueOf(&m.Settings).Elem()
	if err := m.mergeStruct(root, src, ""); err != nil {
		return m, err
	}

	slices.Sort(m.Ignored)
	return m, nil
}

// mergeStruct walks dst's fields and consumes matching entries of src.
// Keys never consumed are recorded as ignored under prefix.
func (m *Migration) mergeStruct(dst reflect.Value, src map[string]any, prefix string) error {
	consumed := make(map[string]bool, len(src))
	if err := m.mergeFields(dst, src, prefix, consumed); err != nil {
		return err
	}
	for k := range src {
		if !consumed[k] {
			m.Ignored = append(m.Ignored, joinPath(prefix, k))
		}
	}
	return nil
}

func (m *Migration) mergeFields(dst reflect.Value, src map[string]any, prefix string, consumed map[string]bool) error {
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := dst.Field(i)

		// Inlined groups share the parent's keys
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := m.mergeFields(fv, src, prefix, consumed); err != nil {
				return err
			}
			continue
		}

		key := fieldKey(field)
		if prefix == "" && key == versionKey {
			continue
		}
		path := joinPath(prefix, key)

		srcKey, raw, ok := lookupFold(src, key, field.Name)
		if !ok {
			m.Kept = append(m.Kept, path)
			continue
		}
		consumed[srcKey] = true
		if raw == nil {
			m.Kept = append(m.Kept, path)
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			nested, isMap := asStringMap(raw)
			if !isMap {
				m.Invalid = append(m.Invalid, path)
				continue
			}
			if err := m.mergeStruct(fv, nested, path); err != nil {
				return err
			}
			continue
		}

		decoded, err := decodeLeaf(raw, field.Type)
		if err != nil {
			m.Invalid = append(m.Invalid, path)
			continue
		}
		if reflect.DeepEqual(decoded.Interface(), fv.Interface()) {
			m.Kept = append(m.Kept, path)
			continue
		}
		if !fv.CanSet() {
			return errors.Newf("field %s is not settable", path).
				Component("configuration").
				Category(errors.CategoryMigration).
				Build()
		}
		fv.Set(decoded)
		m.Overwritten = append(m.Overwritten, path)
	}
	return nil
}

// decodeLeaf converts a snapshot value to typ, accepting numeric strings,
// floats for integer fields and similar loose encodings.
func decodeLeaf(raw any, typ reflect.Type) (reflect.Value, error) {
	target := reflect.New(typ)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target.Interface(),
		WeaklyTypedInput: true,
		DecodeHook:       integralFloatHook,
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return reflect.Value{}, err
	}
	return target.Elem(), nil
}

// integralFloatHook rejects floats bound for integer fields unless they are
// whole numbers the field can hold. mapstructure would otherwise truncate.
func integralFloatHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float32 && from.Kind() != reflect.Float64 {
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 || reflect.Zero(to).OverflowInt(int64(f)) {
			return nil, fmt.Errorf("%v is not representable as %s", data, to)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 || reflect.Zero(to).OverflowUint(uint64(f)) {
			return nil, fmt.Errorf("%v is not representable as %s", data, to)
		}
	}
	return data, nil
}

// fieldKey is the persisted key of a struct field: its yaml tag name, or
// the Go field name when untagged.
func fieldKey(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// lookupFold finds key (or the Go field name) in src ignoring case.
func lookupFold(src map[string]any, key, goName string) (string, any, bool) {
	if v, ok := src[key]; ok {
		return key, v, true
	}
	for k, v := range src {
		if strings.EqualFold(k, key) || strings.EqualFold(k, goName) {
			return k, v, true
		}
	}
	return "", nil, false
}

// asStringMap accepts the map shapes produced by the yaml, toml, json and
// viper decoders.
func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Snapshot:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
