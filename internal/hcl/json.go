package hcl

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/devdag/internal/config"
	"github.com/vk/devdag/internal/ctxlog"
)

func (l *Loader) loadJSON(ctx context.Context, parser *hclparse.Parser, file string) (*config.Model, error) {
	f, diags := parser.ParseJSONFile(file)
	if diags.HasErrors() {
		return nil, diagError(file, "failed to parse JSON", diags)
	}
	attrs, diags := f.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diagError(file, "failed to read JSON document", diags)
	}

	model := newModel()
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		val, diags := attrs[name].Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diagError(file, fmt.Sprintf("failed to evaluate %q", name), diags)
		}

		var err error
		switch name {
		case jsonDecorations:
			err = l.translateDecorations(ctx, file, model, val)
		case jsonPersistent:
			err = l.translatePersistent(ctx, model, val)
		case jsonGraphTypes:
			err = decode(ctx, val, &model.GraphTypes)
		default:
			return nil, config.Errorf(file, "unknown top-level key %q", name)
		}
		if err != nil {
			return nil, &config.Error{Source: file, Msg: fmt.Sprintf("invalid %q", name), Err: err}
		}
	}
	return model, nil
}

// entries returns the members of an object or map value; null has none.
func entries(v cty.Value) (map[string]cty.Value, error) {
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("expected an object, got %s", ty.FriendlyName())
	}
	return v.AsValueMap(), nil
}

// translateDecorations reads {"NODETYPE": {"FIELD": {"args": [...]}}}.
func (l *Loader) translateDecorations(ctx context.Context, file string, model *config.Model, v cty.Value) error {
	types, err := entries(v)
	if err != nil {
		return err
	}
	for _, typeName := range slices.Sorted(maps.Keys(types)) {
		specs, err := entries(types[typeName])
		if err != nil {
			return fmt.Errorf("%s: %w", typeName, err)
		}
		fields := make(map[string]*config.FieldSpec, len(specs))
		for name, spec := range specs {
			field, err := translateField(ctx, name, spec)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", typeName, name, err)
			}
			fields[name] = field
		}
		l.addDecorations(ctx, file, model, typeName, fields)
	}
	return nil
}

func translateField(ctx context.Context, name string, v cty.Value) (*config.FieldSpec, error) {
	members, err := entries(v)
	if err != nil {
		return nil, err
	}
	field := &config.FieldSpec{Name: name}
	for key, val := range members {
		if key != jsonArgs {
			return nil, fmt.Errorf("unknown key %q", key)
		}
		if val.IsNull() {
			continue
		}
		if err := decode(ctx, val, &field.Args); err != nil {
			return nil, fmt.Errorf("args: %w", err)
		}
	}
	return field, nil
}

// translatePersistent reads {"NODETYPE": [["key", ...], ...]}.
func (l *Loader) translatePersistent(ctx context.Context, model *config.Model, v cty.Value) error {
	types, err := entries(v)
	if err != nil {
		return err
	}
	for typeName, pathsVal := range types {
		var paths [][]string
		if err := decode(ctx, pathsVal, &paths); err != nil {
			return fmt.Errorf("%s: %w", typeName, err)
		}
		model.Persistent[typeName] = paths
	}
	return nil
}

// decode handles the conversion and decoding of a cty.Value into a Go pointer.
func decode(ctx context.Context, val cty.Value, goVal any) error {
	logger := ctxlog.FromContext(ctx)
	valPtr := reflect.ValueOf(goVal)
	if valPtr.Kind() != reflect.Ptr {
		return fmt.Errorf("target for decoding must be a pointer, got %T", goVal)
	}

	impliedType, err := gocty.ImpliedType(valPtr.Elem().Interface())
	if err != nil {
		return fmt.Errorf("unable to infer cty.Type for %T: %w", goVal, err)
	}

	converted, err := convert.Convert(val, impliedType)
	if err != nil {
		return fmt.Errorf("cannot convert %s to required type %s: %w", val.Type().FriendlyName(), impliedType.FriendlyName(), err)
	}
	if !val.Type().Equals(converted.Type()) {
		logger.Debug("Implicitly converted value type.",
			"from", val.Type().FriendlyName(),
			"to", converted.Type().FriendlyName(),
		)
	}
	return gocty.FromCtyValue(converted, goVal)
}
