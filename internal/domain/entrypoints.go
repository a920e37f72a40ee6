package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loadpath.dev/pkg/loadpath/internal/adapter"
)

const (
	// InspectEntryPoint prints the resolver phase, the argument vector and the
	// units materialized so far.
	InspectEntryPoint = "loadpath.Inspect"
	// ResolveEntryPoint materializes every "--unit <name>" argument.
	ResolveEntryPoint = "loadpath.Resolve"
)

// RegisterBuiltins adds the entry points shipped with loadpath to registry.
func RegisterBuiltins(registry adapter.EntryPointRegistry) error {
	builtins := map[string]adapter.EntryPoint{
		InspectEntryPoint: inspectMain,
		ResolveEntryPoint: resolveMain,
	}

	for _, name := range []string{InspectEntryPoint, ResolveEntryPoint} {
		if err := registry.Register(name, builtins[name]); err != nil {
			return err
		}
	}

	return nil
}

func inspectMain(ctx context.Context, env adapter.EntryEnv, args []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(env.Out, "phase: %s\n", env.Units.Phase()); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(env.Out, "args: %s\n", strings.Join(args, " ")); err != nil {
		return err
	}

	units := env.Units.Materialized()
	if _, err := fmt.Fprintf(env.Out, "materialized: %d\n", len(units)); err != nil {
		return err
	}

	for _, unit := range units {
		if _, err := fmt.Fprintf(env.Out, "  %s\t%s\t%s\n", unit.Name, unit.Origin, unit.Digest); err != nil {
			return err
		}
	}

	return nil
}

func resolveMain(ctx context.Context, env adapter.EntryEnv, args []string) error {
	var errs []error

	for i := 0; i+1 < len(args); i++ {
		if args[i] != "--unit" {
			continue
		}

		name := args[i+1]
		i++

		unit, err := env.Units.Resolve(ctx, name)
		if err != nil {
			errs = append(errs, err)

			if _, werr := fmt.Fprintf(env.Out, "%s\tunresolved\t%v\n", name, err); werr != nil {
				return werr
			}

			continue
		}

		if _, err := fmt.Fprintf(env.Out, "%s\t%s\t%s\n", unit.Name, unit.Origin, unit.Digest); err != nil {
			return err
		}
	}

	return errors.Join(errs...)
}
