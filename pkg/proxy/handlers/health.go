package handlers

import (
	"context"
	"errors"
	"fmt"
)

// StorePinger is satisfied by the settings resolver.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// SettingsStoreCheck reports whether the settings store answers. Register
// it as optional: the resolver serves cached rows and defaults without it.
func SettingsStoreCheck(p StorePinger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("settings store: %w", err)
		}
		return nil
	}
}

// AdaptersCheck fails when no provider adapter is configured, since no
// fan-out could succeed.
func AdaptersCheck(a AdapterView) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if len(a.Names()) == 0 {
			return errors.New("no provider adapters configured")
		}
		return nil
	}
}

// EnabledProvidersCheck fails when the settings layer enables nothing.
func EnabledProvidersCheck(s interface {
	EnabledProviders(ctx context.Context) []string
}) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if len(s.EnabledProviders(ctx)) == 0 {
			return errors.New("no providers enabled")
		}
		return nil
	}
}
