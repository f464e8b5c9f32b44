// Package main demonstrates the hookchain lifecycle engine: a save event
// on a small type hierarchy with validation, timing, and audit filters.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/dshills/hookchain/chain"
	"github.com/dshills/hookchain/registry"
)

func main() {
	os.Exit(run())
}

func run() int {
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	reg := registry.New()
	if err := setup(reg, zlog{logger}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: setup failed: %v\n", err)
		return 1
	}

	users := []*User{
		{Email: "gopher@example.com"},
		{Email: ""}, // fails validation, halts the save
	}
	for _, u := range users {
		ctx, err := reg.RunContext("user", "save", u, func(target any) (any, error) {
			t := target.(*User)
			t.Saved = true
			return t.Email, nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: save failed: %v\n", err)
			return 1
		}
		logger.Info().
			Str("email", u.Email).
			Bool("saved", u.Saved).
			Bool("halted", ctx.Halted).
			Any("value", ctx.Value).
			Msg("save finished")
	}
	return 0
}

// setup declares the record/user hierarchy and the save lifecycle.
func setup(reg *registry.Registry, logger chain.Logger) error {
	if err := reg.RegisterType("record", ""); err != nil {
		return err
	}
	if err := reg.RegisterType("user", "record"); err != nil {
		return err
	}

	_, err := reg.DefineEvent("record", "save",
		registry.WithTerminator(chain.HaltOnFalse),
		registry.WithSkipAfterIfHalted(),
	)
	if err != nil {
		return err
	}

	none := chain.Conditions{}
	if err := reg.AddFilter("record", "save", chain.Before, "Validate", none, chain.AtEnd); err != nil {
		return err
	}
	if err := reg.AddFilter("record", "save", chain.Around, chain.NewTimingFilter("save", logger), none, chain.AtEnd); err != nil {
		return err
	}
	audit := chain.NewAuditFilter("save", logger)
	if err := reg.AddFilter("record", "save", chain.Before, audit, none, chain.AtFront); err != nil {
		return err
	}
	return reg.AddFilter("record", "save", chain.After, audit, none, chain.AtEnd)
}

// User is the demo target type.
type User struct {
	Email string
	Saved bool
}

// Validate is resolved by name as the before:save callback. Returning
// false halts the chain under the HaltOnFalse terminator.
func (u *User) Validate() bool {
	return u.Email != ""
}

// OnHalted implements chain.HaltObserver.
func (u *User) OnHalted(identity any) {
	fmt.Fprintf(os.Stderr, "save halted by %v\n", identity)
}

// zlog adapts zerolog to the chain.Logger interface.
type zlog struct {
	l zerolog.Logger
}

func (z zlog) Debug(msg string, keysAndValues ...any) {
	z.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (z zlog) Info(msg string, keysAndValues ...any) {
	z.l.Info().Fields(keysAndValues).Msg(msg)
}

func (z zlog) Error(msg string, keysAndValues ...any) {
	z.l.Error().Fields(keysAndValues).Msg(msg)
}
