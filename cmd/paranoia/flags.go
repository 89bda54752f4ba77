package main

import (
	"flag"
	"fmt"
	"io"

	paranoia "github.com/dailaim/paranoia-gorm"
)

func parseListFlags(args []string) (paranoia.Mode, error) {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	deleted := fs.Bool("deleted", false, "only soft deleted notes")
	all := fs.Bool("all", false, "active and soft deleted notes")
	if err := fs.Parse(args); err != nil {
		return paranoia.ModeScoped, fmt.Errorf("%w: %v", errUsage, err)
	}

	switch {
	case *deleted && *all:
		return paranoia.ModeScoped, fmt.Errorf("%w: -deleted and -all are exclusive", errUsage)
	case *deleted:
		return paranoia.ModeOnlyDeleted, nil
	case *all:
		return paranoia.ModeWithDeleted, nil
	}
	return paranoia.ModeScoped, nil
}
