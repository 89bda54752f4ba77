package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"gorm.io/gorm"

	paranoia "github.com/dailaim/paranoia-gorm"
)

// Note is the sample model the command works on.
type Note struct {
	paranoia.Model
	Title string `gorm:"size:200;not null" json:"title"`
	Body  string `json:"body"`
}

func (n *Note) BeforeDelete(tx *gorm.DB) error {
	if n.Title == "" {
		return errors.New("note without title")
	}
	return nil
}

type app struct {
	db    *gorm.DB
	notes *paranoia.Repository[Note]
	log   *zap.Logger
	out   io.Writer
}

func newApp(db *gorm.DB, column string, log *zap.Logger, out io.Writer) (*app, error) {
	if err := paranoia.Enable(db, &Note{}, paranoia.With(column)); err != nil {
		return nil, err
	}
	notes, err := paranoia.NewRepository[Note](db)
	if err != nil {
		return nil, err
	}
	return &app{db: db, notes: notes, log: log, out: out}, nil
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "migrate":
		if err := paranoia.Migrate(a.db.WithContext(ctx), &Note{}); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "migrated")
		return nil
	case "add":
		if len(rest) == 0 {
			return errUsage
		}
		n := &Note{Title: rest[0]}
		if len(rest) > 1 {
			n.Body = rest[1]
		}
		if err := a.notes.Create(ctx, n); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "added %d\n", n.ID)
		return nil
	case "list":
		return a.list(ctx, rest)
	case "delete":
		return a.withID(rest, func(id uint64) error {
			n, err := a.notes.First(ctx, id)
			if err != nil {
				return err
			}
			if err := a.notes.Destroy(ctx, n); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %d\n", n.ID)
			return nil
		})
	case "restore":
		return a.withID(rest, func(id uint64) error {
			n, err := a.notes.FindDeleted(ctx, id)
			if err != nil {
				return err
			}
			if err := a.notes.Restore(ctx, n); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "restored %d\n", n.ID)
			return nil
		})
	case "purge":
		return a.withID(rest, func(id uint64) error {
			var n Note
			if err := a.notes.Query(ctx, paranoia.ModeWithDeleted).First(&n, id).Error; err != nil {
				return err
			}
			if err := a.notes.HardDelete(ctx, &n); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "purged %d\n", n.ID)
			return nil
		})
	case "demo":
		return a.demo(ctx)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func (a *app) withID(args []string, fn func(id uint64) error) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad id %q", errUsage, args[0])
	}
	return fn(id)
}

func (a *app) list(ctx context.Context, args []string) error {
	mode, err := parseListFlags(args)
	if err != nil {
		return err
	}

	var notes []Note
	if err := a.notes.Query(ctx, mode).Order("id").Find(&notes).Error; err != nil {
		return err
	}
	for i := range notes {
		state := color.GreenString("active")
		if a.notes.IsDeleted(&notes[i]) {
			state = color.RedString("deleted %s", notes[i].DeletedAt.Time.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintf(a.out, "%d\t%s\t%s\n", notes[i].ID, notes[i].Title, state)
	}
	return nil
}

// demo walks one note through soft delete, restore and hard delete.
func (a *app) demo(ctx context.Context) error {
	n := &Note{Title: "demo", Body: "soft delete walkthrough"}
	if err := a.notes.Create(ctx, n); err != nil {
		return err
	}
	a.report(ctx, "created", n.ID)

	if err := a.notes.Destroy(ctx, n); err != nil {
		return err
	}
	a.report(ctx, "destroyed", n.ID)

	deleted, err := a.notes.FindDeleted(ctx, n.ID)
	if err != nil {
		return err
	}
	if err := a.notes.Restore(ctx, deleted); err != nil {
		return err
	}
	a.report(ctx, "restored", n.ID)

	if err := a.notes.HardDelete(ctx, deleted); err != nil {
		return err
	}
	a.report(ctx, "purged", n.ID)
	return nil
}

func (a *app) report(ctx context.Context, step string, id uint) {
	active, _ := a.notes.Exists(ctx, paranoia.ModeScoped, id)
	stored, _ := a.notes.Exists(ctx, paranoia.ModeWithDeleted, id)
	fmt.Fprintf(a.out, "%-9s id=%d visible=%t stored=%t\n", step, id, active, stored)
}
