package main

import (
	"fmt"

	"github.com/dargueta/chainfs"
	"github.com/dargueta/chainfs/errors"
	"github.com/urfave/cli/v2"
)

var demoFiles = []struct {
	name    string
	content string
}{
	{"f1", "Pernambuco"},
	{"f2", "Sao Paulo"},
	{"f3", "Alagoas"},
}

func runDemo(context *cli.Context) error {
	store, err := openStore(context)
	if err != nil {
		return err
	}
	render, err := newRenderer(context.App.Writer, context.String("format"))
	if err != nil {
		return err
	}
	return demo(store, render)
}

func showState(store chainfs.Store, render *renderer) error {
	snapshot, err := store.Inspect()
	if err != nil {
		render.Outcome(err, "")
	}
	return render.State(snapshot)
}

// demo fills the disk with three files, shows that a fourth doesn't fit, then
// deletes one and creates the fourth in the blocks it freed.
func demo(store chainfs.Store, render *renderer) error {
	section := func(title string) {
		fmt.Fprintf(render.out, "\n=== %s ===\n", title)
	}

	section("Empty disk")
	if err := showState(store, render); err != nil {
		return err
	}

	section("Creating f1, f2 and f3")
	for _, file := range demoFiles {
		err := store.CreateFile(file.name, file.content)
		render.Outcome(err, "created %q (%d blocks)", file.name, len([]rune(file.content)))
	}
	if err := showState(store, render); err != nil {
		return err
	}

	section(`Creating f4 "Santa Catarina", which shouldn't fit`)
	err := store.CreateFile("f4", "Santa Catarina")
	if errors.Code(err) == errors.ENOSPC {
		fmt.Fprintf(render.out, "[OK] failed as expected: %s\n", err.Error())
	} else {
		render.Outcome(err, "created f4, which wasn't expected to fit")
	}

	section("Deleting f2")
	render.Outcome(store.DeleteFile("f2"), "deleted f2, %d blocks free", store.Stat().BlocksFree)
	snapshot, err := store.Inspect()
	if err != nil {
		render.Outcome(err, "")
	}
	if err = render.Directory(snapshot); err != nil {
		return err
	}
	if err = render.FreeList(snapshot); err != nil {
		return err
	}

	section(`Creating f4 "Santa Catarina" again`)
	render.Outcome(
		store.CreateFile("f4", "Santa Catarina"),
		"created f4, %d blocks free",
		store.Stat().BlocksFree,
	)
	if err = showState(store, render); err != nil {
		return err
	}

	section("Reading every file")
	snapshot, _ = store.Inspect()
	for _, file := range snapshot.Files {
		content, err := store.ReadFile(file.Name)
		render.Outcome(err, "%s: %q", file.Name, content)
	}

	section("Consistency check")
	render.Outcome(store.Check(), "no problems found")
	return nil
}
