package main

import (
	goerrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dargueta/chainfs"
)

const menuText = `
  1) Create a file
  2) Read a file
  3) Delete a file
  4) Show disk state
  5) Check consistency
  0) Exit
`

// lineReader is the part of [readline.Instance] the shell uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// errQuit means the user closed the input or hit ^C at a prompt.
var errQuit = goerrors.New("quit")

// shell is the interactive menu. It only collects input and prints results;
// all the work is done by the store.
type shell struct {
	store  chainfs.Store
	input  lineReader
	render *renderer
}

func (s *shell) ask(prompt string) (string, error) {
	s.input.SetPrompt(prompt)
	line, err := s.input.Readline()
	if err == io.EOF || err == readline.ErrInterrupt {
		return "", errQuit
	}
	return line, err
}

// fileNames lists the files in the store, for tab completion.
func (s *shell) fileNames(string) []string {
	// A damaged store still gives a snapshot; the error doesn't matter here.
	snapshot, _ := s.store.Inspect()
	names := make([]string, len(snapshot.Files))
	for i, file := range snapshot.Files {
		names[i] = file.Name
	}
	return names
}

// Run shows the menu until the user exits or the input ends.
func (s *shell) Run() error {
	out := s.render.out
	if err := s.render.Stat(s.store.Stat()); err != nil {
		return err
	}

	for {
		fmt.Fprint(out, menuText)
		choice, err := s.ask("chainfs> ")
		if err == nil {
			err = s.dispatch(strings.TrimSpace(choice))
		}

		if err == errQuit {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		} else if err != nil {
			return err
		}
	}
}

func (s *shell) dispatch(choice string) error {
	switch choice {
	case "":
		return nil
	case "1":
		return s.createFile()
	case "2":
		return s.readFile()
	case "3":
		return s.deleteFile()
	case "4":
		return s.show()
	case "5":
		s.check()
		return nil
	case "0", "q", "quit", "exit":
		return errQuit
	default:
		fmt.Fprintf(s.render.out, "Unknown option %q\n", choice)
		return nil
	}
}

func (s *shell) createFile() error {
	name, err := s.ask("name: ")
	if err != nil {
		return err
	}
	content, err := s.ask("content: ")
	if err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	err = s.store.CreateFile(name, content)
	s.render.Outcome(err, "created %q, %d blocks free", name, s.store.Stat().BlocksFree)
	return nil
}

func (s *shell) readFile() error {
	name, err := s.ask("name: ")
	if err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	content, err := s.store.ReadFile(name)
	s.render.Outcome(err, "%s: %q", name, content)
	return nil
}

func (s *shell) deleteFile() error {
	name, err := s.ask("name: ")
	if err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	err = s.store.DeleteFile(name)
	s.render.Outcome(err, "deleted %q, %d blocks free", name, s.store.Stat().BlocksFree)
	return nil
}

func (s *shell) show() error {
	snapshot, err := s.store.Inspect()
	if err != nil {
		s.render.Outcome(err, "")
	}
	return s.render.State(snapshot)
}

func (s *shell) check() {
	s.render.Outcome(s.store.Check(), "no problems found")
}
