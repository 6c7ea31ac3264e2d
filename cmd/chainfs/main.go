package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/dargueta/chainfs/common/freelist"
	"github.com/dargueta/chainfs/disks"
	"github.com/dargueta/chainfs/drivers/linked"
	"github.com/dargueta/chainfs/utilities/log"
	"github.com/urfave/cli/v2"
)

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %s\n", err.Error())
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "chainfs",
		Usage: "Simulate a file system that stores files as chains of linked blocks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Value:   disks.DefaultProfileSlug,
				Usage:   "predefined disk to start from (see `chainfs profiles`)",
				EnvVars: []string{"CHAINFS_PROFILE"},
			},
			&cli.UintFlag{
				Name:  "blocks",
				Usage: "number of blocks on the disk, overriding the profile",
			},
			&cli.UintFlag{
				Name:  "payload-bits",
				Usage: "width of one block's character, 8 or 16, overriding the profile",
			},
			&cli.UintFlag{
				Name:  "max-name-length",
				Usage: "longest file name allowed, 0 for no limit, overriding the profile",
			},
			&cli.StringFlag{
				Name:  "reclaim",
				Usage: "where freed blocks go in the free list: prepend or append",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "debug, info, warn, error or off",
				EnvVars: []string{"CHAINFS_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "format",
				Value: formatText,
				Usage: "how to print tables: text or csv",
			},
		},
		Action: runShell,
		Commands: []*cli.Command{
			{
				Name:   "shell",
				Usage:  "Create, read and delete files interactively (default)",
				Action: runShell,
			},
			{
				Name:   "demo",
				Usage:  "Fill the disk, run out of space, free some and try again",
				Action: runDemo,
			},
			{
				Name:   "profiles",
				Usage:  "List the predefined disks",
				Action: listProfiles,
			},
		},
	}
}

// openStore builds an empty store from the selected profile and any flags
// overriding it.
func openStore(context *cli.Context) (*linked.Driver, error) {
	profile, err := disks.GetPredefinedProfile(context.String("profile"))
	if err != nil {
		return nil, err
	}

	options, err := linked.OptionsFromProfile(profile)
	if err != nil {
		return nil, err
	}
	if context.IsSet("blocks") {
		options.TotalBlocks = context.Uint("blocks")
	}
	if context.IsSet("payload-bits") {
		options.PayloadBits = context.Uint("payload-bits")
	}
	if context.IsSet("max-name-length") {
		options.MaxNameLength = context.Uint("max-name-length")
	}
	if context.IsSet("reclaim") {
		options.ReclaimPolicy, err = freelist.ParseReclaimPolicy(context.String("reclaim"))
		if err != nil {
			return nil, err
		}
	}

	level, err := log.ParseLevel(context.String("log-level"))
	if err != nil {
		return nil, err
	}
	options.Logger = log.NewStandardLogger(
		log.WithLevel(level), log.WithOutput(context.App.ErrWriter))

	return linked.New(options)
}

func runShell(context *cli.Context) error {
	store, err := openStore(context)
	if err != nil {
		return err
	}
	render, err := newRenderer(context.App.Writer, context.String("format"))
	if err != nil {
		return err
	}

	session := &shell{store: store, render: render}
	input, err := readline.NewEx(&readline.Config{
		Prompt:          "chainfs> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".chainfs_history"),
		AutoComplete:    readline.NewPrefixCompleter(readline.PcItemDynamic(session.fileNames)),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          context.App.Writer,
	})
	if err != nil {
		return err
	}
	defer input.Close()

	session.input = input
	return session.Run()
}

func listProfiles(context *cli.Context) error {
	render, err := newRenderer(context.App.Writer, context.String("format"))
	if err != nil {
		return err
	}
	return render.Profiles(disks.ListProfiles())
}
