package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode"

	"github.com/dargueta/chainfs"
	"github.com/dargueta/chainfs/common"
	"github.com/dargueta/chainfs/disks"
	"github.com/dargueta/chainfs/drivers/linked"
	"github.com/dargueta/chainfs/errors"
	"github.com/gocarina/gocsv"
)

const (
	formatText = "text"
	formatCSV  = "csv"
)

type blockRow struct {
	Block   uint16 `csv:"block"`
	Payload uint16 `csv:"payload"`
	Char    string `csv:"char"`
	Next    string `csv:"next"`
	Owner   string `csv:"owner"`
	Free    bool   `csv:"free"`
}

type fileRow struct {
	Name   string `csv:"name"`
	Head   string `csv:"head"`
	Length uint   `csv:"length"`
	Blocks string `csv:"blocks"`
}

// renderer prints store state either as aligned text tables or as CSV.
type renderer struct {
	out    io.Writer
	format string
}

func newRenderer(out io.Writer, format string) (*renderer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != formatText && format != formatCSV {
		return nil, errors.NewWithMessage(
			errors.EINVAL,
			fmt.Sprintf("unknown output format %q; expected %q or %q", format, formatText, formatCSV),
		)
	}
	return &renderer{out: out, format: format}, nil
}

// displayChar shows a payload as the character it holds. Empty blocks show
// nothing and unprintable characters show their code point.
func displayChar(payload common.Payload) string {
	if payload == common.EmptyPayload {
		return ""
	}
	char := rune(payload)
	if unicode.IsPrint(char) {
		return string(char)
	}
	return fmt.Sprintf("U+%04X", payload)
}

func formatChain(chain []common.BlockID) string {
	parts := make([]string, 0, len(chain)+1)
	for _, id := range chain {
		parts = append(parts, linked.FormatBlockID(id))
	}
	parts = append(parts, linked.FormatBlockID(common.None))
	return strings.Join(parts, " -> ")
}

func (r *renderer) writeCSV(rows interface{}) error {
	text, err := gocsv.MarshalString(rows)
	if err != nil {
		return errors.NewFromError(errors.EIO, err)
	}
	_, err = io.WriteString(r.out, text)
	return err
}

// Blocks prints one row per block in the arena.
func (r *renderer) Blocks(snapshot chainfs.Snapshot) error {
	rows := make([]blockRow, len(snapshot.Blocks))
	for i, block := range snapshot.Blocks {
		owner := block.Owner
		if block.Free {
			owner = "(free)"
		} else if owner == "" {
			owner = "(lost)"
		}
		rows[i] = blockRow{
			Block:   uint16(block.Index),
			Payload: uint16(block.Payload),
			Char:    displayChar(block.Payload),
			Next:    linked.FormatBlockID(block.Next),
			Owner:   owner,
			Free:    block.Free,
		}
	}

	if r.format == formatCSV {
		return r.writeCSV(&rows)
	}

	writer := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "BLOCK\tDATA\tCHAR\tNEXT\tOWNER")
	for _, row := range rows {
		fmt.Fprintf(
			writer, "%d\t%d\t%s\t%s\t%s\n", row.Block, row.Payload, row.Char, row.Next, row.Owner)
	}
	return writer.Flush()
}

// Directory prints the directory table in creation order.
func (r *renderer) Directory(snapshot chainfs.Snapshot) error {
	rows := make([]fileRow, len(snapshot.Files))
	for i, file := range snapshot.Files {
		rows[i] = fileRow{
			Name:   file.Name,
			Head:   linked.FormatBlockID(file.Head),
			Length: file.Length,
			Blocks: formatChain(file.Blocks),
		}
	}

	if r.format == formatCSV {
		return r.writeCSV(&rows)
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(r.out, "Directory: (empty)")
		return err
	}

	fmt.Fprintln(r.out, "Directory:")
	writer := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tHEAD\tLENGTH")
	for _, row := range rows {
		fmt.Fprintf(writer, "%s\t%s\t%d\n", row.Name, row.Head, row.Length)
	}
	return writer.Flush()
}

// FreeList prints the free chain from its head.
func (r *renderer) FreeList(snapshot chainfs.Snapshot) error {
	_, err := fmt.Fprintf(
		r.out,
		"Free list (%d blocks): %s\n",
		snapshot.FreeCount,
		formatChain(snapshot.FreeBlocks),
	)
	return err
}

// State prints everything: the blocks, the directory and the free list.
func (r *renderer) State(snapshot chainfs.Snapshot) error {
	err := r.Blocks(snapshot)
	if err != nil {
		return err
	}
	if err = r.Directory(snapshot); err != nil {
		return err
	}
	if r.format == formatCSV {
		return nil
	}
	if err = r.FreeList(snapshot); err != nil {
		return err
	}
	_, err = fmt.Fprintf(r.out, "Image checksum: %016x\n", snapshot.Checksum)
	return err
}

func (r *renderer) Stat(stat chainfs.FSStat) error {
	maxName := "unlimited"
	if stat.MaxNameLength > 0 {
		maxName = fmt.Sprintf("%d", stat.MaxNameLength)
	}
	_, err := fmt.Fprintf(
		r.out,
		"%d blocks (%d used, %d free), %d files, %d-bit blocks, names up to %s characters\n",
		stat.TotalBlocks,
		stat.BlocksUsed,
		stat.BlocksFree,
		stat.Files,
		stat.PayloadBits,
		maxName,
	)
	return err
}

func (r *renderer) Profiles(profiles []disks.Profile) error {
	if r.format == formatCSV {
		return r.writeCSV(&profiles)
	}

	writer := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "SLUG\tBLOCKS\tBITS\tMAX NAME\tRECLAIM\tDESCRIPTION")
	for _, profile := range profiles {
		maxName := "-"
		if profile.MaxNameLength > 0 {
			maxName = fmt.Sprintf("%d", profile.MaxNameLength)
		}
		fmt.Fprintf(
			writer,
			"%s\t%d\t%d\t%s\t%s\t%s\n",
			profile.Slug,
			profile.TotalBlocks,
			profile.PayloadBits,
			maxName,
			profile.ReclaimPolicy,
			profile.Notes,
		)
	}
	return writer.Flush()
}

// Outcome prints the result of one store operation.
func (r *renderer) Outcome(err error, success string, args ...interface{}) {
	if err != nil {
		fmt.Fprintf(r.out, "[ERROR] %s\n", err.Error())
		return
	}
	fmt.Fprintf(r.out, "[OK] "+success+"\n", args...)
}
