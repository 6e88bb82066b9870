package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Velocidex/ordereddict"
	"github.com/olekukonko/tablewriter"
	"www.velocidex.com/golang/ntfscore/parser"
)

var (
	walk_command = app.Command(
		"walk", "Walk the $MFT of an image, record by record.")

	walk_command_arg = walk_command.Arg(
		"image", "The image file to inspect",
	).Required().OpenFile(os.O_RDONLY, os.FileMode(0666))

	walk_command_offset = walk_command.Flag(
		"offset", "The byte offset of the volume within the image",
	).Default("0").Int64()

	walk_command_json = walk_command.Flag(
		"json", "Print each record's full model as JSON instead of a table row",
	).Bool()
)

func doWalk() {
	reader, err := parser.NewPagedReader(&parser.OffsetReader{
		Offset: *walk_command_offset,
		Reader: *walk_command_arg,
	}, 0x1000, 1000)
	if err != nil {
		printWalkError(err)
		os.Exit(1)
	}

	ntfs_ctx, err := parser.GetNTFSContext(reader, 0)
	if err != nil {
		printWalkError(err)
		os.Exit(1)
	}

	walker, err := ntfs_ctx.MftWalker()
	if err != nil {
		printWalkError(err)
		os.Exit(1)
	}

	var table *tablewriter.Table
	if !*walk_command_json {
		table = tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"MFT Id", "Sequence", "Allocated", "Name"})
		defer table.Render()
	}

	for {
		entry, err := walker.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			printWalkError(err)
			os.Exit(1)
		}

		// A base record's stored Base_record_reference, when set, names
		// the record it considers itself. Disagreement with the
		// self-computed reference means the volume is inconsistent.
		if stored := entry.Base_record_reference(); !entry.IsExtensionRecord() &&
			stored != 0 && stored != entry.ComputedFileReference() {
			fmt.Fprintf(os.Stderr,
				"record %d: stored file reference %#x disagrees with computed %#x\n",
				entry.Record_number(), stored, entry.ComputedFileReference())
		}

		if *walk_command_json {
			model, err := parser.ModelMFTEntry(ntfs_ctx, entry)
			if err != nil {
				printWalkError(err)
				continue
			}

			serialized, err := json.MarshalIndent(model, " ", " ")
			if err != nil {
				printWalkError(err)
				continue
			}
			fmt.Println(string(serialized))
			continue
		}

		name := ""
		if names := entry.FileName(ntfs_ctx); len(names) > 0 {
			name = names[0].Name()
		}

		table.Append([]string{
			fmt.Sprintf("%d", entry.Record_number()),
			fmt.Sprintf("%d", entry.Sequence_value()),
			fmt.Sprintf("%v", entry.Flags().IsSet("ALLOCATED")),
			name,
		})
	}

	fmt.Fprintf(os.Stderr, "Skipped %d BAAD, %d unallocated records\n",
		walker.SkippedBaad, walker.SkippedUnused)
}

// printWalkError reports a core error as one line to stderr: kind,
// record index, attribute id, and field offset. The attribute type
// code is not reported; *NtfsError does not carry it. A non-core error
// (I/O failure opening the image) is printed as-is.
func printWalkError(err error) {
	if ntfs_err, ok := err.(*parser.NtfsError); ok {
		dict := ordereddict.NewDict().
			Set("kind", ntfs_err.Kind.String()).
			Set("record_index", ntfs_err.RecordIndex).
			Set("attribute_id", ntfs_err.AttributeId).
			Set("field_offset", ntfs_err.FieldOffset)
		fmt.Fprintf(os.Stderr, "%v: %v\n", dict, ntfs_err.Error())
		return
	}

	fmt.Fprintf(os.Stderr, "%v\n", err)
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case "walk":
			doWalk()
		default:
			return false
		}
		return true
	})
}
