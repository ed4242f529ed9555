package main

import (
	"io"
	"os"
	"strconv"

	"github.com/andreyvit/bytestore"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdDump = &cobra.Command{
	Use:   "dump [flags] FILE",
	Short: "Write the bytes of a region or one of its parts",
	Long: `
The "dump" command writes the raw bytes of a region to standard output or to
the file given by --output. With --layout split or multi, --part selects the
part to write ("a"/"b" or 0/1 for split regions, the part number for
multi-regions). With --zstd the output is zstd-compressed.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDump(dumpOptions, args[0], cmd.OutOrStdout())
	},
}

// DumpOptions bundles all options for the dump command.
type DumpOptions struct {
	SourceOptions
	Part   string
	Output string
	Zstd   bool
	Level  int
}

var dumpOptions DumpOptions

func init() {
	cmdRoot.AddCommand(cmdDump)

	f := cmdDump.Flags()
	dumpOptions.addFlags(f)
	f.StringVar(&dumpOptions.Part, "part", "", "part to write (default: the whole region)")
	f.StringVarP(&dumpOptions.Output, "output", "o", "", "write to `file` instead of standard output")
	f.BoolVar(&dumpOptions.Zstd, "zstd", false, "compress the output with zstd")
	f.IntVar(&dumpOptions.Level, "level", 3, "zstd compression `level` (1-22)")
}

func runDump(opts DumpOptions, path string, stdout io.Writer) (err error) {
	if err := opts.validate(); err != nil {
		return err
	}
	s, err := openSource(path, opts.SourceOptions)
	if err != nil {
		return err
	}
	defer s.close()

	b, err := selectPart(s, opts.Part)
	if err != nil {
		return err
	}
	data, err := b.Read(0, b.Len())
	if err != nil {
		return errors.Wrap(err, "Read")
	}

	w := stdout
	if opts.Output != "" {
		f, cerr := os.Create(opts.Output)
		if cerr != nil {
			return errors.Wrap(cerr, "create output")
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = errors.Wrap(cerr, "close output")
			}
		}()
		w = f
	}

	if !opts.Zstd {
		_, err = w.Write(data)
		return errors.Wrap(err, "write")
	}
	enc, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.Level)),
		zstd.WithEncoderCRC(true))
	if err != nil {
		return errors.Wrap(err, "zstd.NewWriter")
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return errors.Wrap(err, "zstd write")
	}
	return errors.Wrap(enc.Close(), "zstd close")
}

func selectPart(s *source, part string) (bytestore.Backend, error) {
	switch {
	case part == "":
		return s.body, nil
	case s.split != nil:
		switch part {
		case "a", "0":
			return s.split.First(), nil
		case "b", "1":
			return s.split.Second(), nil
		}
		return nil, errors.Errorf("split regions have parts a and b, got %q", part)
	case s.multi != nil:
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.Wrapf(err, "part %q", part)
		}
		return s.multi.Part(id)
	default:
		return nil, errors.New("--part needs --layout split or multi")
	}
}
