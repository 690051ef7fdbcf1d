package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/mpak"
)

var packCmd = &cobra.Command{
	Use:     "pack PATH...",
	Aliases: []string{"p"},
	Short:   "Create an archive from the given paths",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runPack,
}

var unpackCmd = &cobra.Command{
	Use:     "unpack ARCHIVE...",
	Aliases: []string{"u"},
	Short:   "Unpack every archive given",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runUnpack,
}

var getCmd = &cobra.Command{
	Use:     "get ARCHIVE ENTRY...",
	Aliases: []string{"g"},
	Short:   "Extract specific entries from an archive",
	Args:    cobra.MinimumNArgs(2),
	RunE:    runGet,
}

var scanCmd = &cobra.Command{
	Use:     "scan ARCHIVE...",
	Aliases: []string{"s"},
	Short:   "Print the path of every entry in each archive",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runScan,
}

func runPack(cmd *cobra.Command, args []string) error {
	if compress {
		logger.Warn("compression is reserved and currently has no effect")
	}

	out := outputPath
	if out == "" {
		var err error
		if out, err = defaultPackOutput(); err != nil {
			return err
		}
	}
	out = withExt(out, ".mpk")

	tags := map[string]string{"packer": "mpak/" + version}
	if err := mpak.PackFile(cmd.Context(), out, args,
		mpak.PackWithTags(tags),
		mpak.PackWithLogger(slogger),
	); err != nil {
		return fmt.Errorf("pack %s: %w", out, err)
	}
	logger.Info("archive created", "path", out)
	return nil
}

func runUnpack(cmd *cobra.Command, args []string) error {
	// Per-archive failures are reported and the batch continues.
	for _, archivePath := range args {
		out := outputPath
		if out == "" {
			out = archiveSiblingDir(archivePath)
		}

		a, err := openArchive(archivePath)
		if err != nil {
			logger.Error("skipping archive", "path", archivePath, "error", err)
			continue
		}
		if err := a.Unpack(cmd.Context(), out); err != nil {
			logger.Error("unpack failed", "path", archivePath, "error", err)
		}
		a.Close()
	}
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	archivePath, entries := args[0], args[1:]

	out := outputPath
	if out == "" {
		out = archiveSiblingDir(archivePath)
	}
	if err := os.MkdirAll(out, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	a, err := openArchive(archivePath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer a.Close()

	for _, entry := range entries {
		if err := extractEntry(cmd, a, out, entry); err != nil {
			logger.Error("failed to extract entry", "entry", entry, "error", err)
		}
	}
	return nil
}

func extractEntry(cmd *cobra.Command, a *mpak.Archive, out, entry string) error {
	dest := filepath.Join(out, filepath.FromSlash(entry))
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	extractErr := a.Extract(cmd.Context(), entry, f)
	if closeErr := f.Close(); extractErr == nil {
		extractErr = closeErr
	}
	return extractErr
}

func runScan(cmd *cobra.Command, args []string) error {
	for _, archivePath := range args {
		a, err := openArchive(archivePath)
		if err != nil {
			logger.Error("skipping archive", "path", archivePath, "error", err)
			continue
		}
		for _, path := range a.List() {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		a.Close()
	}
	return nil
}

// openArchive opens a container with CLI diagnostics wired in. A
// version mismatch additionally names the running tool's version, since
// the usual fix is upgrading the tool.
func openArchive(path string) (*mpak.Archive, error) {
	a, err := mpak.OpenFile(path, mpak.WithLogger(slogger))
	if errors.Is(err, mpak.ErrUnsupportedVersion) {
		return nil, fmt.Errorf("%w (this is mpak %s)", err, version)
	}
	return a, err
}

// defaultPackOutput names the archive after the working directory, in
// the working directory.
func defaultPackOutput() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	name := filepath.Base(cwd)
	if name == string(filepath.Separator) || name == "." {
		name = "Archive"
	}
	return filepath.Join(cwd, name), nil
}

// archiveSiblingDir is the default output directory for an archive:
// a directory next to it named after its stem.
func archiveSiblingDir(archivePath string) string {
	stem := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
	if stem == "" {
		stem = "Archive"
	}
	return filepath.Join(filepath.Dir(archivePath), stem)
}

// withExt replaces any existing extension on path with ext.
func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
