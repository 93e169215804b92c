package tool

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"deskpilot/internal/domain"
)

// FilePackerInput names the path to package and the archive to produce.
type FilePackerInput struct {
	Path        string `json:"path" jsonschema_description:"The file or directory path to package."`
	ArchiveName string `json:"archive_name" jsonschema_description:"Base name for the produced zip archive, without extension."`
}

var filePackerInputSchema = GenerateSchema[FilePackerInput]()

// FilePackerTool zips a file or directory tree into the output directory so
// the result can be shipped elsewhere (deployment upload is left to the
// user).
type FilePackerTool struct {
	outputDir string
	logger    *slog.Logger
}

func NewFilePackerTool(outputDir string, logger *slog.Logger) *FilePackerTool {
	if outputDir == "" {
		outputDir = "."
	}
	return &FilePackerTool{outputDir: outputDir, logger: logger}
}

func (p *FilePackerTool) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:        "file_packer",
		Description: "Package files from a given path into a zip archive.",
		InputSchema: filePackerInputSchema,
	}
}

func (p *FilePackerTool) Invoke(ctx context.Context, input map[string]any) domain.ToolOutput {
	path := ArgsString(input, "path")
	name := ArgsString(input, "archive_name")
	if path == "" || name == "" {
		return domain.ErrorOutput(domain.ErrKindInvalidArgument, "both path and archive_name are required")
	}

	zipPath := filepath.Join(p.outputDir, name+".zip")
	count, err := createZip(zipPath, path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ErrorOutput("FileNotFound", fmt.Sprintf("path %q does not exist", path))
		}
		return domain.ErrorOutput(domain.ErrKindInvocationFailure, fmt.Sprintf("failed to create zip: %v", err))
	}
	p.logger.Info("packed archive", "zip", zipPath, "files", count)
	return domain.ToolOutput{JSON: map[string]any{
		"status":     "success",
		"zip_path":   zipPath,
		"file_count": count,
	}}
}

// createZip writes path (file or directory) into a deflated zip archive and
// returns the number of files written.
func createZip(zipPath, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(zipPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	count := 0

	addFile := func(src, arcname string) error {
		in, err := os.Open(src)
		if err != nil {
			return err
		}
		defer in.Close()
		w, err := zw.Create(arcname)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, in); err != nil {
			return err
		}
		count++
		return nil
	}

	if info.IsDir() {
		err = filepath.WalkDir(path, func(src string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(path, src)
			if err != nil {
				return err
			}
			return addFile(src, filepath.ToSlash(rel))
		})
	} else {
		err = addFile(path, filepath.Base(path))
	}
	if err != nil {
		zw.Close()
		return 0, err
	}
	return count, zw.Close()
}
