package tool

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"deskpilot/internal/domain"
)

const maxReadBytes = 1 << 20

// ReadFileInput is the file_reader tool input.
type ReadFileInput struct {
	FilePath string `json:"file_path" jsonschema_description:"Absolute path to the file that needs to be read."`
}

var readFileInputSchema = GenerateSchema[ReadFileInput]()

// ReadFileTool reads a local file and returns its content to the model.
type ReadFileTool struct{}

func NewReadFileTool() *ReadFileTool { return &ReadFileTool{} }

func (r *ReadFileTool) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:        "file_reader",
		Description: "Read content from a specified file path on the local system.",
		InputSchema: readFileInputSchema,
	}
}

func (r *ReadFileTool) Invoke(ctx context.Context, input map[string]any) domain.ToolOutput {
	path := ArgsString(input, "file_path")
	if path == "" {
		return domain.ErrorOutput(domain.ErrKindInvalidArgument, "file_path is required")
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return domain.ErrorOutput("FileNotFound", fmt.Sprintf("file not found at path: %s", path))
	case errors.Is(err, fs.ErrPermission):
		return domain.ErrorOutput("PermissionDenied", fmt.Sprintf("permission denied to read file: %s", path))
	case err != nil:
		return domain.ErrorOutput(domain.ErrKindInvocationFailure, err.Error())
	}
	if info.IsDir() {
		return domain.ErrorOutput(domain.ErrKindInvalidArgument, fmt.Sprintf("%s is a directory", path))
	}
	if info.Size() > maxReadBytes {
		return domain.ErrorOutput(domain.ErrKindInvalidArgument,
			fmt.Sprintf("file %s is too large (%d bytes, limit %d)", path, info.Size(), maxReadBytes))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return domain.ErrorOutput("PermissionDenied", fmt.Sprintf("permission denied to read file: %s", path))
		}
		return domain.ErrorOutput(domain.ErrKindInvocationFailure, err.Error())
	}
	return domain.ToolOutput{JSON: map[string]any{
		"status":  "success",
		"content": string(content),
	}}
}
