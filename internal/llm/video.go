package llm

import "context"

// VideoStatus is the state of a long-running video generation.
type VideoStatus struct {
	Done bool
	URI  string
}

// VideoGenerator is implemented by backends that render short videos from a
// prompt as a long-running operation.
type VideoGenerator interface {
	// StartVideo begins generation and returns an operation name.
	StartVideo(ctx context.Context, prompt string) (string, error)
	// CheckVideo reports progress. A finished operation without a video, or
	// a failed one, returns Done with an error.
	CheckVideo(ctx context.Context, operation string) (VideoStatus, error)
	// DownloadVideo fetches the rendered file.
	DownloadVideo(ctx context.Context, uri string) ([]byte, error)
}

// ImageGenerator renders a single image from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}
