package derive

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Media classes a converter profile can accept.
const (
	ClassAudio = "audio"
	ClassVideo = "video"
	ClassPDF   = "pdf"
)

// Profile is one named transcoding target: an output path template
// (folder + extension) paired with an external-tool argument template.
// Profiles are configuration, not code; the defaults below can be
// replaced or extended at config load.
type Profile struct {
	// Key identifies the profile, e.g. "mp4", "webm", "mp3".
	Key string `json:"key"`

	// MediaClass is "audio", "video" or "pdf" and controls which input
	// MIME types the profile accepts.
	MediaClass string `json:"media_class"`

	// Folder is the derivative sub-directory, e.g. "webm" or "pdfs".
	Folder string `json:"folder"`

	// Extension is the output file extension without the dot.
	Extension string `json:"extension"`

	// Tool is the converter binary. Empty means ffmpeg.
	Tool string `json:"tool,omitempty"`

	// Args is the argument template. The {input} and {output}
	// placeholders are substituted per argument, so paths stay atomic
	// argv entries.
	Args []string `json:"args"`
}

// BuildArgs substitutes the path placeholders into the template.
// Substitution happens inside individual arguments; no argument is ever
// split or joined, which keeps attacker-controlled filenames inert.
func (p Profile) BuildArgs(inputPath, outputPath string) []string {
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		a = strings.ReplaceAll(a, "{input}", inputPath)
		a = strings.ReplaceAll(a, "{output}", outputPath)
		args[i] = a
	}
	return args
}

// SupportsMediaType reports whether the profile accepts an input MIME
// type. Audio profiles also accept video inputs (audio extraction).
func (p Profile) SupportsMediaType(mediaType string) bool {
	switch p.MediaClass {
	case ClassVideo:
		return strings.HasPrefix(mediaType, "video/")
	case ClassAudio:
		return strings.HasPrefix(mediaType, "audio/") || strings.HasPrefix(mediaType, "video/")
	case ClassPDF:
		return mediaType == "application/pdf"
	default:
		return false
	}
}

// ProfileTable indexes profiles by key.
type ProfileTable map[string]Profile

// NewProfileTable builds a table from profile lists, later lists
// overriding earlier entries with the same key.
func NewProfileTable(lists ...[]Profile) ProfileTable {
	t := make(ProfileTable)
	for _, list := range lists {
		for _, p := range list {
			t[p.Key] = p
		}
	}
	return t
}

// Lookup returns the profile for a format key.
func (t ProfileTable) Lookup(key string) (Profile, bool) {
	p, ok := t[key]
	return p, ok
}

// DefaultVideoProfiles returns the stock video conversion targets.
func DefaultVideoProfiles() []Profile {
	return []Profile{
		{
			Key: "mp4", MediaClass: ClassVideo, Folder: "mp4", Extension: "mp4",
			Args: []string{
				"-y", "-i", "{input}",
				"-c:v", "libx264", "-preset", "fast", "-movflags", "+faststart",
				"-c:a", "aac",
				"{output}",
			},
		},
		{
			Key: "webm", MediaClass: ClassVideo, Folder: "webm", Extension: "webm",
			Args: []string{
				"-y", "-i", "{input}",
				"-c:v", "libvpx-vp9", "-b:v", "0", "-crf", "30",
				"-c:a", "libopus",
				"{output}",
			},
		},
	}
}

// DefaultAudioProfiles returns the stock audio conversion targets.
func DefaultAudioProfiles() []Profile {
	return []Profile{
		{
			Key: "mp3", MediaClass: ClassAudio, Folder: "mp3", Extension: "mp3",
			Args: []string{
				"-y", "-i", "{input}",
				"-vn", "-c:a", "libmp3lame", "-q:a", "2",
				"{output}",
			},
		},
		{
			Key: "ogg", MediaClass: ClassAudio, Folder: "ogg", Extension: "ogg",
			Args: []string{
				"-y", "-i", "{input}",
				"-vn", "-c:a", "libvorbis", "-q:a", "5",
				"{output}",
			},
		},
	}
}

// DefaultPDFProfiles returns the stock PDF optimization targets.
func DefaultPDFProfiles() []Profile {
	return []Profile{
		{
			Key: "pdf", MediaClass: ClassPDF, Folder: "pdfs", Extension: "pdf", Tool: "gs",
			Args: []string{
				"-sDEVICE=pdfwrite",
				"-dCompatibilityLevel=1.7",
				"-dPDFSETTINGS=/screen",
				"-dNOPAUSE", "-dQUIET", "-dBATCH",
				"-sOutputFile={output}",
				"{input}",
			},
		},
	}
}

// Converter executes a profile against a source file.
type Converter interface {
	Convert(ctx context.Context, p Profile, sourcePath, outputPath string) error
}

// ToolConverter runs profiles through their external binaries.
type ToolConverter struct {
	// DefaultTool is used when a profile names no tool.
	defaultTool string
	runner      commandRunner
}

var _ Converter = (*ToolConverter)(nil)

// NewToolConverter creates a converter. defaultTool is typically the
// configured ffmpeg path; timeout bounds one conversion.
func NewToolConverter(defaultTool string, timeout time.Duration) *ToolConverter {
	if defaultTool == "" {
		defaultTool = "ffmpeg"
	}
	return &ToolConverter{
		defaultTool: defaultTool,
		runner:      newExecRunner(timeout),
	}
}

// Convert runs the profile's tool and verifies the output holds bytes.
func (c *ToolConverter) Convert(ctx context.Context, p Profile, sourcePath, outputPath string) error {
	tool := p.Tool
	if tool == "" {
		tool = c.defaultTool
	}

	res, err := c.runner.Run(ctx, tool, p.BuildArgs(sourcePath, outputPath))
	if err != nil {
		if isToolMissing(err) {
			return wrapError(FailToolMissing, fmt.Sprintf("converter binary %s not found", tool), err)
		}
		return &Error{
			Kind:     FailToolExecution,
			Detail:   fmt.Sprintf("conversion of %s with profile %q failed", sourcePath, p.Key),
			ExitCode: res.ExitCode,
			Output:   string(res.Output),
			Err:      err,
		}
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		return &Error{
			Kind:   FailEmptyOutput,
			Detail: fmt.Sprintf("conversion of %s with profile %q produced no bytes", sourcePath, p.Key),
			Output: string(res.Output),
		}
	}
	return nil
}
