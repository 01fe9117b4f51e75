package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/flytam/filenamify"
	"github.com/google/uuid"

	"timelapse/internal/fileutil"
	"timelapse/internal/frames"
	"timelapse/internal/services"
)

const (
	framesDirName = "frames"
	manifestName  = "filelist.txt"
	outputName    = "output.mp4"

	filenameReplacement = "_"
	maxFilenameBytes    = 255
)

// Layout maps job ids onto the storage tree:
//
//	<root>/<jobID>/frames/       uploaded images
//	<root>/<jobID>/filelist.txt  transient encode manifest
//	<root>/<jobID>/output.mp4    encoded video
type Layout struct {
	Root string
}

// New returns a layout rooted at root.
func New(root string) Layout {
	return Layout{Root: root}
}

// ValidateJobID accepts only canonical lowercase uuids, which keeps ids from
// escaping the storage root.
func ValidateJobID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return services.Wrap(services.ErrValidation, "staging", "validate job id",
			fmt.Sprintf("invalid job id %q", id), nil)
	}
	return nil
}

func (l Layout) JobDir(id string) string       { return filepath.Join(l.Root, id) }
func (l Layout) FramesDir(id string) string    { return filepath.Join(l.Root, id, framesDirName) }
func (l Layout) ManifestPath(id string) string { return filepath.Join(l.Root, id, manifestName) }
func (l Layout) OutputPath(id string) string   { return filepath.Join(l.Root, id, outputName) }

// Create allocates a new job id with an empty frames directory.
func (l Layout) Create() (string, error) {
	id := uuid.NewString()
	if err := os.MkdirAll(l.FramesDir(id), 0o755); err != nil {
		return "", fmt.Errorf("create job directory: %w", err)
	}
	return id, nil
}

// Exists reports whether the job's frames directory is present.
func (l Layout) Exists(id string) bool {
	if ValidateJobID(id) != nil {
		return false
	}
	info, err := os.Stat(l.FramesDir(id))
	return err == nil && info.IsDir()
}

// Ingest stores one uploaded file under the job's frames directory. Files
// without an image extension are skipped and reported with ok=false.
func (l Layout) Ingest(id, name string, r io.Reader) (stored string, ok bool, err error) {
	if err := l.requireJob(id); err != nil {
		return "", false, err
	}
	clean := SanitizeFilename(name)
	if clean == "" || !frames.IsImage(clean) {
		return "", false, nil
	}
	if _, err := fileutil.WriteStream(filepath.Join(l.FramesDir(id), clean), r, 0o644); err != nil {
		return "", false, fmt.Errorf("store %s: %w", clean, err)
	}
	return clean, true, nil
}

// IngestFiles copies local image files into the job's frames directory and
// returns the stored names. Non-image paths are skipped.
func (l Layout) IngestFiles(id string, paths []string) ([]string, error) {
	if err := l.requireJob(id); err != nil {
		return nil, err
	}
	stored := make([]string, 0, len(paths))
	for _, path := range paths {
		clean := SanitizeFilename(filepath.Base(path))
		if clean == "" || !frames.IsImage(clean) {
			continue
		}
		if err := fileutil.CopyFile(path, filepath.Join(l.FramesDir(id), clean)); err != nil {
			return stored, fmt.Errorf("copy %s: %w", path, err)
		}
		stored = append(stored, clean)
	}
	return stored, nil
}

// Frames lists the job's images in playback order.
func (l Layout) Frames(id string) ([]string, error) {
	if err := l.requireJob(id); err != nil {
		return nil, err
	}
	return frames.List(l.FramesDir(id))
}

// Preview returns the index-th frame in playback order with its content type.
func (l Layout) Preview(id string, index int) (string, string, error) {
	names, err := l.Frames(id)
	if err != nil {
		return "", "", err
	}
	if index < 0 || index >= len(names) {
		return "", "", services.Wrap(services.ErrNotFound, "staging", "preview",
			fmt.Sprintf("frame %d out of range (%d frames)", index, len(names)), nil)
	}
	name := names[index]
	return filepath.Join(l.FramesDir(id), name), ContentType(name), nil
}

// Output returns the encoded video path if it exists.
func (l Layout) Output(id string) (string, error) {
	if err := ValidateJobID(id); err != nil {
		return "", err
	}
	path := l.OutputPath(id)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", services.Wrap(services.ErrNotFound, "staging", "output",
			fmt.Sprintf("no output for job %s", id), nil)
	}
	return path, nil
}

// Cleanup removes the job directory. Removing a missing job is not an error.
func (l Layout) Cleanup(id string) error {
	if err := ValidateJobID(id); err != nil {
		return err
	}
	if err := os.RemoveAll(l.JobDir(id)); err != nil {
		return fmt.Errorf("remove job directory: %w", err)
	}
	return nil
}

func (l Layout) requireJob(id string) error {
	if err := ValidateJobID(id); err != nil {
		return err
	}
	if !l.Exists(id) {
		return services.Wrap(services.ErrNotFound, "staging", "lookup",
			fmt.Sprintf("job %s not found", id), nil)
	}
	return nil
}

// ContentType maps a frame file name to the MIME type served for previews.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// SanitizeFilename reduces a client-supplied name to a safe base name:
// directory components are dropped, reserved and control characters become
// "_", and leading dots are removed so uploads never create hidden files.
// It returns "" when nothing usable remains.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "." || base == ".." || base == "/" {
		return ""
	}
	clean, err := filenamify.Filenamify(base, filenamify.Options{
		Replacement: filenameReplacement,
		MaxLength:   maxFilenameBytes,
	})
	if err != nil {
		return ""
	}
	clean = strings.TrimLeft(strings.TrimSpace(clean), ".")
	return strings.TrimSpace(clean)
}
