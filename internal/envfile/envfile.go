package envfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// BaseName is the file name shared by both formats, the extension picks the syntax.
const BaseName = "genai-env"

// Format selects the line syntax of an environment file.
type Format string

const (
	// FormatEnv writes KEY=value lines for dotenv style loaders.
	FormatEnv Format = "env"
	// FormatBash writes export KEY="value" lines for sourcing from a POSIX shell.
	FormatBash Format = "bash"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown env file format")

// ParseFormat converts "env" or "bash" into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatEnv, FormatBash:
		return Format(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Extension returns the file extension used for the format.
func (f Format) Extension() string {
	if f == FormatBash {
		return "sh"
	}
	return "env"
}

// FileName returns genai-env.env or genai-env.sh.
func (f Format) FileName() string {
	return BaseName + "." + f.Extension()
}

// Entry is one KEY=value line. Raw entries are never quoted.
type Entry struct {
	Key   string
	Value string
	Raw   bool
}

// File is an ordered list of entries. An entry with an empty key renders as a blank line.
type File struct {
	Entries []Entry
}

// Set appends a quotable entry.
func (f *File) Set(key, value string) *File {
	f.Entries = append(f.Entries, Entry{Key: key, Value: value})
	return f
}

// SetRaw appends an entry that is never quoted, used for booleans.
func (f *File) SetRaw(key, value string) *File {
	f.Entries = append(f.Entries, Entry{Key: key, Value: value, Raw: true})
	return f
}

// Blank appends a separator line.
func (f *File) Blank() *File {
	f.Entries = append(f.Entries, Entry{})
	return f
}

// quoteEscaper escapes the characters a shell still interprets inside double quotes.
var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

// needsQuoting reports whether an env format value must be quoted to read back unchanged.
func needsQuoting(value string) bool {
	return strings.ContainsAny(value, " \t\"'`$#\\")
}

// Render writes the file in the given format.
func (f *File) Render(w io.Writer, format Format) error {
	export := ""
	if format == FormatBash {
		export = "export "
	}

	bw := bufio.NewWriter(w)
	for _, e := range f.Entries {
		if e.Key == "" {
			if _, err := bw.WriteString("\n"); err != nil {
				return err
			}
			continue
		}

		value := e.Value
		switch {
		case e.Raw:
		case format == FormatBash || needsQuoting(value):
			value = `"` + quoteEscaper.Replace(value) + `"`
		}
		if _, err := fmt.Fprintf(bw, "%s%s=%s\n", export, e.Key, value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteFile renders the file into dir/genai-env.<ext>, replacing any previous content,
// and returns the absolute path written.
func (f *File) WriteFile(dir string, format Format) (string, error) {
	path, err := filepath.Abs(filepath.Join(dir, format.FileName()))
	if err != nil {
		return "", fmt.Errorf("failed to resolve env file path: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Render(&buf, format); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", format.FileName(), err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

// Parse reads either format back into a map. Blank lines and # comments are skipped.
func Parse(r io.Reader) (map[string]string, error) {
	values, err := godotenv.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file: %w", err)
	}
	return values, nil
}

// Load sets every value of the file at path in the process environment without
// overriding variables that are already set.
func Load(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
