package cli

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/mediadrop/internal/client/models"
	"github.com/dmitrijs2005/mediadrop/internal/client/upload"
)

var errNoFiles = errors.New("no files given")

// GetSimpleText prints a prompt to w and reads a single line from sc.
// Surrounding whitespace is trimmed.
//
// Example prompt format:
//
//	Prompt text
//	> _
func GetSimpleText(sc *bufio.Scanner, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(sc.Text()), nil
}

// GetMultiline prints a prompt to w and reads lines until an empty line or
// EOF. The collected text is joined with '\n'.
func GetMultiline(sc *bufio.Scanner, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n(press Enter on an empty line to finish)\n"); err != nil {
		return "", err
	}

	var lines []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(sc *bufio.Scanner, prompt string, w io.Writer) bool {
	answer, err := GetSimpleText(sc, prompt+" [y/N]", w)
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

type uploadRequest struct {
	files []string
	meta  models.BatchMetadata
	opts  upload.Options
}

// parseUploadArgs reads the flags of the upload command. compress and
// quality default to the configured values. A description of "-" is
// read interactively by the caller.
func parseUploadArgs(args []string, compress bool, quality float64, w io.Writer) (*uploadRequest, error) {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(w)

	req := &uploadRequest{}
	var tags string
	fs.BoolVar(&req.opts.Compress, "compress", compress, "re-encode videos before upload")
	fs.Float64Var(&req.opts.Quality, "quality", quality, "compression quality in (0, 1]")
	fs.StringVar(&req.meta.Title, "title", "", "record title, defaults to the file name")
	fs.StringVar(&req.meta.Description, "desc", "", `record description, "-" to type it`)
	fs.StringVar(&req.meta.Project, "project", "", "project name")
	fs.StringVar(&req.meta.CompanyID, "company", "", "owning company id")
	fs.StringVar(&tags, "tags", "", "comma separated tags")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	req.meta.Tags = splitTags(tags)

	files, err := expandFiles(fs.Args())
	if err != nil {
		return nil, err
	}
	req.files = files
	return req, nil
}

func splitTags(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// expandFiles resolves glob patterns and drops duplicates while keeping
// the order the user typed. Directories named explicitly are rejected,
// directories matched by a pattern are skipped.
func expandFiles(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, errNoFiles
	}

	var out []string
	seen := map[string]bool{}
	add := func(p string) error {
		fi, err := os.Stat(p)
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return fmt.Errorf("%s is a directory", p)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
		return nil
	}

	for _, pat := range patterns {
		if !strings.ContainsAny(pat, "*?[") {
			if err := add(pat); err != nil {
				return nil, err
			}
			continue
		}
		matches, err := filepath.Glob(pat)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pat, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pat)
		}
		for _, m := range matches {
			if fi, err := os.Stat(m); err == nil && fi.IsDir() {
				continue
			}
			if err := add(m); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
