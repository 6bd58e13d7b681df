package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/yhilem/distill/mimetype"
)

// sofficeBinary is the LibreOffice entry point used for legacy office
// conversion. Overridable in tests.
var sofficeBinary = "soffice"

// legacyTargets maps legacy office media types to the modern container
// they convert to.
var legacyTargets = map[string]struct {
	filter string // soffice --convert-to argument
	ext    string
	mime   string
}{
	mimetype.LegacyWord:  {filter: "docx", ext: ".docx", mime: mimetype.DOCX},
	mimetype.LegacyPPT:   {filter: "pptx", ext: ".pptx", mime: mimetype.PPTX},
	mimetype.LegacyExcel: {filter: "xlsx", ext: ".xlsx", mime: mimetype.XLSX},
}

// IsLegacyOffice reports whether mime is a legacy office type that needs
// conversion before extraction.
func IsLegacyOffice(mime string) bool {
	_, ok := legacyTargets[mime]
	return ok
}

// ConvertLegacyOffice converts legacy .doc/.ppt/.xls bytes to the modern
// ZIP container through LibreOffice. It returns the converted bytes and
// their media type. A missing soffice binary is a *MissingDependencyError.
func ConvertLegacyOffice(ctx context.Context, content []byte, mime string) ([]byte, string, error) {
	target, ok := legacyTargets[mime]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s is not a legacy office type", ErrUnsupportedFormat, mime)
	}

	if _, err := exec.LookPath(sofficeBinary); err != nil {
		return nil, "", &MissingDependencyError{
			Dependency:  "libreoffice",
			Remediation: "install LibreOffice and ensure 'soffice' is on PATH",
		}
	}

	dir, err := os.MkdirTemp("", "distill-convert-*")
	if err != nil {
		return nil, "", fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "input"+legacySourceExt(mime))
	if err := os.WriteFile(src, content, 0o600); err != nil {
		return nil, "", fmt.Errorf("writing conversion input: %w", err)
	}

	cmd := exec.CommandContext(ctx, sofficeBinary,
		"--headless", "--convert-to", target.filter, "--outdir", dir, src)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, "", fmt.Errorf("soffice conversion failed: %w (%s)", err, string(out))
	}

	converted := filepath.Join(dir, "input"+target.ext)
	data, err := os.ReadFile(converted)
	if err != nil {
		return nil, "", fmt.Errorf("reading conversion output: %w", err)
	}
	return data, target.mime, nil
}

func legacySourceExt(mime string) string {
	switch mime {
	case mimetype.LegacyWord:
		return ".doc"
	case mimetype.LegacyPPT:
		return ".ppt"
	case mimetype.LegacyExcel:
		return ".xls"
	}
	return ".bin"
}
