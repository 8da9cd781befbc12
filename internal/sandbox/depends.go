package sandbox

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// importToPackage maps a top-level Python import name to the PyPI
// package name the interpreter launcher must resolve, carried verbatim
// from the original implementation's dependency inference table.
var importToPackage = map[string]string{
	"bs4":           "beautifulsoup4",
	"cv2":           "opencv-python",
	"dotenv":        "python-dotenv",
	"fake":          "faker",
	"fitz":          "pymupdf",
	"google.cloud":  "google-cloud",
	"google.oauth2": "google-auth",
	"matplotlib":    "matplotlib",
	"numpy":         "numpy",
	"pandas":        "pandas",
	"PIL":           "pillow",
	"pyarrow":       "pyarrow",
	"pydantic":      "pydantic",
	"pygame":        "pygame",
	"pytest":        "pytest",
	"requests":      "requests",
	"scipy":         "scipy",
	"sklearn":       "scikit-learn",
	"seaborn":       "seaborn",
	"sqlalchemy":    "sqlalchemy",
	"torch":         "torch",
	"yaml":          "pyyaml",
}

var (
	scriptBlockRe = regexp.MustCompile(`(?s)# /// script\s*\n\s*#\s*dependencies\s*=\s*(\[.*?\])\s*\n\s*# ///\s*\n?`)
	depLineRe     = regexp.MustCompile(`^\s*(?:#\s*)?dependencies\s*=\s*(\[.*\])`)
	importRe      = regexp.MustCompile(`^(?:from|import)\s+([a-zA-Z0-9_]+)`)
	toolsUsageRe  = regexp.MustCompile(`\bTools\.`)
	toolsImportRe = regexp.MustCompile(`^\s*(?:from|import)\s+tools\b`)
)

// ProcessToolCode is the deterministic, idempotent dependency
// pre-processor described in spec §4.4: it normalizes every dependency
// declaration the model might have emitted into one canonical leading
// directive block, and injects the tool-proxy import when the source
// references Tools. without importing it.
func ProcessToolCode(code string) string {
	packages := make(map[string]struct{})

	matches := scriptBlockRe.FindAllStringSubmatch(code, -1)
	if len(matches) > 0 {
		last := matches[len(matches)-1]
		addJSONArray(packages, last[1])
		code = scriptBlockRe.ReplaceAllString(code, "")
	}

	lines := strings.Split(code, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if m := depLineRe.FindStringSubmatch(line); m != nil {
			addJSONArray(packages, m[1])
			continue
		}
		cleaned = append(cleaned, line)
	}

	delete(packages, "tools")

	bodyForCheck := strings.Join(cleaned, "\n")
	if toolsUsageRe.MatchString(bodyForCheck) {
		packages["requests"] = struct{}{}

		imported := false
		for _, line := range cleaned {
			if toolsImportRe.MatchString(line) {
				imported = true
				break
			}
		}
		if !imported {
			const importStmt = "from tools import Tools, MCPToolError"
			lastImport := -1
			for i := len(cleaned) - 1; i >= 0; i-- {
				trimmed := strings.TrimSpace(cleaned[i])
				if strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "from ") {
					lastImport = i
					break
				}
			}
			if lastImport != -1 {
				cleaned = insertAt(cleaned, lastImport+1, importStmt)
			} else {
				pos := 0
				if len(cleaned) > 0 && strings.HasPrefix(cleaned[0], "#!") {
					pos = 1
				}
				cleaned = insertAt(cleaned, pos, importStmt)
			}
		}
	}

	for _, line := range cleaned {
		if m := importRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			top := strings.SplitN(m[1], ".", 2)[0]
			if pkg, ok := importToPackage[top]; ok {
				packages[pkg] = struct{}{}
			}
		}
	}

	finalBody := strings.Join(cleaned, "\n")

	if len(packages) == 0 {
		return strings.TrimSpace(finalBody)
	}

	names := make([]string, 0, len(packages))
	for p := range packages {
		names = append(names, p)
	}
	sort.Strings(names)
	depJSON, _ := json.Marshal(names)

	block := "# /// script\n# dependencies = " + string(depJSON) + "\n# ///\n" + finalBody
	return strings.TrimSpace(block)
}

func addJSONArray(set map[string]struct{}, jsonArray string) {
	var names []string
	if err := json.Unmarshal([]byte(jsonArray), &names); err != nil {
		return
	}
	for _, n := range names {
		set[n] = struct{}{}
	}
}

func insertAt(lines []string, pos int, line string) []string {
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:pos]...)
	out = append(out, line)
	out = append(out, lines[pos:]...)
	return out
}
