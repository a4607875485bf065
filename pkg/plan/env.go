package plan

import (
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

var whitespaceAssignment = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s+(\S.*)$`)

// mergeEnvFile reads the sibling .env file (if present) and merges its
// values into global, without overwriting any key the document already
// declares explicitly -- an explicit global entry always wins over the
// env file.
func mergeEnvFile(path string, global map[string]interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	normalized := normalizeDotenv(string(data))
	env, err := godotenv.Unmarshal(normalized)
	if err != nil {
		return err
	}

	for k, v := range env {
		if _, exists := global[k]; !exists {
			global[k] = v
		}
	}
	return nil
}

// normalizeDotenv rewrites legacy whitespace-separated "KEY value" lines
// into "KEY=value" so godotenv.Unmarshal (which only understands "=")
// accepts both forms.
func normalizeDotenv(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.Contains(trimmed, "=") {
			continue
		}
		if m := whitespaceAssignment.FindStringSubmatch(trimmed); m != nil {
			lines[i] = m[1] + "=" + m[2]
		}
	}
	return strings.Join(lines, "\n")
}
