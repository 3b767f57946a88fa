package validation

import (
	"strings"
	"testing"
)

func TestValidateOutputFormat(t *testing.T) {
	valid := []string{"pretty", "csv", "json"}
	for _, format := range valid {
		if err := ValidateOutputFormat(format); err != nil {
			t.Errorf("ValidateOutputFormat(%q) unexpected error = %v", format, err)
		}
	}

	// Formats are matched exactly: no trimming or case folding.
	invalid := []string{"", "yaml", "xml", "PRETTY", "Csv", " json ", "prettyprint", "summary"}
	for _, format := range invalid {
		err := ValidateOutputFormat(format)
		if err == nil {
			t.Errorf("ValidateOutputFormat(%q) expected error but got none", format)
			continue
		}
		for _, want := range valid {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q does not list supported format %s", err, want)
			}
		}
	}
}
