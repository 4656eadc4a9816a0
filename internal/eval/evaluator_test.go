package eval

import "testing"

func TestCompareSQLAnswerExactAndTolerance(t *testing.T) {
	tests := []struct {
		name      string
		submitted string
		expected  string
		want      bool
	}{
		{"exact single value", "42", "42", true},
		{"within 1% tolerance", "100.5", "100", true},
		{"outside tolerance", "105", "100", false},
		{"percentage normalization", "12.3%", "12.3", true},
		{"comma thousands separator", "1,234", "1234", true},
		{"null as zero", "NULL", "0", true},
		{"case insensitive null", "none", "0", true},
		{"set equality ignoring order", "b,a", "a,b", true},
		{"different lengths not matching", "a,b,c", "a,b", false},
		{"non-numeric exact match", "hello", "hello", true},
		{"non-numeric mismatch", "hello", "world", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CompareSQLAnswer(tc.submitted, tc.expected)
			if got != tc.want {
				t.Errorf("CompareSQLAnswer(%q, %q) = %v, want %v", tc.submitted, tc.expected, got, tc.want)
			}
		})
	}
}

func TestCompareMutationHashCaseInsensitive(t *testing.T) {
	if !CompareMutationHash("ABCDEF", "abcdef") {
		t.Error("expected case-insensitive hash match")
	}
	if CompareMutationHash("abcdef", "123456") {
		t.Error("expected mismatched hashes to fail")
	}
}

func TestMatchOSAnswer(t *testing.T) {
	if !MatchOSAnswer("  hello world  ", "hello world", false) {
		t.Error("expected whitespace-trimmed exact match to succeed")
	}
	if !MatchOSAnswer("file-2026.log", `file-\d{4}\.log`, true) {
		t.Error("expected regex match to succeed")
	}
	if MatchOSAnswer("file-log", `file-\d{4}\.log`, true) {
		t.Error("expected regex mismatch to fail")
	}
	if MatchOSAnswer("literal [", "literal [", true) == false {
		t.Error("expected invalid regex to fall back to literal equality and match")
	}
}
