package security

import "testing"

func TestBaseCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    string
	}{
		{"simple command", "ls -la", "ls"},
		{"env prefix skipped", "FOO=bar cat file.txt", "cat"},
		{"pipeline uses first segment", "grep foo file.txt | wc -l", "grep"},
		{"chained with &&", "cd /tmp && ls", "cd"},
		{"semicolon separated", "echo hi; rm -rf /", "echo"},
		{"only env prefix", "FOO=bar", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := BaseCommand(tc.command); got != tc.want {
				t.Errorf("BaseCommand(%q) = %q, want %q", tc.command, got, tc.want)
			}
		})
	}
}

func TestIsAllowedRestricted(t *testing.T) {
	if ok, reason := IsAllowedRestricted("cat file.txt"); !ok {
		t.Errorf("expected cat to be allowed, got reason %q", reason)
	}
	if ok, _ := IsAllowedRestricted("rm -rf /"); ok {
		t.Error("expected rm -rf to be rejected")
	}
	if ok, _ := IsAllowedRestricted("sudo cat /etc/shadow"); ok {
		t.Error("expected sudo to be rejected")
	}
	if ok, reason := IsAllowedRestricted("unknownbinary --flag"); ok || reason == "" {
		t.Errorf("expected an unknown binary to be rejected with a reason, got ok=%v reason=%q", ok, reason)
	}
	if ok, _ := IsAllowedRestricted("grep foo file.txt | wc -l"); !ok {
		t.Error("expected a pipeline of allowlisted commands to be allowed")
	}
}

func TestContainsDangerousSubstring(t *testing.T) {
	if _, found := ContainsDangerousSubstring("cat file.txt"); found {
		t.Error("expected no dangerous substring in a plain read command")
	}
	if sub, found := ContainsDangerousSubstring("echo hi > /etc/passwd"); !found || sub != ">" {
		t.Errorf("expected to find redirection as dangerous, got sub=%q found=%v", sub, found)
	}
}
