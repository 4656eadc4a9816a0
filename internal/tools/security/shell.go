// Package security implements the shell allowlist and dangerous-pattern
// analysis used by the restricted shell tool.
package security

import (
	"regexp"
	"strings"
)

// Allowlist is the exact set of base commands permitted in restricted mode.
var Allowlist = buildSet(strings.Fields(
	"cat head tail less more grep rg ag ack find locate which whereis ls tree du df file stat wc md5 sha256sum shasum awk sed cut sort uniq tr column fmt fold nl pr expand unexpand jq yq xmllint tar unzip zipinfo zcat zless zgrep gzip gunzip pwd whoami hostname uname env printenv date uptime ps top free ping curl wget dig nslookup host netstat ss git echo printf diff cmp comm hexdump xxd od strings",
))

// DangerousSubstrings are rejected regardless of base command: restricted
// mode checks the whole command for them independently of the allowlist.
// Unrestricted mode does not consult them.
var DangerousSubstrings = []string{
	">", ">>", "rm ", "rm\t", "rmdir", "mv ", "mv\t", "cp ", "cp\t",
	"chmod", "chown", "chgrp", "mkdir", "touch", "truncate", "shred",
	"dd ", "dd\t", "mkfs", "mount", "umount", "kill", "pkill", "killall",
	"reboot", "shutdown", "halt", "poweroff", "systemctl", "service",
	"apt", "yum", "dnf", "brew ", "pip ", "npm ", "yarn ", "cargo ",
	"sudo", "su ", "su\t", "doas",
}

var splitRe = regexp.MustCompile(`\|\||&&|[|;]`)
var envPrefixRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=\S*$`)

func buildSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[s] = true
	}
	return m
}

// BaseCommand extracts the first token of the segment preceding the first
// |, &&, ;, or ||, skipping leading VAR=value env-prefixes.
func BaseCommand(command string) string {
	segments := splitRe.Split(command, 2)
	first := strings.TrimSpace(segments[0])
	fields := strings.Fields(first)
	i := 0
	for i < len(fields) && envPrefixRe.MatchString(fields[i]) {
		i++
	}
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}

// ContainsDangerousSubstring scans the entire command string (not just the
// base command) for any of DangerousSubstrings.
func ContainsDangerousSubstring(command string) (string, bool) {
	for _, sub := range DangerousSubstrings {
		if strings.Contains(command, sub) {
			return sub, true
		}
	}
	return "", false
}

// IsAllowedRestricted applies the restricted-mode rule: base command must
// be in Allowlist AND the full command must contain no dangerous
// substring.
func IsAllowedRestricted(command string) (bool, string) {
	if sub, found := ContainsDangerousSubstring(command); found {
		return false, "command contains disallowed pattern: " + strings.TrimSpace(sub)
	}
	base := BaseCommand(command)
	if !Allowlist[base] {
		return false, "command not in allowlist: " + base
	}
	return true, ""
}
