// Package redact маскирует персональные данные перед записью в лог.
package redact

import "strings"

// Email оставляет два первых символа локальной части и домен.
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "***"
	}

	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Phone оставляет только четыре последние цифры.
func Phone(s string) string {
	if len(s) <= 4 {
		return "***"
	}

	return "***" + s[len(s)-4:]
}

func Token() string { return "[REDACTED_TOKEN]" }
