package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aalvaropc/doclane/internal/domain"
)

// UnexpectedMessage is shown for failures that carry nothing useful for the user.
const UnexpectedMessage = "Unexpected error (see logs)"

var reLine = regexp.MustCompile(`(?i)\bline\s+(\d+)\b`)

// UserMessage maps an error to the one-line message shown in the console and the CLI.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var oe *domain.OpError
	if errors.As(err, &oe) {
		switch oe.Kind {

		case domain.KindNetwork:
			switch oe.Cause {
			case domain.CauseTimeout:
				return "The service did not respond in time"
			case domain.CauseDNS:
				return "Cannot resolve the service host"
			case domain.CauseConn:
				return "Cannot reach the service (is it running?)"
			default:
				return "Network error talking to the service"
			}

		case domain.KindAuthentication:
			if errors.Is(err, domain.ErrNotAuthenticated) {
				return "Not logged in. Run `doclane login`"
			}
			return "Session expired. Run `doclane login`"

		case domain.KindAPI:
			if oe.Detail != "" {
				return oe.Detail
			}
			if oe.Status != 0 {
				return fmt.Sprintf("Request failed (status %d)", oe.Status)
			}
			return "Request failed"

		case domain.KindParse:
			return "Unexpected response from the service (see logs)"

		case domain.KindInvalidTransition:
			return "Not allowed: " + innerText(oe, domain.ErrInvalidTransition)

		case domain.KindNotFound:
			if strings.HasPrefix(oe.Op, "config.") {
				return "Config not found"
			}
			if strings.HasPrefix(oe.Op, "usecase.upload") && oe.Path != "" {
				return "File not found: " + filepath.Base(oe.Path)
			}
			return "Not found"

		case domain.KindInvalidConfig:
			if errors.Is(err, domain.ErrInvalidRequest) {
				return capitalize(innerText(oe, domain.ErrInvalidRequest))
			}

			base := "config"
			if strings.TrimSpace(oe.Path) != "" {
				base = filepath.Base(oe.Path)
			}

			if errors.Is(err, domain.ErrInvalidConfig) {
				return "Invalid " + base + ": " + innerText(oe, domain.ErrInvalidConfig)
			}

			line := extractLine(err.Error())
			if line != "" {
				return "Invalid YAML at " + base + " line " + line
			}

			if looksLikeYAMLProblem(err.Error()) {
				return "Invalid YAML at " + base
			}
			return "Invalid config"

		default:
			return UnexpectedMessage
		}
	}

	if looksLikeYAMLProblem(err.Error()) {
		line := extractLine(err.Error())
		if line != "" {
			return "Invalid YAML line " + line
		}
		return "Invalid YAML"
	}

	return err.Error()
}

// innerText is the wrapped error text without the trailing sentinel.
func innerText(oe *domain.OpError, sentinel error) string {
	if oe.Err == nil {
		return sentinel.Error()
	}
	s := strings.TrimSuffix(oe.Err.Error(), ": "+sentinel.Error())
	if s == "" {
		return sentinel.Error()
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func looksLikeYAMLProblem(s string) bool {
	ls := strings.ToLower(s)
	return strings.Contains(ls, "yaml:") || strings.Contains(ls, "did not find expected") || strings.Contains(ls, "cannot unmarshal")
}

func extractLine(s string) string {
	m := reLine.FindStringSubmatch(s)
	if len(m) == 2 {
		return m[1]
	}
	return ""
}
