// Package validation turns transcription failures into troubleshooting
// steps for the user.
package validation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/tiroq/subtitler/internal/transcribe"
)

// Result is the outcome of an endpoint check.
type Result struct {
	OK       bool
	Message  string
	Issues   []string
	Warnings []string
	Fixes    []string
}

// ValidateEndpoint checks the shape of the configured URL.
func ValidateEndpoint(endpoint string) *Result {
	result := &Result{OK: true}

	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		result.OK = false
		result.Message = fmt.Sprintf("Could not parse endpoint: %s", endpoint)
		result.Issues = append(result.Issues, "Invalid endpoint URL")
		result.Fixes = append(result.Fixes, "Set endpoint to a full URL, e.g. http://127.0.0.1:8000/transcribe")
		return result
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		result.OK = false
		result.Message = fmt.Sprintf("Unsupported scheme %q", u.Scheme)
		result.Issues = append(result.Issues, "Endpoint must use http or https")
		result.Fixes = append(result.Fixes, "Use http:// or https:// in the endpoint URL")
		return result
	}
	if u.Path == "" || u.Path == "/" {
		result.Warnings = append(result.Warnings, "Endpoint has no path; the server usually expects /transcribe")
	}
	if u.Scheme == "http" && !isLoopback(u.Hostname()) {
		result.Warnings = append(result.Warnings, "Videos are sent unencrypted to a remote host")
	}

	result.Message = fmt.Sprintf("Endpoint %s is well formed", endpoint)
	return result
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "::1" || strings.HasPrefix(host, "127.")
}

// CheckHealth combines the URL check with a reachability probe result.
func CheckHealth(endpoint string, st *transcribe.HealthStatus) *Result {
	result := ValidateEndpoint(endpoint)
	if !result.OK {
		return result
	}
	if st == nil || !st.OK {
		result.OK = false
		msg := "no response"
		if st != nil {
			msg = st.Message
		}
		result.Issues = append(result.Issues, msg)
		if st != nil && st.StatusCode != 0 {
			result.Fixes = append(result.Fixes, SuggestedFixes(&transcribe.ServerError{StatusCode: st.StatusCode})...)
		} else {
			result.Fixes = append(result.Fixes, unreachableFixes(endpoint)...)
		}
		result.Message = "Endpoint health check FAILED: " + msg
		return result
	}
	result.Message = fmt.Sprintf("Endpoint health check passed (%dms)", st.Latency.Milliseconds())
	return result
}

// SuggestedFixes returns troubleshooting lines for an upload error. It
// returns nil for nil.
func SuggestedFixes(err error) []string {
	if err == nil {
		return nil
	}
	var fixes []string

	var se *transcribe.ServerError
	switch {
	case errors.As(err, &se):
		switch se.StatusCode {
		case 400, 422:
			fixes = append(fixes, fmt.Sprintf("The server rejected the upload (HTTP %d)", se.StatusCode))
			fixes = append(fixes, "  - Check field_name in the config matches what the server expects (default \"video\")")
		case 404, 405:
			fixes = append(fixes, fmt.Sprintf("The endpoint path was not accepted (HTTP %d)", se.StatusCode))
			fixes = append(fixes, "  - Check the endpoint URL ends with the transcription route, e.g. /transcribe")
		case 413:
			fixes = append(fixes, "The video is larger than the server accepts (HTTP 413)")
			fixes = append(fixes, "  - Trim or re-encode the video, or raise the server's upload limit")
		case 415:
			fixes = append(fixes, "The server does not accept this file type (HTTP 415)")
			fixes = append(fixes, "  - Convert the video to a common container such as mp4")
		case 502, 503, 504:
			fixes = append(fixes, fmt.Sprintf("The server or a proxy in front of it is unavailable (HTTP %d)", se.StatusCode))
			fixes = append(fixes, "  - Wait and retry; long videos may exceed a proxy timeout")
		default:
			fixes = append(fixes, fmt.Sprintf("The server failed while transcribing (HTTP %d)", se.StatusCode))
			fixes = append(fixes, "  - Check the transcription server's logs")
		}

	case errors.Is(err, transcribe.ErrDecode):
		fixes = append(fixes, "The server replied with something other than JSON")
		fixes = append(fixes, "  - Check the endpoint points at the transcription service and not a web page")

	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout"):
		fixes = append(fixes, "The request timed out")
		fixes = append(fixes, "  - Raise timeout_seconds (0 disables the limit) for long videos")

	case errors.Is(err, transcribe.ErrTransport):
		if strings.Contains(err.Error(), "connection refused") {
			fixes = append(fixes, unreachableFixes("")...)
		} else {
			fixes = append(fixes, "The connection to the server failed")
			fixes = append(fixes, "  - Check network connectivity and run `subtitler health`")
		}

	case errors.Is(err, os.ErrNotExist):
		fixes = append(fixes, "The selected file does not exist")

	default:
		fixes = append(fixes, fmt.Sprintf("Error: %s", err))
	}
	return fixes
}

func unreachableFixes(endpoint string) []string {
	where := "the configured endpoint"
	if endpoint != "" {
		where = endpoint
	}
	return []string{
		"Cannot reach the transcription server at " + where,
		"",
		"Verify:",
		"  1. The server is running",
		"  2. The host and port in the endpoint are correct",
		"  3. No firewall blocks the port",
	}
}
